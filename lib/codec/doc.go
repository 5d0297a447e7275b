// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the two encodings a trace session uses besides
// the raw packet layout.
//
// Session metadata (the header written after BeginCapture and the
// trailer written after EndCapture) is CBOR with Core Deterministic
// Encoding (RFC 8949 §4.2): the same session produces identical bytes,
// so traces can be compared and hashed as files.
//
//	data, err := codec.Marshal(header)
//	err = codec.Unmarshal(data, &header)
//
// Packets are wrapped in a compression envelope before framing:
//
//	[1 byte CompressionTag][4 bytes big-endian uncompressed length][data]
//
// [EncodePacket] compresses with the session's preferred algorithm and
// falls back to [CompressionNone] per packet when compression does not
// shrink it. [DecodePacket] reverses this and verifies the length.
package codec
