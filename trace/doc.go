// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace implements capture and replay sessions on top of the
// filelike transport.
//
// A session is a sequence of framed records:
//
//	BeginCapture checkpoint
//	SessionHeader (CBOR)
//	packet envelope, one per packet
//	terminate-process packet envelope
//	EndCapture checkpoint
//	SessionTrailer (CBOR)
//
// Each packet envelope is the packet optionally compressed by
// [codec.EncodePacket]. The trailer carries the packet count and a
// keyed BLAKE3 digest over the uncompressed packets, so a reader
// detects truncation, reordering and corruption even when every frame
// is individually well formed.
//
// [Tracer] is the producer side. It is safe for concurrent use: emits
// are serialized by a capture-wide lock, and the first write failure is
// sticky. [Reader] is the consumer side and is not safe for concurrent
// use.
//
// [OpenOutput] binds a transport to the destination named in
// configuration: a file, locked exclusively for the life of the
// session, or a remote consumer reached over a socket.
package trace
