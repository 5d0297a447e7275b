// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 digests over trace content.
//
// A capture session feeds every uncompressed packet, in emission order,
// through a [PacketHasher] and records the [Digest] in the session
// trailer. Replay recomputes it over the packets it decoded; a mismatch
// means packet bytes changed somewhere between capture and replay even
// though every frame and checkpoint parsed. The hasher is keyed with a
// fixed domain key so packet-stream digests never collide with
// [HashFile] digests of the same bytes.
//
// [FormatDigest] and [ParseDigest] convert digests to and from the hex
// form shown by glvtrace.
package binhash
