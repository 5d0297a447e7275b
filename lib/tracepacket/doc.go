// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracepacket defines the serialized record of one intercepted
// call: a fixed [Header], the entry point's fixed-size body, and a
// trailing region holding variable-length buffers (strings, tag blobs,
// option blobs).
//
// Packet layout, all little-endian:
//
//	[Header: HeaderSize bytes][body][buffer 0][buffer 1]...
//
// Buffers are referenced from the body by [BufferOffset], the byte
// offset from the start of the packet. Offset 0 is the null reference;
// the header occupies offset 0 so no buffer can live there.
//
// Building a packet is two-phase per buffer. [Packet.AddBuffer] reserves
// the buffer's slot in the trailing region and returns a [BufferRef].
// [Packet.FinalizeBufferAddress] copies the bytes into the slot and
// returns the final reference to store in the body. [Packet.Finish]
// refuses to serialize a packet with unfinalized buffers.
//
// [Decode] is the replay side: it validates the header against the
// packet bytes and returns a [View] for body and buffer access.
package tracepacket
