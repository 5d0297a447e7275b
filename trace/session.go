// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"errors"

	"github.com/bureau-foundation/glave/lib/checkpoint"
)

// Magic identifies a glave trace session header.
const Magic = "GLVTRACE"

// FormatVersion is the session layout written by this package. Readers
// reject any other version.
const FormatVersion = 1

// maxMetadataSize bounds the CBOR header and trailer records.
const maxMetadataSize = 1 << 20

// DefaultMaxPacketSize is the packet size limit a Reader applies when
// ReaderOptions leaves it zero.
const DefaultMaxPacketSize = 64 << 20

var (
	// BeginCapture opens a session.
	BeginCapture = checkpoint.New("BeginCapture")

	// EndCapture follows the terminate-process packet.
	EndCapture = checkpoint.New("EndCapture")
)

var (
	// ErrBadHeader is returned by Open for a session header with the
	// wrong magic, an unsupported version, or a different frame prefix
	// width.
	ErrBadHeader = errors.New("bad session header")

	// ErrDigestMismatch reports that the packets read do not hash to the
	// trailer's digest.
	ErrDigestMismatch = errors.New("packet digest mismatch")

	// ErrCountMismatch reports that the number of packets read, overall
	// or for some packet ID, differs from the trailer.
	ErrCountMismatch = errors.New("packet count mismatch")

	// ErrPacketOrder reports a packet whose global index does not
	// follow its predecessor's.
	ErrPacketOrder = errors.New("packet index out of order")

	// ErrEnded is returned by Tracer methods called after End.
	ErrEnded = errors.New("trace session already ended")
)

// SessionHeader is the first record after BeginCapture.
type SessionHeader struct {
	Magic       string `cbor:"magic"`
	Version     uint32 `cbor:"version"`
	TracerID    uint32 `cbor:"tracer_id"`
	Compression string `cbor:"compression"`

	// PrefixSize is the width of the frame length prefix the producer
	// used. Readers require it to match their own.
	PrefixSize uint32 `cbor:"prefix_size"`

	// CreatedAt is the session start in nanoseconds since the Unix
	// epoch.
	CreatedAt int64 `cbor:"created_at"`

	ProducerPID     int    `cbor:"producer_pid"`
	ProducerVersion string `cbor:"producer_version,omitempty"`
}

// SessionTrailer is the last record of a session.
type SessionTrailer struct {
	// PacketCount excludes the terminate-process packet.
	PacketCount uint64 `cbor:"packet_count"`

	// Digest is the binhash packet-stream digest over the same packets,
	// uncompressed, in emission order.
	Digest []byte `cbor:"digest"`

	// PacketsByID counts packets per packet ID.
	PacketsByID map[uint32]uint64 `cbor:"packets_by_id"`

	// EndedAt is the session end in nanoseconds since the Unix epoch.
	EndedAt int64 `cbor:"ended_at"`
}
