// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracepacket

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Reserved packet IDs. Entry-point packets use IDs from PacketIDBeginAPI.
const (
	PacketIDMessage          uint32 = 0
	PacketIDMarkerCheckpoint uint32 = 1
	PacketIDAPIBoundary      uint32 = 2
	PacketIDAPIGroupBegin    uint32 = 3
	PacketIDAPIGroupEnd      uint32 = 4
	PacketIDTerminateProcess uint32 = 5
	PacketIDBeginAPI         uint32 = 6
)

// Header is the fixed prefix of every packet.
type Header struct {
	// Size is the total packet length: header, body and buffers.
	Size uint64

	// GlobalPacketIndex orders packets within a session. Assigned when
	// the packet is emitted, not when it is created.
	GlobalPacketIndex uint64

	TracerID uint32
	PacketID uint32
	ThreadID uint64

	// Timestamps in nanoseconds since the Unix epoch. TraceBeginTime is
	// packet creation; TraceEndTime is emission. The entry-point pair
	// brackets the real driver call.
	TraceBeginTime      int64
	EntrypointBeginTime int64
	EntrypointEndTime   int64
	TraceEndTime        int64

	// NextBuffersOffset is the first byte past the last buffer.
	NextBuffersOffset uint64
}

// HeaderSize is the encoded size of Header.
var HeaderSize = binary.Size(Header{})

// BufferOffset locates a buffer relative to the start of its packet.
// Zero is null.
type BufferOffset uint64

// BufferRef is a buffer queued by AddBuffer and not yet finalized.
type BufferRef struct {
	offset    uint64
	data      []byte
	finalized bool
}

var (
	// ErrUnfinalizedBuffer is returned by Finish when AddBuffer was
	// called without a matching FinalizeBufferAddress.
	ErrUnfinalizedBuffer = errors.New("buffer added but not finalized")

	// ErrBodyNotSet is returned by Finish when SetBody was never called.
	ErrBodyNotSet = errors.New("packet body not set")

	// ErrMalformed is returned by Decode and View accessors for packets
	// whose sizes or offsets are inconsistent.
	ErrMalformed = errors.New("malformed packet")
)

// Packet is a packet under construction.
type Packet struct {
	header   Header
	data     []byte
	bodySize int
	bodySet  bool
	pending  int
}

// New allocates a packet for packetID with room for bodySize bytes of
// fixed fields and extraSize bytes of buffers. extraSize is a capacity
// reservation; buffers beyond it grow the packet.
func New(packetID uint32, bodySize, extraSize int) *Packet {
	if bodySize < 0 || extraSize < 0 {
		panic(fmt.Sprintf("tracepacket: negative size (body %d, extra %d)", bodySize, extraSize))
	}
	fixed := HeaderSize + bodySize
	return &Packet{
		header: Header{
			PacketID:          packetID,
			NextBuffersOffset: uint64(fixed),
		},
		data:     make([]byte, fixed, fixed+extraSize),
		bodySize: bodySize,
	}
}

// Header returns the packet header for the caller to fill in. Size and
// NextBuffersOffset are maintained by the packet and overwritten by
// Finish.
func (p *Packet) Header() *Header {
	return &p.header
}

// BodySize returns the fixed body size given to New.
func (p *Packet) BodySize() int {
	return p.bodySize
}

// SetBody encodes body into the fixed body region. body must be a
// fixed-size value (see encoding/binary) no larger than the body size
// given to New.
func (p *Packet) SetBody(body any) error {
	region := p.data[HeaderSize : HeaderSize+p.bodySize]
	if _, err := binary.Encode(region, binary.LittleEndian, body); err != nil {
		return fmt.Errorf("encoding %T into %d-byte body: %w", body, p.bodySize, err)
	}
	p.bodySet = true
	return nil
}

// AddBuffer reserves space for data in the trailing region. The bytes
// are copied by FinalizeBufferAddress. A nil or empty buffer reserves
// nothing and finalizes to a null reference.
func (p *Packet) AddBuffer(data []byte) *BufferRef {
	ref := &BufferRef{data: data}
	if len(data) == 0 {
		return ref
	}
	ref.offset = p.header.NextBuffersOffset
	p.header.NextBuffersOffset += uint64(len(data))
	p.pending++
	return ref
}

// FinalizeBufferAddress copies a reserved buffer into the packet and
// returns the reference to store in the body. Finalizing a ref twice
// returns the same offset without copying again.
func (p *Packet) FinalizeBufferAddress(ref *BufferRef) BufferOffset {
	if ref == nil || ref.offset == 0 {
		return 0
	}
	if ref.finalized {
		return BufferOffset(ref.offset)
	}
	end := ref.offset + uint64(len(ref.data))
	if end > uint64(len(p.data)) {
		p.data = append(p.data, make([]byte, int(end)-len(p.data))...)
	}
	copy(p.data[ref.offset:end], ref.data)
	ref.finalized = true
	p.pending--
	return BufferOffset(ref.offset)
}

// Finish writes the header and returns the serialized packet. The
// returned slice aliases the packet's storage.
func (p *Packet) Finish() ([]byte, error) {
	if p.pending > 0 {
		return nil, fmt.Errorf("packet %d: %d %w", p.header.PacketID, p.pending, ErrUnfinalizedBuffer)
	}
	if !p.bodySet && p.bodySize > 0 {
		return nil, fmt.Errorf("packet %d: %w", p.header.PacketID, ErrBodyNotSet)
	}
	p.header.Size = p.header.NextBuffersOffset
	if uint64(len(p.data)) < p.header.Size {
		p.data = append(p.data, make([]byte, int(p.header.Size)-len(p.data))...)
	}
	p.data = p.data[:p.header.Size]
	if _, err := binary.Encode(p.data[:HeaderSize], binary.LittleEndian, &p.header); err != nil {
		return nil, fmt.Errorf("encoding packet header: %w", err)
	}
	return p.data, nil
}
