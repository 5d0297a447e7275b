// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracepacket

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// View is a decoded packet. It aliases the bytes passed to Decode.
type View struct {
	Header Header
	data   []byte

	// buffersStart is the lowest offset a buffer may occupy: the end of
	// the header until InterpretBody has measured the fixed body.
	buffersStart uint64
}

// Decode validates data as one packet.
func Decode(data []byte) (*View, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%d bytes is shorter than a header: %w", len(data), ErrMalformed)
	}
	view := &View{data: data, buffersStart: uint64(HeaderSize)}
	if _, err := binary.Decode(data[:HeaderSize], binary.LittleEndian, &view.Header); err != nil {
		return nil, fmt.Errorf("decoding packet header: %w", err)
	}
	if view.Header.Size != uint64(len(data)) {
		return nil, fmt.Errorf("header size %d, packet is %d bytes: %w", view.Header.Size, len(data), ErrMalformed)
	}
	if view.Header.NextBuffersOffset < uint64(HeaderSize) || view.Header.NextBuffersOffset > view.Header.Size {
		return nil, fmt.Errorf("buffer offset %d outside [%d, %d]: %w",
			view.Header.NextBuffersOffset, HeaderSize, view.Header.Size, ErrMalformed)
	}
	return view, nil
}

// Bytes returns the whole packet.
func (v *View) Bytes() []byte {
	return v.data
}

// Body returns everything after the header: the fixed body followed by
// any buffers.
func (v *View) Body() []byte {
	return v.data[HeaderSize:]
}

// InterpretBody decodes the fixed body into body, which must be a
// pointer to a fixed-size value. Afterwards Buffer and CString reject
// offsets that fall inside the body.
func (v *View) InterpretBody(body any) error {
	read, err := binary.Decode(v.Body(), binary.LittleEndian, body)
	if err != nil {
		return fmt.Errorf("packet %d: decoding body as %T: %w", v.Header.PacketID, body, err)
	}
	v.buffersStart = uint64(HeaderSize + read)
	return nil
}

// Buffer returns length bytes at offset. A null offset returns nil.
func (v *View) Buffer(offset BufferOffset, length uint64) ([]byte, error) {
	if offset == 0 {
		if length != 0 {
			return nil, fmt.Errorf("null buffer with length %d: %w", length, ErrMalformed)
		}
		return nil, nil
	}
	start := uint64(offset)
	end := start + length
	if start < v.buffersStart || end < start || end > v.Header.NextBuffersOffset {
		return nil, fmt.Errorf("buffer [%d, %d) outside packet buffers [%d, %d): %w",
			start, end, v.buffersStart, v.Header.NextBuffersOffset, ErrMalformed)
	}
	return v.data[start:end], nil
}

// CString returns the zero-terminated string at offset, without the
// terminator. A null offset returns "".
func (v *View) CString(offset BufferOffset) (string, error) {
	if offset == 0 {
		return "", nil
	}
	start := uint64(offset)
	if start < v.buffersStart || start >= v.Header.NextBuffersOffset {
		return "", fmt.Errorf("string offset %d outside packet buffers: %w", start, ErrMalformed)
	}
	region := v.data[start:v.Header.NextBuffersOffset]
	end := bytes.IndexByte(region, 0)
	if end < 0 {
		return "", fmt.Errorf("string at offset %d is not terminated: %w", start, ErrMalformed)
	}
	return string(region[:end]), nil
}
