// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracepacket

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

type deviceOptionBody struct {
	Device   uint64
	Option   uint32
	Result   int32
	DataSize uint64
	Data     BufferOffset
	Name     BufferOffset
}

func TestHeaderSize(t *testing.T) {
	t.Parallel()
	if HeaderSize != 72 {
		t.Errorf("HeaderSize = %d, want 72", HeaderSize)
	}
}

func TestBuildAndDecode(t *testing.T) {
	t.Parallel()
	data := []byte{1, 2, 3, 4, 5}
	name := []byte("marker\x00")
	bodySize := binary.Size(deviceOptionBody{})

	packet := New(PacketIDBeginAPI+3, bodySize, len(data)+len(name))
	header := packet.Header()
	header.TracerID = 7
	header.ThreadID = 1234
	header.EntrypointBeginTime = 100
	header.EntrypointEndTime = 200

	body := deviceOptionBody{Device: 0xdead, Option: 2, Result: -3, DataSize: uint64(len(data))}
	dataRef := packet.AddBuffer(data)
	nameRef := packet.AddBuffer(name)
	// Finalize out of order: offsets were fixed at AddBuffer time.
	body.Name = packet.FinalizeBufferAddress(nameRef)
	body.Data = packet.FinalizeBufferAddress(dataRef)
	if err := packet.SetBody(body); err != nil {
		t.Fatalf("SetBody: %v", err)
	}

	encoded, err := packet.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	wantSize := HeaderSize + bodySize + len(data) + len(name)
	if len(encoded) != wantSize {
		t.Fatalf("packet is %d bytes, want %d", len(encoded), wantSize)
	}
	if body.Data != BufferOffset(HeaderSize+bodySize) {
		t.Errorf("data offset = %d, want %d", body.Data, HeaderSize+bodySize)
	}
	if body.Name != body.Data+BufferOffset(len(data)) {
		t.Errorf("name offset = %d, want %d", body.Name, body.Data+BufferOffset(len(data)))
	}

	view, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if view.Header.PacketID != PacketIDBeginAPI+3 || view.Header.TracerID != 7 || view.Header.ThreadID != 1234 {
		t.Errorf("header = %+v", view.Header)
	}
	if view.Header.Size != uint64(wantSize) {
		t.Errorf("header size = %d, want %d", view.Header.Size, wantSize)
	}

	var decoded deviceOptionBody
	if err := view.InterpretBody(&decoded); err != nil {
		t.Fatalf("InterpretBody: %v", err)
	}
	if decoded != body {
		t.Errorf("body = %+v, want %+v", decoded, body)
	}
	gotData, err := view.Buffer(decoded.Data, decoded.DataSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if !bytes.Equal(gotData, data) {
		t.Errorf("data buffer = %v, want %v", gotData, data)
	}
	gotName, err := view.CString(decoded.Name)
	if err != nil {
		t.Fatalf("CString: %v", err)
	}
	if gotName != "marker" {
		t.Errorf("name = %q, want %q", gotName, "marker")
	}
}

func TestEmptyBufferIsNull(t *testing.T) {
	t.Parallel()
	packet := New(PacketIDBeginAPI, 8, 0)
	ref := packet.AddBuffer(nil)
	if offset := packet.FinalizeBufferAddress(ref); offset != 0 {
		t.Errorf("offset for empty buffer = %d, want 0", offset)
	}
	if err := packet.SetBody(uint64(0)); err != nil {
		t.Fatalf("SetBody: %v", err)
	}
	encoded, err := packet.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(encoded) != HeaderSize+8 {
		t.Errorf("packet is %d bytes, want %d", len(encoded), HeaderSize+8)
	}

	view, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	buffer, err := view.Buffer(0, 0)
	if err != nil || buffer != nil {
		t.Errorf("Buffer(0, 0) = (%v, %v), want (nil, nil)", buffer, err)
	}
	text, err := view.CString(0)
	if err != nil || text != "" {
		t.Errorf("CString(0) = (%q, %v), want empty", text, err)
	}
}

func TestBuffersBeyondReservationGrow(t *testing.T) {
	t.Parallel()
	packet := New(PacketIDBeginAPI, 0, 2)
	large := bytes.Repeat([]byte{0xab}, 300)
	offset := packet.FinalizeBufferAddress(packet.AddBuffer(large))
	encoded, err := packet.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	view, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := view.Buffer(offset, uint64(len(large)))
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if !bytes.Equal(got, large) {
		t.Error("grown buffer contents differ")
	}
}

func TestFinishContractErrors(t *testing.T) {
	t.Parallel()

	unfinalized := New(PacketIDBeginAPI, 0, 4)
	unfinalized.AddBuffer([]byte("tag"))
	if _, err := unfinalized.Finish(); !errors.Is(err, ErrUnfinalizedBuffer) {
		t.Errorf("Finish with pending buffer: %v, want ErrUnfinalizedBuffer", err)
	}

	noBody := New(PacketIDBeginAPI, 16, 0)
	if _, err := noBody.Finish(); !errors.Is(err, ErrBodyNotSet) {
		t.Errorf("Finish without body: %v, want ErrBodyNotSet", err)
	}

	oversized := New(PacketIDBeginAPI, 4, 0)
	if err := oversized.SetBody(uint64(1)); err == nil {
		t.Error("SetBody of 8 bytes into a 4-byte body succeeded")
	}
}

func TestFinalizeTwiceIsIdempotent(t *testing.T) {
	t.Parallel()
	packet := New(PacketIDBeginAPI, 0, 4)
	ref := packet.AddBuffer([]byte("abcd"))
	first := packet.FinalizeBufferAddress(ref)
	second := packet.FinalizeBufferAddress(ref)
	if first != second {
		t.Errorf("offsets differ: %d then %d", first, second)
	}
	if _, err := packet.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()
	packet := New(PacketIDBeginAPI, 0, 4)
	offset := packet.FinalizeBufferAddress(packet.AddBuffer([]byte("abc\x00")))
	valid, err := packet.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if _, err := Decode(valid[:HeaderSize-1]); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode(short) = %v, want ErrMalformed", err)
	}
	if _, err := Decode(valid[:len(valid)-1]); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode(truncated) = %v, want ErrMalformed", err)
	}

	view, err := Decode(valid)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := view.Buffer(offset, 100); !errors.Is(err, ErrMalformed) {
		t.Errorf("Buffer past end = %v, want ErrMalformed", err)
	}
	if _, err := view.Buffer(4, 1); !errors.Is(err, ErrMalformed) {
		t.Errorf("Buffer inside header = %v, want ErrMalformed", err)
	}
	if _, err := view.Buffer(0, 3); !errors.Is(err, ErrMalformed) {
		t.Errorf("null Buffer with length = %v, want ErrMalformed", err)
	}

	unterminated := New(PacketIDBeginAPI, 0, 3)
	stringOffset := unterminated.FinalizeBufferAddress(unterminated.AddBuffer([]byte("abc")))
	encoded, err := unterminated.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	view, err = Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := view.CString(stringOffset); !errors.Is(err, ErrMalformed) {
		t.Errorf("CString unterminated = %v, want ErrMalformed", err)
	}
}

func TestBufferCannotAliasBody(t *testing.T) {
	t.Parallel()
	type selfReferencingBody struct {
		Data   BufferOffset
		Length uint64
	}
	packet := New(PacketIDBeginAPI, 16, 4)
	offset := packet.FinalizeBufferAddress(packet.AddBuffer([]byte("abc\x00")))
	if err := packet.SetBody(&selfReferencingBody{Data: BufferOffset(HeaderSize), Length: 8}); err != nil {
		t.Fatalf("SetBody: %v", err)
	}
	encoded, err := packet.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	view, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var body selfReferencingBody
	if err := view.InterpretBody(&body); err != nil {
		t.Fatalf("InterpretBody: %v", err)
	}
	if _, err := view.Buffer(body.Data, body.Length); !errors.Is(err, ErrMalformed) {
		t.Errorf("Buffer inside body = %v, want ErrMalformed", err)
	}
	if _, err := view.CString(body.Data); !errors.Is(err, ErrMalformed) {
		t.Errorf("CString inside body = %v, want ErrMalformed", err)
	}
	text, err := view.CString(offset)
	if err != nil || text != "abc" {
		t.Errorf("CString after body = (%q, %v), want abc", text, err)
	}
}
