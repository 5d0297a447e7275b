// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkpoint implements named synchronization tokens embedded in
// a trace stream.
//
// A producer writes a [Checkpoint] at each protocol phase boundary. The
// consumer reads it back with a Checkpoint built from the same text.
// Read compares against the checkpoint's own precomputed length rather
// than the length found in the stream, so a consumer that has drifted
// (consumed too many or too few bytes earlier) sees a content mismatch
// at the milestone instead of a framing error somewhere later.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/glave/lib/filelike"
)

// ErrMismatch reports that the bytes at a checkpoint did not match the
// expected token. The stream is desynchronized and the session must be
// abandoned.
var ErrMismatch = errors.New("checkpoint mismatch")

// Checkpoint is an immutable token. The stored bytes include a trailing
// zero terminator.
type Checkpoint struct {
	token []byte
}

// New creates a checkpoint for text.
func New(text string) *Checkpoint {
	token := make([]byte, len(text)+1)
	copy(token, text)
	return &Checkpoint{token: token}
}

// Token returns the checkpoint text without the terminator.
func (c *Checkpoint) Token() string {
	return string(c.token[:len(c.token)-1])
}

// Length returns the token length in bytes, terminator included.
func (c *Checkpoint) Length() int {
	return len(c.token)
}

// Write emits the token as one framed message.
func (c *Checkpoint) Write(out *filelike.FileLike) error {
	if err := out.WriteFramed(c.token); err != nil {
		return fmt.Errorf("writing checkpoint %q: %w", c.Token(), err)
	}
	return nil
}

// Read consumes one checkpoint from in and verifies it. The frame prefix
// is consumed first, then exactly Length bytes are read raw.
func (c *Checkpoint) Read(in *filelike.FileLike) error {
	var prefix [filelike.PrefixSize]byte
	if err := in.ReadRaw(prefix[:]); err != nil {
		return fmt.Errorf("reading checkpoint %q: %w", c.Token(), err)
	}
	buffer := make([]byte, len(c.token))
	if err := in.ReadRaw(buffer); err != nil {
		return fmt.Errorf("reading checkpoint %q: %w", c.Token(), err)
	}

	length := binary.LittleEndian.Uint64(prefix[:])
	if length != uint64(len(c.token)) || !bytes.Equal(buffer, c.token) {
		return fmt.Errorf("expected %q (%d bytes), stream has %q with framed length %d: %w",
			c.Token(), len(c.token), printable(buffer), length, ErrMismatch)
	}
	return nil
}

// printable trims the read bytes at the first terminator for error text.
func printable(buffer []byte) string {
	if index := bytes.IndexByte(buffer, 0); index >= 0 {
		buffer = buffer[:index]
	}
	return string(buffer)
}
