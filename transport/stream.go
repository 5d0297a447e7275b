// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"io"
	"net"

	"github.com/bureau-foundation/glave/lib/filelike"
)

// Compile-time interface check.
var _ filelike.MessageStream = (*Stream)(nil)

// Stream is a blocking message stream over a connection. The
// connection is owned by the Stream; Close closes it.
type Stream struct {
	conn net.Conn
}

// NewStream wraps an established connection.
func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn}
}

// Send writes all of data. net.Conn.Write already loops until the whole
// buffer is written or an error occurs; a short count without an error
// is still reported as a failure.
func (s *Stream) Send(data []byte) error {
	written, err := s.conn.Write(data)
	if err != nil {
		return fmt.Errorf("send %d bytes: %w", len(data), err)
	}
	if written != len(data) {
		return fmt.Errorf("send %d bytes: %w", len(data), io.ErrShortWrite)
	}
	return nil
}

// BlockingRecv fills buffer from the connection.
func (s *Stream) BlockingRecv(buffer []byte) error {
	if _, err := io.ReadFull(s.conn, buffer); err != nil {
		return fmt.Errorf("receive %d bytes: %w", len(buffer), err)
	}
	return nil
}

// CloseWrite half-closes the sending side when the connection supports
// it, so the consumer sees end of stream while the producer can still
// read. Otherwise it closes the connection.
func (s *Stream) CloseWrite() error {
	if closer, ok := s.conn.(interface{ CloseWrite() error }); ok {
		return closer.CloseWrite()
	}
	return s.conn.Close()
}

// Close closes the connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}

// RemoteAddress returns the peer address.
func (s *Stream) RemoteAddress() string {
	return s.conn.RemoteAddr().String()
}
