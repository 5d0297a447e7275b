// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Listener accepts trace producers on a TCP or unix socket.
type Listener struct {
	listener net.Listener
}

// Listen opens a listener on network ("tcp" or "unix") at address. Use
// "127.0.0.1:0" for a random TCP port.
func Listen(network, address string) (*Listener, error) {
	if err := checkNetwork(network); err != nil {
		return nil, err
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	return &Listener{listener: listener}, nil
}

// Accept waits for the next producer. Cancelling ctx closes the
// listener to unblock the wait.
func (l *Listener) Accept(ctx context.Context) (*Stream, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.listener.Close()
		case <-done:
		}
	}()

	conn, err := l.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return NewStream(conn), nil
}

// Address returns the listening address ("host:port" or a socket path).
func (l *Listener) Address() string {
	return l.listener.Addr().String()
}

// Close stops accepting. Established streams are unaffected.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Dialer connects producers to a consumer.
type Dialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// context deadline applies.
	Timeout time.Duration
}

// DialContext connects to address on network ("tcp" or "unix").
func (d *Dialer) DialContext(ctx context.Context, network, address string) (*Stream, error) {
	if err := checkNetwork(network); err != nil {
		return nil, err
	}
	conn, err := (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return NewStream(conn), nil
}

func checkNetwork(network string) error {
	switch network {
	case "tcp", "unix":
		return nil
	default:
		return fmt.Errorf("unsupported network %q (want tcp or unix)", network)
	}
}
