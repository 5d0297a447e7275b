// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/lib/testutil"
)

type acceptResult struct {
	stream *Stream
	err    error
}

// connectPair returns a dialed producer stream and the consumer stream
// accepted for it.
func connectPair(t *testing.T, network, address string) (*Stream, *Stream) {
	t.Helper()
	listener, err := Listen(network, address)
	if err != nil {
		t.Fatalf("Listen(%s, %s): %v", network, address, err)
	}
	t.Cleanup(func() { listener.Close() })

	accepted := make(chan acceptResult, 1)
	go func() {
		stream, err := listener.Accept(context.Background())
		accepted <- acceptResult{stream: stream, err: err}
	}()

	dialer := &Dialer{Timeout: 5 * time.Second}
	producer, err := dialer.DialContext(context.Background(), network, listener.Address())
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { producer.Close() })

	result := testutil.RequireReceive(t, accepted, 5*time.Second, "accepting producer")
	if result.err != nil {
		t.Fatalf("Accept: %v", result.err)
	}
	t.Cleanup(func() { result.stream.Close() })
	return producer, result.stream
}

func TestStreamFramedRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		network string
		address func(t *testing.T) string
	}{
		{"tcp", "tcp", func(*testing.T) string { return "127.0.0.1:0" }},
		{"unix", "unix", func(t *testing.T) string {
			return filepath.Join(testutil.SocketDir(t), "trace.sock")
		}},
	}

	sizes := []int{0, 1, 4, 4, 16, 0, 256, 3, 3, 0}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			producer, consumer := connectPair(t, test.network, test.address(t))

			writer := filelike.NewFromStream(producer, nil)
			reader := filelike.NewFromStream(consumer, nil)

			done := make(chan error, 1)
			go func() {
				for index, size := range sizes {
					if err := writer.WriteFramed(testutil.Payload(size, index)); err != nil {
						done <- err
						return
					}
				}
				done <- producer.CloseWrite()
			}()

			buffer := make([]byte, 256)
			for index, size := range sizes {
				length, err := reader.ReadFramed(buffer)
				if err != nil {
					t.Fatalf("ReadFramed #%d: %v", index, err)
				}
				if length != size {
					t.Fatalf("message #%d length = %d, want %d", index, length, size)
				}
				if !bytes.Equal(buffer[:length], testutil.Payload(size, index)) {
					t.Fatalf("message #%d content mismatch", index)
				}
			}
			if err := testutil.RequireReceive(t, done, 5*time.Second, "producer finishing"); err != nil {
				t.Fatalf("producer: %v", err)
			}

			_, err := reader.ReadFramed(buffer)
			if !errors.Is(err, filelike.ErrEndOfStream) {
				t.Fatalf("read after close: got %v, want ErrEndOfStream", err)
			}
		})
	}
}

func TestStreamRecvAfterPeerClose(t *testing.T) {
	t.Parallel()
	producer, consumer := connectPair(t, "tcp", "127.0.0.1:0")

	if err := producer.Send([]byte{1, 2}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	producer.Close()

	err := consumer.BlockingRecv(make([]byte, 4))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("BlockingRecv = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestAcceptCancelled(t *testing.T) {
	t.Parallel()
	listener, err := Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	accepted := make(chan error, 1)
	go func() {
		_, err := listener.Accept(ctx)
		accepted <- err
	}()
	cancel()

	err = testutil.RequireReceive(t, accepted, 5*time.Second, "accept returning")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Accept = %v, want context.Canceled", err)
	}
}

func TestUnsupportedNetwork(t *testing.T) {
	t.Parallel()
	if _, err := Listen("udp", "127.0.0.1:0"); err == nil {
		t.Error("Listen(udp) succeeded")
	}
	dialer := &Dialer{}
	if _, err := dialer.DialContext(context.Background(), "udp", "127.0.0.1:1"); err == nil {
		t.Error("DialContext(udp) succeeded")
	}
}

func TestDialRefused(t *testing.T) {
	t.Parallel()
	address := filepath.Join(testutil.SocketDir(t), "absent.sock")
	dialer := &Dialer{Timeout: time.Second}
	if _, err := dialer.DialContext(context.Background(), "unix", address); err == nil {
		t.Fatal("dialing an absent socket succeeded")
	}
}
