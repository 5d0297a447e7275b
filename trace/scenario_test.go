// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/lib/testutil"
	"github.com/bureau-foundation/glave/transport"
)

var scenarioSizes = []int{0, 1, 4, 4, 16, 0, 256, 3, 3, 0}

func writeScenario(out *filelike.FileLike) error {
	if err := BeginCapture.Write(out); err != nil {
		return err
	}
	for index, size := range scenarioSizes {
		if err := out.WriteFramed(testutil.Payload(size, index)); err != nil {
			return err
		}
	}
	return EndCapture.Write(out)
}

func readScenario(t *testing.T, in *filelike.FileLike) {
	t.Helper()
	if err := BeginCapture.Read(in); err != nil {
		t.Fatalf("BeginCapture.Read: %v", err)
	}
	buffer := make([]byte, 256)
	for index, size := range scenarioSizes {
		length, err := in.ReadFramed(buffer)
		if err != nil {
			t.Fatalf("ReadFramed #%d: %v", index, err)
		}
		if length != size {
			t.Fatalf("message #%d: length %d, want %d", index, length, size)
		}
		if !bytes.Equal(buffer[:length], testutil.Payload(size, index)) {
			t.Fatalf("message #%d: payload mismatch", index)
		}
	}
	if err := EndCapture.Read(in); err != nil {
		t.Fatalf("EndCapture.Read: %v", err)
	}
}

func TestScenarioFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scenario.trace")

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := writeScenario(filelike.NewFromFile(file, nil)); err != nil {
		t.Fatalf("writeScenario: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	input, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer input.Close()
	readScenario(t, filelike.NewFromFile(input, nil))
}

func TestScenarioStream(t *testing.T) {
	t.Parallel()
	address := filepath.Join(testutil.SocketDir(t), "scenario.sock")
	listener, err := transport.Listen("unix", address)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	produced := make(chan error, 1)
	go func() {
		dialer := &transport.Dialer{Timeout: 5 * time.Second}
		stream, err := dialer.DialContext(context.Background(), "unix", address)
		if err != nil {
			produced <- err
			return
		}
		defer stream.Close()
		produced <- writeScenario(filelike.NewFromStream(stream, nil))
	}()

	consumer, err := listener.Accept(context.Background())
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer consumer.Close()
	readScenario(t, filelike.NewFromStream(consumer, nil))

	if err := testutil.RequireReceive(t, produced, 5*time.Second, "producer finishing"); err != nil {
		t.Fatalf("producer: %v", err)
	}
}

// A consumer that skipped one message reaches EndCapture misaligned.
func TestScenarioDesynchronized(t *testing.T) {
	t.Parallel()
	var stream bytes.Buffer
	out := filelike.NewFromFile(&stream, nil)
	if err := writeScenario(out); err != nil {
		t.Fatalf("writeScenario: %v", err)
	}

	in := filelike.NewFromFile(&stream, nil)
	if err := BeginCapture.Read(in); err != nil {
		t.Fatalf("BeginCapture.Read: %v", err)
	}
	buffer := make([]byte, 256)
	for range scenarioSizes[1:] {
		if _, err := in.ReadFramed(buffer); err != nil {
			t.Fatalf("ReadFramed: %v", err)
		}
	}
	if err := EndCapture.Read(in); err == nil {
		t.Fatal("EndCapture.Read succeeded on a desynchronized stream")
	}
}
