// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/glave/lib/binhash"
	"github.com/bureau-foundation/glave/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDemoDumpVerify(t *testing.T) {
	t.Parallel()
	for _, compression := range []string{"none", "lz4", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "demo.trace")

			var stdout bytes.Buffer
			err := runDemo(context.Background(),
				[]string{"--output", path, "--compression", compression, "--calls", "3", "--tracer-id", "9"},
				&stdout, discardLogger())
			if err != nil {
				t.Fatalf("demo: %v", err)
			}
			if !strings.Contains(stdout.String(), "captured 3 call sequences") {
				t.Errorf("demo output = %q", stdout.String())
			}

			stdout.Reset()
			if err := runDump([]string{"--hex", path}, &stdout, discardLogger()); err != nil {
				t.Fatalf("dump: %v", err)
			}
			dump := stdout.String()
			for _, want := range []string{
				"compression " + compression,
				`Message(INFO, "glvtrace demo capture")`,
				`CmdDbgMarkerBegin(cmd_buffer=0x2002, marker="frame 2")`,
				"DbgSetObjectTag(object=0x4001, tag=8 bytes) = success",
				"Trailer",
			} {
				if !strings.Contains(dump, want) {
					t.Errorf("dump output missing %q:\n%s", want, dump)
				}
			}

			stdout.Reset()
			if err := runVerify([]string{path}, &stdout, discardLogger()); err != nil {
				t.Fatalf("verify: %v", err)
			}
			// One message plus nine calls per sequence.
			if !strings.Contains(stdout.String(), ": 28 packets") {
				t.Errorf("verify output = %q", stdout.String())
			}
		})
	}
}

func TestVerifyRejectsTruncated(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "demo.trace")
	if err := runDemo(context.Background(), []string{"--output", path}, &bytes.Buffer{}, discardLogger()); err != nil {
		t.Fatalf("demo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-10], 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := runVerify([]string{path}, &bytes.Buffer{}, discardLogger()); err == nil {
		t.Fatal("verify accepted a truncated trace")
	}
}

func TestVerifyDigest(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "demo.trace")
	if err := runDemo(context.Background(), []string{"--output", path}, &bytes.Buffer{}, discardLogger()); err != nil {
		t.Fatalf("demo: %v", err)
	}
	digest, err := binhash.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	wrong := digest
	wrong[0] ^= 0xff

	if err := runVerify([]string{"--digest", binhash.FormatDigest(digest), path}, &bytes.Buffer{}, discardLogger()); err != nil {
		t.Fatalf("verify with matching digest: %v", err)
	}
	err = runVerify([]string{"--digest", binhash.FormatDigest(wrong), path}, &bytes.Buffer{}, discardLogger())
	if !errors.Is(err, errFileDigest) {
		t.Errorf("verify with wrong digest = %v, want errFileDigest", err)
	}
	err = runVerify([]string{"--digest", "abc", path}, &bytes.Buffer{}, discardLogger())
	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 2 {
		t.Errorf("verify with malformed digest = %v, want exit code 2", err)
	}
}

func TestReceiveFromDemo(t *testing.T) {
	t.Parallel()
	directory := testutil.SocketDir(t)
	socket := filepath.Join(directory, "receive.sock")
	recorded := filepath.Join(t.TempDir(), "received.trace")

	ready := make(chan string, 1)
	received := make(chan error, 1)
	var receiveOutput bytes.Buffer
	go func() {
		received <- receive(context.Background(), receiveOptions{
			listen:  socket,
			network: "unix",
			output:  recorded,
		}, &receiveOutput, discardLogger(), func(address string) { ready <- address })
	}()
	address := testutil.RequireReceive(t, ready, 5*time.Second, "receiver listening")

	err := runDemo(context.Background(),
		[]string{"--remote", address, "--network", "unix", "--compression", "lz4", "--calls", "2"},
		&bytes.Buffer{}, discardLogger())
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	if err := testutil.RequireReceive(t, received, 5*time.Second, "receiver finishing"); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !strings.Contains(receiveOutput.String(), "received 19 packets") {
		t.Errorf("receive output = %q", receiveOutput.String())
	}

	if err := runVerify([]string{recorded}, &bytes.Buffer{}, discardLogger()); err != nil {
		t.Fatalf("verifying the recorded session: %v", err)
	}
}

func TestReceiveMovesAsideFailedSession(t *testing.T) {
	t.Parallel()
	socket := filepath.Join(testutil.SocketDir(t), "receive.sock")
	recorded := filepath.Join(t.TempDir(), "received.trace")

	ready := make(chan string, 1)
	received := make(chan error, 1)
	go func() {
		received <- receive(context.Background(), receiveOptions{
			listen:  socket,
			network: "unix",
			output:  recorded,
		}, &bytes.Buffer{}, discardLogger(), func(address string) { ready <- address })
	}()
	address := testutil.RequireReceive(t, ready, 5*time.Second, "receiver listening")

	connection, err := net.Dial("unix", address)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, err := connection.Write([]byte("this is not a trace session")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	connection.Close()

	if err := testutil.RequireReceive(t, received, 5*time.Second, "receiver finishing"); err == nil {
		t.Fatal("receive accepted a malformed session")
	}
	if _, err := os.Stat(recorded); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed recording left at output path: Stat = %v", err)
	}
	if _, err := os.Stat(recorded + partialSuffix); err != nil {
		t.Errorf("failed recording not kept aside: %v", err)
	}
}

func TestDemoConfigFile(t *testing.T) {
	t.Parallel()
	directory := t.TempDir()
	configPath := filepath.Join(directory, "glvtrace.yaml")
	tracePath := filepath.Join(directory, "from-config.trace")
	configText := "output:\n  path: " + tracePath + "\ncompression: zstd\ntracer_id: 4\n"
	if err := os.WriteFile(configPath, []byte(configText), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runDemo(context.Background(), []string{"--config", configPath}, &bytes.Buffer{}, discardLogger()); err != nil {
		t.Fatalf("demo: %v", err)
	}

	var stdout bytes.Buffer
	if err := runDump([]string{tracePath}, &stdout, discardLogger()); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(stdout.String(), "tracer 4") {
		t.Errorf("dump does not show tracer 4:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "compression zstd") {
		t.Errorf("dump does not show zstd compression:\n%s", stdout.String())
	}
}

func TestDemoFlagErrors(t *testing.T) {
	t.Parallel()
	directory := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"no output", nil},
		{"both outputs", []string{"--output", filepath.Join(directory, "a.trace"), "--remote", "127.0.0.1:1"}},
		{"bad compression", []string{"--output", filepath.Join(directory, "b.trace"), "--compression", "gzip"}},
		{"negative calls", []string{"--output", filepath.Join(directory, "c.trace"), "--calls", "-1"}},
		{"extra argument", []string{"--output", filepath.Join(directory, "d.trace"), "extra"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := runDemo(context.Background(), test.args, &bytes.Buffer{}, discardLogger()); err == nil {
				t.Error("demo succeeded")
			}
		})
	}
}

func TestDumpMissingArgument(t *testing.T) {
	t.Parallel()
	err := runDump(nil, &bytes.Buffer{}, discardLogger())
	var coder interface{ ExitCode() int }
	if !errors.As(err, &coder) || coder.ExitCode() != 2 {
		t.Errorf("dump without a file = %v, want exit code 2", err)
	}
}

func TestDumpRejectsNonTrace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "not.trace")
	if err := os.WriteFile(path, []byte("plain text, not a trace"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := runDump([]string{path}, &bytes.Buffer{}, discardLogger()); err == nil {
		t.Error("dump accepted a non-trace file")
	}
}
