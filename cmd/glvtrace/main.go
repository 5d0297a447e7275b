// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// glvtrace captures, receives and inspects glave trace sessions.
//
// Subcommands:
//
//	demo     capture a scripted debug-API call sequence
//	receive  accept one producer over a socket and record its session
//	dump     print a recorded session
//	verify   replay a recorded session and check its trailer
//	version  print build information
//
// Logging goes to stderr: text on a terminal, JSON otherwise. Set
// GLVTRACE_DEBUG to any value for debug-level logs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/bureau-foundation/glave/lib/process"
	"github.com/bureau-foundation/glave/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return errUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr)
	command, rest := args[0], args[1:]
	switch command {
	case "demo":
		return ignoreHelp(runDemo(ctx, rest, os.Stdout, logger))
	case "receive":
		return ignoreHelp(runReceive(ctx, rest, os.Stdout, logger))
	case "dump":
		return ignoreHelp(runDump(rest, os.Stdout, logger))
	case "verify":
		return ignoreHelp(runVerify(rest, os.Stdout, logger))
	case "version", "--version":
		version.Print(os.Stdout, "glvtrace")
		return nil
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", command)
	}
}

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

var errUsage = &exitError{code: 2, err: errors.New("no command given")}

// newLogger logs text to a terminal and JSON otherwise, at Info, or at
// Debug when GLVTRACE_DEBUG is set.
func newLogger(output *os.File) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("GLVTRACE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(output.Fd())) {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `glvtrace: capture, receive and inspect glave trace sessions.

Usage:
  glvtrace demo [--config file] [--output path | --remote addr] [--compression none|lz4|zstd] [--calls N]
  glvtrace receive --listen addr [--network tcp|unix] --output path
  glvtrace dump [--hex] <trace>
  glvtrace verify [--digest hex] <trace>
  glvtrace version

Without --config, demo reads the file named by GLVTRACE_CONFIG if set.
Flags override the config file.

Examples:
  # Capture to a local file
  glvtrace demo --output /tmp/demo.trace --compression zstd

  # Stream to a receiver
  glvtrace receive --listen 127.0.0.1:7400 --output /tmp/remote.trace &
  glvtrace demo --remote 127.0.0.1:7400

  # Inspect and check
  glvtrace dump /tmp/demo.trace
  glvtrace verify /tmp/demo.trace

Run "glvtrace <command> --help" for command flags.
`)
}
