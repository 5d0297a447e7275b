// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/glave/lib/config"
	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/trace"
	"github.com/bureau-foundation/glave/transport"
)

// teeStream copies every byte received from stream to record, so the
// recorded file is the session exactly as it arrived.
type teeStream struct {
	stream filelike.MessageStream
	record io.Writer
}

func (t *teeStream) Send(data []byte) error {
	return t.stream.Send(data)
}

func (t *teeStream) BlockingRecv(buffer []byte) error {
	if err := t.stream.BlockingRecv(buffer); err != nil {
		return err
	}
	if _, err := t.record.Write(buffer); err != nil {
		return fmt.Errorf("recording received bytes: %w", err)
	}
	return nil
}

// receiveOptions are the parsed receive flags.
type receiveOptions struct {
	listen        string
	network       string
	output        string
	maxPacketSize uint64
}

func runReceive(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	var options receiveOptions
	flagSet := newFlagSet("receive", "--listen addr --output path [flags]")
	flagSet.StringVar(&options.listen, "listen", "", "address to accept one producer on (host:port or socket path)")
	flagSet.StringVar(&options.network, "network", "tcp", "listen network: tcp or unix")
	flagSet.StringVar(&options.output, "output", "", "file to record the session to")
	flagSet.Uint64Var(&options.maxPacketSize, "max-packet-size", trace.DefaultMaxPacketSize, "largest accepted packet in bytes")
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if options.listen == "" || options.output == "" {
		return &exitError{code: 2, err: errors.New("--listen and --output are required")}
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	return receive(ctx, options, stdout, logger, nil)
}

// partialSuffix is appended to the recording of a session that did not
// verify, so the output path only ever holds complete sessions.
const partialSuffix = ".partial"

// receive accepts one producer and records its session. ready, if not
// nil, is called with the listening address before accepting.
func receive(ctx context.Context, options receiveOptions, stdout io.Writer, logger *slog.Logger, ready func(address string)) (err error) {
	recording, closer, err := trace.OpenOutput(ctx, config.OutputConfig{Path: options.output}, logger)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer func() {
		if err == nil {
			return
		}
		partial := options.output + partialSuffix
		if renameErr := os.Rename(options.output, partial); renameErr != nil {
			logger.Error("moving aside failed recording", "path", options.output, "error", renameErr)
			return
		}
		logger.Warn("session failed, recording moved aside", "path", partial)
	}()

	listener, err := transport.Listen(options.network, options.listen)
	if err != nil {
		return fmt.Errorf("listening on %s %s: %w", options.network, options.listen, err)
	}
	defer listener.Close()
	logger.Info("waiting for trace producer", "network", options.network, "address", listener.Address())
	if ready != nil {
		ready(listener.Address())
	}

	stream, err := listener.Accept(ctx)
	if err != nil {
		return fmt.Errorf("accepting producer: %w", err)
	}
	defer stream.Close()
	logger.Info("producer connected", "remote", stream.RemoteAddress())

	in := filelike.NewFromStream(&teeStream{stream: stream, record: recording.File()}, logger)
	reader, err := trace.Open(in, trace.ReaderOptions{MaxPacketSize: options.maxPacketSize, Logger: logger})
	if err != nil {
		return err
	}
	packets := 0
	for {
		_, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("after %d packets: %w", packets, err)
		}
		packets++
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", options.output, err)
	}

	header := reader.Header()
	fmt.Fprintf(stdout, "received %d packets from tracer %d (pid %d) into %s\n",
		packets, header.TracerID, header.ProducerPID, options.output)
	return nil
}
