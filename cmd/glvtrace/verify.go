// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/glave/lib/binhash"
	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/trace"
	"github.com/bureau-foundation/glave/xgldbg"
)

// errFileDigest reports a trace file whose BLAKE3 digest differs from
// the one given with --digest.
var errFileDigest = errors.New("file digest mismatch")

// runVerify reads the whole session, replays every call against a null
// driver and checks the trailer. Any failure is a non-zero exit.
func runVerify(args []string, stdout io.Writer, logger *slog.Logger) error {
	flagSet := newFlagSet("verify", "[--digest hex] <trace>")
	expectedDigest := flagSet.String("digest", "", "expected BLAKE3 digest of the whole trace file, in hex")
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return &exitError{code: 2, err: errors.New("verify takes exactly one trace file")}
	}
	path := flagSet.Arg(0)

	var want *binhash.Digest
	if *expectedDigest != "" {
		parsed, err := binhash.ParseDigest(*expectedDigest)
		if err != nil {
			return &exitError{code: 2, err: fmt.Errorf("--digest: %w", err)}
		}
		want = &parsed
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := trace.Open(filelike.NewFromFile(file, logger), trace.ReaderOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	driver := xgldbg.TableFromDriver(xgldbg.NullDriver{})
	var mismatches []error
	for {
		view, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := xgldbg.Replay(view, driver); err != nil {
			var mismatch *xgldbg.ResultMismatchError
			if !errors.As(err, &mismatch) {
				return fmt.Errorf("%s: %w", path, err)
			}
			logger.Warn("replayed result differs", "packet", mismatch.PacketIndex, "entry_point", mismatch.EntryPoint,
				"recorded", mismatch.Recorded, "replayed", mismatch.Replayed)
			mismatches = append(mismatches, err)
		}
	}

	fileDigest, err := binhash.HashFile(path)
	if err != nil {
		return err
	}
	trailer := reader.Trailer()
	fmt.Fprintf(stdout, "%s: %d packets, packet digest %x, file blake3 %s\n",
		path, trailer.PacketCount, trailer.Digest, binhash.FormatDigest(fileDigest))
	if want != nil && *want != fileDigest {
		return fmt.Errorf("%s: blake3 %s, expected %s: %w",
			path, binhash.FormatDigest(fileDigest), binhash.FormatDigest(*want), errFileDigest)
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d replayed calls returned a different result: %w", len(mismatches), errors.Join(mismatches...))
	}
	return nil
}
