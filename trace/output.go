// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/glave/lib/config"
	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/transport"
)

// ErrOutputLocked is returned by OpenOutput when another producer holds
// the output file.
var ErrOutputLocked = errors.New("trace output is locked by another producer")

// OpenOutput binds a transport to the destination in output. A file is
// created (or truncated) under an exclusive advisory lock, held until
// the returned closer runs. A remote address is dialed. The caller owns
// the closer and must call it after the session ends.
func OpenOutput(ctx context.Context, output config.OutputConfig, logger *slog.Logger) (*filelike.FileLike, io.Closer, error) {
	switch {
	case output.Path != "" && output.Remote != "":
		return nil, nil, fmt.Errorf("trace output sets both path and remote")
	case output.Path != "":
		file, err := openLocked(output.Path)
		if err != nil {
			return nil, nil, err
		}
		return filelike.NewFromFile(file, logger), file, nil
	case output.Remote != "":
		network := output.Network
		if network == "" {
			network = "tcp"
		}
		dialer := &transport.Dialer{Timeout: output.DialTimeout}
		stream, err := dialer.DialContext(ctx, network, output.Remote)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to trace consumer %s %s: %w", network, output.Remote, err)
		}
		return filelike.NewFromStream(stream, logger), stream, nil
	default:
		return nil, nil, fmt.Errorf("trace output sets neither path nor remote")
	}
}

// openLocked opens path for writing and takes a non-blocking exclusive
// flock before truncating, so a second producer fails without
// clobbering the first one's trace.
func openLocked(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening trace output: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrOutputLocked)
		}
		return nil, fmt.Errorf("locking trace output %s: %w", path, err)
	}
	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("truncating trace output %s: %w", path, err)
	}
	return file, nil
}
