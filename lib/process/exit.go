// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with ExitCode(err).
// Use it in main() for errors from run().
func Fatal(err error) {
	report(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// ExitCode returns the code carried by err through an
// ExitCode() int method anywhere in its chain, 0 for nil, and 1
// otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
