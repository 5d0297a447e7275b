// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// errHelpShown stops a subcommand after --help without reporting a
// failure.
var errHelpShown = errors.New("help shown")

// newFlagSet returns a flag set for a subcommand with a usage line.
func newFlagSet(name, usage string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("glvtrace "+name, pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  glvtrace %s %s\n\nFlags:\n", name, usage)
		flagSet.PrintDefaults()
	}
	return flagSet
}

// parseFlags parses args and returns errHelpShown for --help.
func parseFlags(flagSet *pflag.FlagSet, args []string) error {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelpShown
		}
		return &exitError{code: 2, err: err}
	}
	return nil
}

func ignoreHelp(err error) error {
	if errors.Is(err, errHelpShown) {
		return nil
	}
	return err
}
