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
	"github.com/bureau-foundation/glave/trace"
	"github.com/bureau-foundation/glave/xgldbg"
)

type demoFlags struct {
	configPath  string
	output      string
	remote      string
	network     string
	compression string
	tracerID    uint32
	calls       int
}

func runDemo(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	var flags demoFlags
	flagSet := newFlagSet("demo", "[flags]")
	flagSet.StringVar(&flags.configPath, "config", "", "YAML config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&flags.output, "output", "", "write the trace to this file")
	flagSet.StringVar(&flags.remote, "remote", "", "stream the trace to a receiver at this address")
	flagSet.StringVar(&flags.network, "network", "", "network for --remote: tcp or unix")
	flagSet.StringVar(&flags.compression, "compression", "", "packet compression: none, lz4 or zstd")
	flagSet.Uint32Var(&flags.tracerID, "tracer-id", 0, "tracer ID stamped into packets")
	flagSet.IntVar(&flags.calls, "calls", 1, "number of times to run the call sequence")
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if flags.calls < 0 {
		return fmt.Errorf("--calls must not be negative")
	}

	cfg, err := demoConfig(&flags, flagSet.Changed("tracer-id"))
	if err != nil {
		return err
	}
	compression, err := cfg.CompressionTag()
	if err != nil {
		return err
	}

	out, closer, err := trace.OpenOutput(ctx, cfg.Output, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	tracer, err := trace.Begin(out, trace.Options{
		TracerID:    cfg.TracerID,
		Compression: compression,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if err := tracer.Message(slog.LevelInfo, "glvtrace demo capture"); err != nil {
		return err
	}

	hooks := xgldbg.NewHooks(tracer, xgldbg.TableFromDriver(xgldbg.NullDriver{}))
	for iteration := range flags.calls {
		if err := ctx.Err(); err != nil {
			return err
		}
		scriptedCalls(hooks, iteration)
	}
	if err := hooks.Err(); err != nil {
		return fmt.Errorf("capturing calls: %w", err)
	}
	if err := tracer.End(); err != nil {
		return err
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("closing trace output: %w", err)
	}

	destination := cfg.Output.Path
	if destination == "" {
		destination = cfg.Output.Network + "://" + cfg.Output.Remote
	}
	fmt.Fprintf(stdout, "captured %d call sequences to %s\n", flags.calls, destination)
	return nil
}

// demoConfig loads the config file, if any, and applies flag overrides.
func demoConfig(flags *demoFlags, tracerIDSet bool) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if flags.output != "" && flags.remote != "" {
		return nil, errors.New("--output and --remote are mutually exclusive")
	}
	if flags.output != "" {
		cfg.Output.Path, cfg.Output.Remote = flags.output, ""
	}
	if flags.remote != "" {
		cfg.Output.Path, cfg.Output.Remote = "", flags.remote
	}
	if flags.network != "" {
		cfg.Output.Network = flags.network
	}
	if flags.compression != "" {
		cfg.Compression = flags.compression
	}
	if tracerIDSet {
		cfg.TracerID = flags.tracerID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// scriptedCalls drives every debug entry point once, with handles and
// payloads derived from iteration.
func scriptedCalls(driver xgldbg.Driver, iteration int) {
	device := xgldbg.Device(0x1000 + iteration)
	cmdBuffer := xgldbg.CmdBuffer(0x2000 + iteration)
	callback := xgldbg.Callback(0x3000 + iteration)

	driver.DbgSetValidationLevel(device, xgldbg.ValidationLevel(iteration%5))
	driver.DbgRegisterMsgCallback(callback, uint64(iteration))
	driver.DbgSetMessageFilter(device, int32(iteration), xgldbg.MsgFilterRepeated)
	driver.DbgSetObjectTag(xgldbg.BaseObject(0x4000+iteration), []byte(fmt.Sprintf("object-%d", iteration)))
	driver.DbgSetGlobalOption(xgldbg.GlobalOption(iteration%3), []byte{byte(iteration), 0, 0, 0})
	driver.DbgSetDeviceOption(device, xgldbg.DeviceOption(1), make([]byte, 64))
	driver.CmdDbgMarkerBegin(cmdBuffer, fmt.Sprintf("frame %d", iteration))
	driver.CmdDbgMarkerEnd(cmdBuffer)
	driver.DbgUnregisterMsgCallback(callback)
}
