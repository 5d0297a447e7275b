// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/glave/lib/codec"
	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/trace"
	"github.com/bureau-foundation/glave/xgldbg"
)

// dumpStyles colors dump output on a terminal and is plain otherwise,
// or when NO_COLOR is set.
type dumpStyles struct {
	heading lipgloss.Style
	label   lipgloss.Style
	index   lipgloss.Style
	dim     lipgloss.Style
}

func newDumpStyles(w io.Writer) dumpStyles {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) || termenv.EnvNoColor() {
		plain := lipgloss.NewStyle()
		return dumpStyles{heading: plain, label: plain, index: plain, dim: plain}
	}
	renderer := lipgloss.NewRenderer(file, termenv.WithProfile(termenv.EnvColorProfile()))
	return dumpStyles{
		heading: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   renderer.NewStyle().Foreground(lipgloss.Color("8")).Width(14),
		index:   renderer.NewStyle().Foreground(lipgloss.Color("11")),
		dim:     renderer.NewStyle().Faint(true),
	}
}

func runDump(args []string, stdout io.Writer, logger *slog.Logger) error {
	flagSet := newFlagSet("dump", "[--hex] <trace>")
	showHex := flagSet.Bool("hex", false, "hex dump each packet body and the session header")
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return &exitError{code: 2, err: errors.New("dump takes exactly one trace file")}
	}
	path := flagSet.Arg(0)

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := trace.Open(filelike.NewFromFile(file, logger), trace.ReaderOptions{Logger: logger})
	if err != nil {
		return err
	}
	styles := newDumpStyles(stdout)

	header := reader.Header()
	fmt.Fprintln(stdout, styles.heading.Render("Session "+path))
	field := func(label, value string) {
		fmt.Fprintf(stdout, "  %s %s\n", styles.label.Render(label), value)
	}
	field("tracer", fmt.Sprint(header.TracerID))
	field("compression", header.Compression)
	field("created", time.Unix(0, header.CreatedAt).UTC().Format(time.RFC3339Nano))
	field("producer", fmt.Sprintf("pid %d, %s", header.ProducerPID, header.ProducerVersion))
	if *showHex {
		encoded, err := codec.Marshal(header)
		if err != nil {
			return err
		}
		diagnostic, err := codec.Diagnose(encoded)
		if err != nil {
			return err
		}
		field("header cbor", diagnostic)
	}

	fmt.Fprintln(stdout, styles.heading.Render("Packets"))
	var readErr error
	for {
		view, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		description, err := xgldbg.Describe(view)
		if err != nil {
			description = "undecodable: " + err.Error()
		}
		call := time.Duration(view.Header.EntrypointEndTime - view.Header.EntrypointBeginTime)
		fmt.Fprintf(stdout, "  %s %s %s\n",
			styles.index.Render(fmt.Sprintf("#%-5d", view.Header.GlobalPacketIndex)),
			styles.dim.Render(fmt.Sprintf("tid %-7d %9s", view.Header.ThreadID, call)),
			description)
		if *showHex {
			fmt.Fprint(stdout, indent(hex.Dump(view.Body()), "        "))
		}
	}
	if readErr != nil {
		return readErr
	}

	trailer := reader.Trailer()
	fmt.Fprintln(stdout, styles.heading.Render("Trailer"))
	field("packets", fmt.Sprint(trailer.PacketCount))
	field("digest", fmt.Sprintf("%x", trailer.Digest))
	field("ended", time.Unix(0, trailer.EndedAt).UTC().Format(time.RFC3339Nano))
	for _, id := range slices.Sorted(maps.Keys(trailer.PacketsByID)) {
		field(xgldbg.Name(id), fmt.Sprint(trailer.PacketsByID[id]))
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var builder strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		builder.WriteString(prefix)
		builder.WriteString(line)
	}
	return builder.String()
}
