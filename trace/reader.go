// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/bureau-foundation/glave/lib/binhash"
	"github.com/bureau-foundation/glave/lib/codec"
	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/lib/tracepacket"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// MaxPacketSize bounds a single uncompressed packet. Zero means
	// DefaultMaxPacketSize.
	MaxPacketSize uint64

	Logger *slog.Logger
}

// Reader is the consumer side of a capture session.
type Reader struct {
	in            *filelike.FileLike
	maxPacketSize uint64
	logger        *slog.Logger

	header    SessionHeader
	trailer   *SessionTrailer
	terminate *tracepacket.View

	hasher      *binhash.PacketHasher
	counts      map[uint32]uint64
	lastIndex   uint64
	sawPacket   bool
	compression map[codec.CompressionTag]uint64
	err         error
}

// Open validates the BeginCapture checkpoint and session header.
func Open(in *filelike.FileLike, options ReaderOptions) (*Reader, error) {
	if in == nil {
		return nil, fmt.Errorf("trace: nil transport")
	}
	reader := &Reader{
		in:            in,
		maxPacketSize: options.MaxPacketSize,
		logger:        options.Logger,
		hasher:        binhash.NewPacketHasher(),
		counts:        make(map[uint32]uint64),
		compression:   make(map[codec.CompressionTag]uint64),
	}
	if reader.maxPacketSize == 0 {
		reader.maxPacketSize = DefaultMaxPacketSize
	}
	if reader.logger == nil {
		reader.logger = slog.New(slog.DiscardHandler)
	}

	if err := BeginCapture.Read(in); err != nil {
		return nil, fmt.Errorf("reading BeginCapture: %w", err)
	}
	encoded, err := in.ReadMessage(maxMetadataSize)
	if err != nil {
		return nil, fmt.Errorf("reading session header: %w", err)
	}
	if err := codec.Unmarshal(encoded, &reader.header); err != nil {
		return nil, fmt.Errorf("decoding session header: %w: %w", ErrBadHeader, err)
	}
	if err := reader.header.check(); err != nil {
		return nil, err
	}
	reader.logger.Debug("trace session opened",
		"tracer_id", reader.header.TracerID,
		"producer_pid", reader.header.ProducerPID,
		"compression", reader.header.Compression,
	)
	return reader, nil
}

func (h *SessionHeader) check() error {
	if h.Magic != Magic {
		return fmt.Errorf("magic %q: %w", h.Magic, ErrBadHeader)
	}
	if h.Version != FormatVersion {
		return fmt.Errorf("format version %d, want %d: %w", h.Version, FormatVersion, ErrBadHeader)
	}
	if h.PrefixSize != filelike.PrefixSize {
		return fmt.Errorf("prefix size %d, want %d: %w", h.PrefixSize, filelike.PrefixSize, ErrBadHeader)
	}
	return nil
}

// Header returns the session header.
func (r *Reader) Header() SessionHeader {
	return r.header
}

// Next returns the next packet. After the terminate-process packet it
// validates the EndCapture checkpoint and the trailer, and returns
// io.EOF if the session is intact. Errors are sticky.
func (r *Reader) Next() (*tracepacket.View, error) {
	if r.err != nil {
		return nil, r.err
	}
	view, err := r.next()
	if err != nil {
		r.err = err
		return nil, err
	}
	return view, nil
}

func (r *Reader) next() (*tracepacket.View, error) {
	// A stored packet is never larger than the packet itself: packets
	// that do not compress are stored uncompressed.
	envelope, err := r.in.ReadMessage(r.maxPacketSize + codec.EnvelopeHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("reading packet: %w", err)
	}
	raw, tag, err := codec.DecodePacket(envelope, r.maxPacketSize)
	if errors.Is(err, codec.ErrPacketTooLarge) {
		return nil, fmt.Errorf("%w: %w", filelike.ErrMessageTooLarge, err)
	}
	if err != nil {
		return nil, err
	}
	view, err := tracepacket.Decode(raw)
	if err != nil {
		return nil, err
	}
	if r.sawPacket && view.Header.GlobalPacketIndex <= r.lastIndex {
		return nil, fmt.Errorf("packet index %d after %d: %w", view.Header.GlobalPacketIndex, r.lastIndex, ErrPacketOrder)
	}
	r.sawPacket = true
	r.lastIndex = view.Header.GlobalPacketIndex

	if view.Header.PacketID == tracepacket.PacketIDTerminateProcess {
		r.terminate = view
		if err := r.finish(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	r.hasher.Add(raw)
	r.counts[view.Header.PacketID]++
	r.compression[tag]++
	return view, nil
}

func (r *Reader) finish() error {
	if err := EndCapture.Read(r.in); err != nil {
		return fmt.Errorf("reading EndCapture: %w", err)
	}
	encoded, err := r.in.ReadMessage(maxMetadataSize)
	if err != nil {
		return fmt.Errorf("reading session trailer: %w", err)
	}
	var trailer SessionTrailer
	if err := codec.Unmarshal(encoded, &trailer); err != nil {
		return fmt.Errorf("decoding session trailer: %w", err)
	}

	if trailer.PacketCount != r.hasher.Count() {
		return fmt.Errorf("read %d packets, trailer says %d: %w", r.hasher.Count(), trailer.PacketCount, ErrCountMismatch)
	}
	if !maps.Equal(trailer.PacketsByID, r.counts) {
		return fmt.Errorf("per-ID packet counts differ from trailer: %w", ErrCountMismatch)
	}
	digest := r.hasher.Sum()
	if !bytes.Equal(trailer.Digest, digest[:]) {
		return fmt.Errorf("computed %s, trailer has %x: %w", binhash.FormatDigest(digest), trailer.Digest, ErrDigestMismatch)
	}
	r.trailer = &trailer
	r.logger.Debug("trace session verified",
		"packets", trailer.PacketCount,
		"digest", binhash.FormatDigest(digest),
	)
	return nil
}

// Trailer returns the verified trailer, or nil until Next has returned
// io.EOF.
func (r *Reader) Trailer() *SessionTrailer {
	return r.trailer
}

// Terminate returns the terminate-process packet, or nil until Next has
// reached it.
func (r *Reader) Terminate() *tracepacket.View {
	return r.terminate
}

// CompressionCounts returns how many packets were stored with each
// compression tag so far.
func (r *Reader) CompressionCounts() map[codec.CompressionTag]uint64 {
	return maps.Clone(r.compression)
}
