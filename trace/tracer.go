// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/bureau-foundation/glave/lib/binhash"
	"github.com/bureau-foundation/glave/lib/clock"
	"github.com/bureau-foundation/glave/lib/codec"
	"github.com/bureau-foundation/glave/lib/filelike"
	"github.com/bureau-foundation/glave/lib/tracepacket"
	"github.com/bureau-foundation/glave/lib/version"
)

// Options configures a Tracer.
type Options struct {
	// TracerID is stamped into every packet header.
	TracerID uint32

	// Compression is the preferred packet compression. Packets that do
	// not shrink are stored uncompressed regardless.
	Compression codec.CompressionTag

	// Clock supplies packet timestamps. Nil means the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Tracer is the producer side of a capture session.
type Tracer struct {
	out         *filelike.FileLike
	tracerID    uint32
	compression codec.CompressionTag
	clock       clock.Clock
	logger      *slog.Logger

	mu        sync.Mutex
	nextIndex uint64
	hasher    *binhash.PacketHasher
	counts    map[uint32]uint64
	err       error
	ended     bool
}

// Begin starts a session on out: it writes the BeginCapture checkpoint
// and the session header.
func Begin(out *filelike.FileLike, options Options) (*Tracer, error) {
	if out == nil {
		return nil, fmt.Errorf("trace: nil transport")
	}
	tracer := &Tracer{
		out:         out,
		tracerID:    options.TracerID,
		compression: options.Compression,
		clock:       options.Clock,
		logger:      options.Logger,
		hasher:      binhash.NewPacketHasher(),
		counts:      make(map[uint32]uint64),
	}
	if tracer.clock == nil {
		tracer.clock = clock.Real()
	}
	if tracer.logger == nil {
		tracer.logger = slog.New(slog.DiscardHandler)
	}

	header := SessionHeader{
		Magic:           Magic,
		Version:         FormatVersion,
		TracerID:        options.TracerID,
		Compression:     options.Compression.String(),
		PrefixSize:      filelike.PrefixSize,
		CreatedAt:       tracer.clock.Now().UnixNano(),
		ProducerPID:     os.Getpid(),
		ProducerVersion: version.Info(),
	}
	encoded, err := codec.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encoding session header: %w", err)
	}
	if err := BeginCapture.Write(out); err != nil {
		return nil, fmt.Errorf("writing BeginCapture: %w", err)
	}
	if err := out.WriteFramed(encoded); err != nil {
		return nil, fmt.Errorf("writing session header: %w", err)
	}
	tracer.logger.Info("trace session started",
		"mode", out.Mode(),
		"tracer_id", options.TracerID,
		"compression", options.Compression,
	)
	return tracer, nil
}

// Announce logs that the entry point name has been intercepted.
func (t *Tracer) Announce(name string) {
	t.logger.Debug("intercepted entry point", "name", name)
}

// CreatePacket allocates a packet stamped with this tracer's ID, the
// calling thread and the creation time. Callers fill the body and
// buffers, bracket the real call with MarkEntrypointBegin and
// MarkEntrypointEnd, and emit with FinishPacket.
func (t *Tracer) CreatePacket(packetID uint32, bodySize, extraSize int) *tracepacket.Packet {
	packet := tracepacket.New(packetID, bodySize, extraSize)
	header := packet.Header()
	header.TracerID = t.tracerID
	header.ThreadID = threadID()
	now := t.clock.Now().UnixNano()
	header.TraceBeginTime = now
	header.EntrypointBeginTime = now
	return packet
}

// MarkEntrypointBegin records the time just before the real call.
func (t *Tracer) MarkEntrypointBegin(packet *tracepacket.Packet) {
	packet.Header().EntrypointBeginTime = t.clock.Now().UnixNano()
}

// MarkEntrypointEnd records the time just after the real call.
func (t *Tracer) MarkEntrypointEnd(packet *tracepacket.Packet) {
	packet.Header().EntrypointEndTime = t.clock.Now().UnixNano()
}

// FinishPacket assigns the packet its global index and end time,
// serializes it and writes it to the session.
func (t *Tracer) FinishPacket(packet *tracepacket.Packet) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usableLocked(); err != nil {
		return err
	}
	return t.emitLocked(packet)
}

// WritePacket writes an already serialized packet. The packet is
// validated but its header is written as given. Its global index must
// not be below the next index this tracer would assign.
func (t *Tracer) WritePacket(raw []byte) error {
	view, err := tracepacket.Decode(raw)
	if err != nil {
		return fmt.Errorf("trace: writing packet: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usableLocked(); err != nil {
		return err
	}
	if view.Header.GlobalPacketIndex < t.nextIndex {
		return fmt.Errorf("trace: packet index %d, next is %d: %w", view.Header.GlobalPacketIndex, t.nextIndex, ErrPacketOrder)
	}
	if err := t.writeLocked(view.Header.PacketID, raw); err != nil {
		return err
	}
	if view.Header.GlobalPacketIndex >= t.nextIndex {
		t.nextIndex = view.Header.GlobalPacketIndex + 1
	}
	return nil
}

// Err returns the first write failure, if any.
func (t *Tracer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// End writes the terminate-process packet, the EndCapture checkpoint
// and the session trailer. The transport stays open; closing it is the
// caller's job.
func (t *Tracer) End() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usableLocked(); err != nil {
		return err
	}

	terminate := t.CreatePacket(tracepacket.PacketIDTerminateProcess, 0, 0)
	if err := t.emitLocked(terminate); err != nil {
		return err
	}

	digest := t.hasher.Sum()
	trailer := SessionTrailer{
		PacketCount: t.hasher.Count(),
		Digest:      digest[:],
		PacketsByID: t.counts,
		EndedAt:     t.clock.Now().UnixNano(),
	}
	encoded, err := codec.Marshal(trailer)
	if err != nil {
		return fmt.Errorf("encoding session trailer: %w", err)
	}
	if err := EndCapture.Write(t.out); err != nil {
		t.err = fmt.Errorf("writing EndCapture: %w", err)
		return t.err
	}
	if err := t.out.WriteFramed(encoded); err != nil {
		t.err = fmt.Errorf("writing session trailer: %w", err)
		return t.err
	}
	t.ended = true
	t.logger.Info("trace session ended",
		"packets", trailer.PacketCount,
		"digest", binhash.FormatDigest(digest),
	)
	return nil
}

func (t *Tracer) usableLocked() error {
	if t.err != nil {
		return t.err
	}
	if t.ended {
		return ErrEnded
	}
	return nil
}

func (t *Tracer) emitLocked(packet *tracepacket.Packet) error {
	header := packet.Header()
	header.GlobalPacketIndex = t.nextIndex
	header.TraceEndTime = t.clock.Now().UnixNano()
	raw, err := packet.Finish()
	if err != nil {
		// Not sticky: the session itself is still intact.
		return fmt.Errorf("trace: %w", err)
	}
	if err := t.writeLocked(header.PacketID, raw); err != nil {
		return err
	}
	t.nextIndex++
	return nil
}

// writeLocked envelopes and writes raw. The terminate-process packet is
// excluded from the trailer's count and digest.
func (t *Tracer) writeLocked(packetID uint32, raw []byte) error {
	envelope, err := codec.EncodePacket(raw, t.compression)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	if err := t.out.WriteFramed(envelope); err != nil {
		t.err = fmt.Errorf("trace: writing packet %d: %w", packetID, err)
		t.logger.Error("trace write failed; session abandoned", "packet_id", packetID, "error", err)
		return t.err
	}
	if packetID != tracepacket.PacketIDTerminateProcess {
		t.hasher.Add(raw)
		t.counts[packetID]++
	}
	return nil
}
