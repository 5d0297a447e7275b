// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package filelike

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/bureau-foundation/glave/lib/netutil"
)

// PrefixSize is the width of a frame's length prefix in bytes.
const PrefixSize = 8

// File is the file backend handle. *os.File satisfies it. Readers and
// writers that only support one direction may leave the other returning
// an error; the transport only calls what the session uses.
type File interface {
	io.Reader
	io.Writer
}

// MessageStream is the stream backend handle. Both methods block until
// all of the bytes are transferred or fail.
type MessageStream interface {
	// Send transmits all of data or returns an error.
	Send(data []byte) error

	// BlockingRecv fills all of buffer or returns an error.
	BlockingRecv(buffer []byte) error
}

// Mode identifies the backend a FileLike is bound to.
type Mode uint8

const (
	// ModeFile is a local file backend.
	ModeFile Mode = iota + 1

	// ModeSocket is a message-stream backend.
	ModeSocket
)

// String returns "file" or "socket".
func (mode Mode) String() string {
	switch mode {
	case ModeFile:
		return "file"
	case ModeSocket:
		return "socket"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(mode))
	}
}

var (
	// ErrEndOfStream is returned by reads that hit end of file or a
	// closed stream. It is logged as a warning rather than an error but
	// callers treat it as any other read failure.
	ErrEndOfStream = errors.New("end of stream")

	// ErrMessageTooLarge is returned by ReadMessage when a length
	// prefix exceeds the caller's limit.
	ErrMessageTooLarge = errors.New("message exceeds limit")
)

// CapacityError is the panic value of ReadFramed when the transmitted
// length exceeds the buffer the caller provided.
type CapacityError struct {
	Length   uint64
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("filelike: framed length %d exceeds buffer capacity %d", e.Length, e.Capacity)
}

// backend is closed over fileBackend and streamBackend.
type backend interface {
	mode() Mode
	writeRaw(data []byte) error
	readRaw(buffer []byte) error
}

// FileLike is one open transport endpoint.
type FileLike struct {
	backend backend
	logger  *slog.Logger
}

// NewFromFile binds a transport to an open file. Returns nil if file is
// nil. The file is not owned by the transport.
func NewFromFile(file File, logger *slog.Logger) *FileLike {
	if isNil(file) {
		return nil
	}
	logger = orDiscard(logger).With("backend", ModeFile.String())
	return &FileLike{
		backend: &fileBackend{file: file, logger: logger},
		logger:  logger,
	}
}

// NewFromStream binds a transport to an open message stream. Returns nil
// if stream is nil. The stream is not owned by the transport.
func NewFromStream(stream MessageStream, logger *slog.Logger) *FileLike {
	if isNil(stream) {
		return nil
	}
	logger = orDiscard(logger).With("backend", ModeSocket.String())
	return &FileLike{
		backend: &streamBackend{stream: stream, logger: logger},
		logger:  logger,
	}
}

// Mode returns the backend this transport was constructed with.
func (f *FileLike) Mode() Mode {
	return f.active().mode()
}

// File returns the file handle, or nil for a socket transport.
func (f *FileLike) File() File {
	if backend, ok := f.active().(*fileBackend); ok {
		return backend.file
	}
	return nil
}

// Stream returns the message-stream handle, or nil for a file transport.
func (f *FileLike) Stream() MessageStream {
	if backend, ok := f.active().(*streamBackend); ok {
		return backend.stream
	}
	return nil
}

// WriteRaw emits exactly len(data) bytes with no framing.
func (f *FileLike) WriteRaw(data []byte) error {
	backend := f.active()
	if len(data) == 0 {
		return nil
	}
	if err := backend.writeRaw(data); err != nil {
		return fmt.Errorf("filelike: write %d bytes: %w", len(data), err)
	}
	return nil
}

// WriteFramed writes the length prefix and then, if data is non-empty,
// the payload.
func (f *FileLike) WriteFramed(data []byte) error {
	var prefix [PrefixSize]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(data)))
	if err := f.WriteRaw(prefix[:]); err != nil {
		return fmt.Errorf("writing frame prefix: %w", err)
	}
	if len(data) > 0 {
		if err := f.WriteRaw(data); err != nil {
			return fmt.Errorf("writing frame payload: %w", err)
		}
	}
	return nil
}

// ReadRaw fills buffer exactly. End of stream is reported as an error
// wrapping ErrEndOfStream.
func (f *FileLike) ReadRaw(buffer []byte) error {
	backend := f.active()
	if len(buffer) == 0 {
		return nil
	}
	if err := backend.readRaw(buffer); err != nil {
		return fmt.Errorf("filelike: read %d bytes: %w", len(buffer), err)
	}
	return nil
}

// ReadPrefix reads one frame's length prefix.
func (f *FileLike) ReadPrefix() (uint64, error) {
	var prefix [PrefixSize]byte
	if err := f.ReadRaw(prefix[:]); err != nil {
		return 0, fmt.Errorf("reading frame prefix: %w", err)
	}
	return binary.LittleEndian.Uint64(prefix[:]), nil
}

// ReadFramed reads one framed message into buffer and returns its
// length. A zero-length message returns 0 and a nil error.
//
// The buffer must be large enough for the message; a larger transmitted
// length panics with *CapacityError. After a payload read error the
// stream position is undefined and the session must be abandoned.
func (f *FileLike) ReadFramed(buffer []byte) (int, error) {
	length, err := f.ReadPrefix()
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, nil
	}
	if length > uint64(len(buffer)) {
		panic(&CapacityError{Length: length, Capacity: len(buffer)})
	}
	if err := f.ReadRaw(buffer[:length]); err != nil {
		return 0, fmt.Errorf("reading frame payload: %w", err)
	}
	return int(length), nil
}

// ReadMessage reads one framed message into a newly allocated buffer.
// A prefix above limit returns ErrMessageTooLarge without consuming the
// payload, which leaves the stream unusable.
func (f *FileLike) ReadMessage(limit uint64) ([]byte, error) {
	length, err := f.ReadPrefix()
	if err != nil {
		return nil, err
	}
	if length > limit {
		return nil, fmt.Errorf("frame length %d, limit %d: %w", length, limit, ErrMessageTooLarge)
	}
	payload := make([]byte, length)
	if err := f.ReadRaw(payload); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}

func (f *FileLike) active() backend {
	if f == nil || f.backend == nil {
		panic("filelike: transport has no backend")
	}
	return f.backend
}

type fileBackend struct {
	file   File
	logger *slog.Logger
}

func (b *fileBackend) mode() Mode { return ModeFile }

// writeRaw issues a single Write. A short write is a failure.
func (b *fileBackend) writeRaw(data []byte) error {
	written, err := b.file.Write(data)
	if err != nil {
		b.logger.Error("file write failed", "length", len(data), "written", written, "error", err)
		return err
	}
	if written != len(data) {
		b.logger.Error("short file write", "length", len(data), "written", written)
		return io.ErrShortWrite
	}
	return nil
}

func (b *fileBackend) readRaw(buffer []byte) error {
	read, err := io.ReadFull(b.file, buffer)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		b.logger.Warn("reached end of file", "length", len(buffer), "read", read)
		return fmt.Errorf("%w: %w", ErrEndOfStream, err)
	}
	b.logger.Error("file read failed", "length", len(buffer), "read", read, "error", err)
	return err
}

type streamBackend struct {
	stream MessageStream
	logger *slog.Logger
}

func (b *streamBackend) mode() Mode { return ModeSocket }

func (b *streamBackend) writeRaw(data []byte) error {
	if err := b.stream.Send(data); err != nil {
		b.logger.Error("stream send failed", "length", len(data), "error", err)
		return err
	}
	return nil
}

func (b *streamBackend) readRaw(buffer []byte) error {
	err := b.stream.BlockingRecv(buffer)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || netutil.IsExpectedCloseError(err) {
		b.logger.Warn("stream closed by peer", "length", len(buffer))
		return fmt.Errorf("%w: %w", ErrEndOfStream, err)
	}
	b.logger.Error("stream receive failed", "length", len(buffer), "error", err)
	return err
}

// isNil reports whether handle is a nil interface or an interface
// holding a nil pointer (a closed-over *os.File(nil) is still absent).
func isNil(handle any) bool {
	if handle == nil {
		return true
	}
	value := reflect.ValueOf(handle)
	switch value.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return value.IsNil()
	}
	return false
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
