// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the compression applied to one packet.
// Tags are written into every packet envelope; changing the values
// breaks existing traces.
type CompressionTag uint8

const (
	// CompressionNone stores the packet as-is.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression. Cheap enough to run on
	// the capturing thread.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level. Better ratios for
	// traces dominated by large option and tag blobs.
	CompressionZstd CompressionTag = 2
)

// EnvelopeHeaderSize is the tag byte plus the uncompressed length.
const EnvelopeHeaderSize = 5

// String returns the configuration name of the tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseCompressionTag parses a tag from its configuration name. The
// empty string selects CompressionNone.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, lz4 or zstd)", name)
	}
}

// ErrBadEnvelope is returned by DecodePacket for envelopes that are
// truncated, carry an unknown tag, or decompress to the wrong length.
var ErrBadEnvelope = errors.New("bad packet envelope")

// ErrPacketTooLarge is returned by DecodePacket when the envelope claims
// an uncompressed size above the caller's limit. Nothing is allocated
// for the packet in that case.
var ErrPacketTooLarge = errors.New("packet exceeds limit")

// errIncompressible means compression did not shrink the input.
var errIncompressible = errors.New("data is incompressible")

// EncodePacket wraps packet in an envelope, compressed with preferred
// when that makes it smaller.
func EncodePacket(packet []byte, preferred CompressionTag) ([]byte, error) {
	if len(packet) > math.MaxUint32 {
		return nil, fmt.Errorf("packet of %d bytes exceeds envelope limit", len(packet))
	}
	tag := preferred
	var body []byte
	var err error
	switch preferred {
	case CompressionNone:
		body = packet
	case CompressionLZ4:
		body, err = compressLZ4(packet)
	case CompressionZstd:
		body, err = compressZstd(packet)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", preferred)
	}
	if errors.Is(err, errIncompressible) {
		tag, body, err = CompressionNone, packet, nil
	}
	if err != nil {
		return nil, err
	}

	envelope := make([]byte, EnvelopeHeaderSize+len(body))
	envelope[0] = byte(tag)
	binary.BigEndian.PutUint32(envelope[1:EnvelopeHeaderSize], uint32(len(packet)))
	copy(envelope[EnvelopeHeaderSize:], body)
	return envelope, nil
}

// DecodePacket unwraps an envelope produced by EncodePacket and returns
// the packet bytes and the tag it was stored with. The claimed
// uncompressed size is checked against limit before decompressing.
func DecodePacket(envelope []byte, limit uint64) ([]byte, CompressionTag, error) {
	if len(envelope) < EnvelopeHeaderSize {
		return nil, 0, fmt.Errorf("%d-byte envelope: %w", len(envelope), ErrBadEnvelope)
	}
	tag := CompressionTag(envelope[0])
	size := int(binary.BigEndian.Uint32(envelope[1:EnvelopeHeaderSize]))
	body := envelope[EnvelopeHeaderSize:]
	if uint64(size) > limit {
		return nil, tag, fmt.Errorf("envelope claims %d bytes, limit %d: %w", size, limit, ErrPacketTooLarge)
	}

	var packet []byte
	var err error
	switch tag {
	case CompressionNone:
		if len(body) != size {
			return nil, tag, fmt.Errorf("stored packet is %d bytes, envelope says %d: %w", len(body), size, ErrBadEnvelope)
		}
		packet = body
	case CompressionLZ4:
		packet, err = decompressLZ4(body, size)
	case CompressionZstd:
		packet, err = decompressZstd(body, size)
	default:
		return nil, tag, fmt.Errorf("compression tag %d: %w", tag, ErrBadEnvelope)
	}
	if err != nil {
		return nil, tag, fmt.Errorf("%w: %w", ErrBadEnvelope, err)
	}
	return packet, tag, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	// DecodeAll stops at cap(dst), so a frame cannot inflate past the
	// size its envelope claimed.
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}
