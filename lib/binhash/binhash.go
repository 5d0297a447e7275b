// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest.
type Digest [32]byte

// packetDomainKey is the ASCII domain name zero-padded to 32 bytes.
// Changing it invalidates the digests in every existing trace.
var packetDomainKey = [32]byte{
	'g', 'l', 'a', 'v', 'e', '.', 't', 'r', 'a', 'c', 'e', '.',
	'p', 'a', 'c', 'k', 'e', 't', 's', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// PacketHasher accumulates the digest of a packet stream. Each packet is
// length-delimited before hashing so that moving bytes across a packet
// boundary changes the digest. Not safe for concurrent use.
type PacketHasher struct {
	hasher *blake3.Hasher
	count  uint64
}

// NewPacketHasher returns an empty packet-stream hasher.
func NewPacketHasher() *PacketHasher {
	hasher, err := blake3.NewKeyed(packetDomainKey[:])
	if err != nil {
		// Only possible for a key that is not 32 bytes.
		panic("binhash: " + err.Error())
	}
	return &PacketHasher{hasher: hasher}
}

// Add hashes one packet.
func (h *PacketHasher) Add(packet []byte) {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(packet)))
	h.hasher.Write(length[:])
	h.hasher.Write(packet)
	h.count++
}

// Count returns the number of packets added.
func (h *PacketHasher) Count() uint64 {
	return h.count
}

// Sum returns the digest of the packets added so far. Adding more
// packets afterwards continues the same stream.
func (h *PacketHasher) Sum() Digest {
	var digest Digest
	copy(digest[:], h.hasher.Sum(nil))
	return digest
}

// HashFile computes the unkeyed BLAKE3 digest of the file at path,
// streaming it in chunks.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FormatDigest returns the hex encoding of digest.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a 64-character hex digest.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
