// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

// Payload returns size bytes derived from seed. The same arguments
// always produce the same bytes; different seeds differ at byte 0.
func Payload(size int, seed int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(seed*31 + i*7 + i/251)
	}
	return data
}
