// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "golang.org/x/sys/unix"

// threadID returns the kernel thread ID of the calling goroutine's
// current OS thread. Goroutines migrate between threads, so the value
// identifies where the packet was created, not a stable goroutine.
func threadID() uint64 {
	return uint64(unix.Gettid())
}
