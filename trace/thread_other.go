// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package trace

import "golang.org/x/sys/unix"

// threadID falls back to the process ID where the kernel thread ID is
// not exposed.
func threadID() uint64 {
	return uint64(unix.Getpid())
}
