// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short temporary directory for unix sockets,
// whose paths are limited to 108 bytes and so cannot live under a
// deeply nested t.TempDir().
//
// [RequireReceive] reads one value from a channel or fails the test
// after a timeout. It is the only place tests wait on wall-clock time.
//
// [Payload] generates deterministic payload bytes so that writer and
// reader sides of a transport test agree without sharing state.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
