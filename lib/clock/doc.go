// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source for packet timestamps.
//
// The tracer stamps four times into every packet header. Production
// code injects [Real]; tests inject [Fake] and step it with Advance so
// header timestamps are exact values rather than ranges.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	tracer, err := trace.Begin(out, trace.Options{Clock: c})
//	c.Advance(time.Millisecond)
package clock
