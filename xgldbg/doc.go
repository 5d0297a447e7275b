// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package xgldbg captures and replays the XGL debug entry points.
//
// Nine entry points are covered: validation level, message callback
// registration and removal, message filters, object tags, global and
// per-device debug options, and command-buffer debug markers. Each is a
// method of [Driver].
//
// [Hooks] sits between the application and the real driver. Every call
// is forwarded to the real implementation and recorded as one packet:
// arguments and result in a fixed body, variable-length arguments (tag
// blobs, option data, marker strings) in trailing buffers added with
// the two-phase AddBuffer / FinalizeBufferAddress protocol.
//
// The real implementation is a [RealTable], populated once by
// [Resolve] and read-only afterwards. Entries the lookup could not
// provide stay unresolved and answer [ResultErrorUnavailable] (or do
// nothing, for the entry points without a result).
//
// [Replay] decodes a recorded packet and issues the same call against
// another Driver, reporting a [*ResultMismatchError] when the result
// differs from the recorded one. [Describe] renders a packet as one
// line for trace dumps.
package xgldbg
