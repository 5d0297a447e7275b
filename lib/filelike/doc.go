// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package filelike implements the trace transport: one blocking byte
// transport contract over two interchangeable backends, a local file and
// a message stream (socket).
//
// A [FileLike] is bound to exactly one backend at construction and never
// changes mode afterwards. [NewFromFile] and [NewFromStream] return nil
// when given an absent handle, so a FileLike with both or neither backend
// cannot exist. The transport references the handle but never opens or
// closes it; lifetime belongs to the session owner.
//
// Two layers of operations exist:
//
//   - [FileLike.WriteRaw] and [FileLike.ReadRaw] move exactly len(p)
//     bytes or fail. There is no partial-completion count.
//   - [FileLike.WriteFramed] and [FileLike.ReadFramed] add a length
//     prefix: [PrefixSize] bytes, little-endian uint64, followed by the
//     payload. A zero-length message is the prefix alone.
//
// The prefix and payload of a framed write are two separate raw writes.
// A crash between them leaves a corrupt stream; that is accepted.
//
// ReadFramed panics with a [*CapacityError] when the transmitted length
// exceeds the caller's buffer. Truncating would desynchronize the stream
// silently. Replay tools that size buffers from the stream itself use
// [FileLike.ReadMessage], which returns [ErrMessageTooLarge] instead.
//
// A FileLike is not safe for concurrent use. Callers that capture from
// several goroutines serialize around it.
package filelike
