// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the message-stream backend for trace
// sessions: a [Stream] over a connected socket that satisfies
// filelike.MessageStream.
//
// A producer dials the consumer with [Dialer]; the consumer accepts
// with [Listener]. Both TCP and unix domain sockets are supported. One
// session uses one connection, written by one producer and read by one
// consumer; there is no multiplexing or handshake.
//
// Send and BlockingRecv block until every byte is transferred or the
// connection fails. Neither applies a deadline; a stalled peer stalls
// the session. Cancellation exists only while dialing and accepting.
package transport
