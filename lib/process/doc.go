// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler. It is
// the one place raw output goes to stderr after run() returns, when the
// structured logger may already be gone.
package process
