// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads capture configuration for glvtrace.
//
// Configuration comes from a single YAML file named by the
// GLVTRACE_CONFIG environment variable ([Load]) or a --config flag
// ([LoadFile]). There is no search path and no per-field environment
// override. ${VAR} and ${VAR:-default} patterns are expanded in the
// output path and remote address after loading.
//
// The output section mirrors the transport's backend rule: exactly one
// of output.path (file backend) and output.remote (stream backend) must
// be set. [Config.Validate] enforces it.
//
// Example:
//
//	output:
//	  remote: /run/glave/trace.sock
//	  network: unix
//	compression: lz4
//	tracer_id: 3
//
// This package depends only on lib/codec for compression names.
package config
