// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/glave/lib/codec"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "GLVTRACE_CONFIG"

// Config is the capture configuration.
type Config struct {
	// Output selects where the trace goes.
	Output OutputConfig `yaml:"output"`

	// Compression is the preferred per-packet compression: none, lz4
	// or zstd.
	Compression string `yaml:"compression"`

	// TracerID is stamped into every packet header and the session
	// header.
	TracerID uint32 `yaml:"tracer_id"`

	// MaxPacketSize bounds a single framed packet on replay. Larger
	// prefixes are treated as stream corruption.
	MaxPacketSize uint64 `yaml:"max_packet_size"`
}

// OutputConfig selects the transport backend.
type OutputConfig struct {
	// Path writes the trace to a local file.
	Path string `yaml:"path"`

	// Remote streams the trace to a consumer listening at this address.
	Remote string `yaml:"remote"`

	// Network is the network for Remote: tcp or unix.
	Network string `yaml:"network"`

	// DialTimeout bounds connection establishment for Remote.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Default returns a configuration with defaults for everything except
// the output destination.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Network:     "tcp",
			DialTimeout: 10 * time.Second,
		},
		Compression:   codec.CompressionNone.String(),
		TracerID:      1,
		MaxPacketSize: 64 << 20,
	}
}

// Load loads the file named by GLVTRACE_CONFIG. There is no fallback
// when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a glvtrace YAML config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults, expands
// variables, and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// CompressionTag returns the parsed Compression field.
func (c *Config) CompressionTag() (codec.CompressionTag, error) {
	return codec.ParseCompressionTag(c.Compression)
}

// Validate checks the configuration for errors and reports all of them.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Output.Path == "" && c.Output.Remote == "":
		errs = append(errs, errors.New("one of output.path or output.remote is required"))
	case c.Output.Path != "" && c.Output.Remote != "":
		errs = append(errs, errors.New("output.path and output.remote are mutually exclusive"))
	}

	if c.Output.Remote != "" && c.Output.Network != "tcp" && c.Output.Network != "unix" {
		errs = append(errs, fmt.Errorf("output.network must be tcp or unix, got %q", c.Output.Network))
	}

	if c.Output.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("output.dial_timeout must not be negative, got %v", c.Output.DialTimeout))
	}

	if _, err := c.CompressionTag(); err != nil {
		errs = append(errs, fmt.Errorf("compression: %w", err))
	}

	if c.MaxPacketSize == 0 {
		errs = append(errs, errors.New("max_packet_size must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) expandVariables() {
	c.Output.Path = expandVars(c.Output.Path)
	c.Output.Remote = expandVars(c.Output.Remote)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
