// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config loads the YAML document that describes one fuzzing
// worker's storage, limits, and executor wiring.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
)

// Config is the fully validated, defaulted configuration one Driver is
// built from.
type Config struct {
	CorpusDir    string `yaml:"corpus_dir"`
	SolutionsDir string `yaml:"solutions_dir"`

	MaxInputSize int           `yaml:"max_input_size"`
	RunTimeout   time.Duration `yaml:"run_timeout"`
	Seed         int64         `yaml:"seed"`

	TokenFiles []string `yaml:"token_files"`

	Asan AsanConfig `yaml:"asan"`

	DedupThreshold int `yaml:"dedup_threshold"`

	Executor ExecutorConfig `yaml:"executor"`

	SnapshotPath string `yaml:"snapshot_path"`

	// MetricsAddr, when set, serves every worker's Prometheus registry
	// on this address under /metrics. Empty disables the HTTP server.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AsanConfig limits and tunes the shadow-memory allocator.
type AsanConfig struct {
	MaxAllocation      int64 `yaml:"max_allocation"`
	MaxTotalAllocation int64 `yaml:"max_total_allocation"`
	CaptureBacktraces  bool  `yaml:"capture_backtraces"`
}

// ExecutorConfig describes how the target is invoked.
type ExecutorConfig struct {
	// Command, when set, runs the target as a subprocess via
	// executor.CommandExecutor. Empty means an in-process demo harness.
	Command []string `yaml:"command"`
	// RateLimitPerSec caps executions/second; zero disables limiting.
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
}

const (
	defaultMaxInputSize = 1 << 20
	defaultRunTimeout   = 5 * time.Second
	defaultDedupDist    = 30 // TLSH distance threshold below which two solutions are the same bug
)

// Load reads, parses, defaults, and validates the YAML document at path.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, ferr.Wrap(ferr.ErrIllegalArgument, "resolve config path "+path)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, ferr.Wrap(ferr.ErrFile, "read config file "+absPath)
	}
	return Parse(data)
}

// Parse decodes, defaults, and validates a YAML document already in memory.
func Parse(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, ferr.Wrap(ferr.ErrSerialize, "parse config yaml")
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(c *Config) {
	if c.MaxInputSize == 0 {
		c.MaxInputSize = defaultMaxInputSize
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = defaultRunTimeout
	}
	if c.DedupThreshold == 0 {
		c.DedupThreshold = defaultDedupDist
	}
	if c.SnapshotPath == "" && c.CorpusDir != "" {
		c.SnapshotPath = filepath.Join(filepath.Dir(c.CorpusDir), "state.snapshot.xz")
	}
}

// Validate checks the required fields and rejects nonsensical limits.
func (c *Config) Validate() error {
	if c.CorpusDir == "" {
		return ferr.Wrap(ferr.ErrIllegalArgument, "corpus_dir is required")
	}
	if c.SolutionsDir == "" {
		return ferr.Wrap(ferr.ErrIllegalArgument, "solutions_dir is required")
	}
	if c.MaxInputSize <= 0 {
		return ferr.Wrap(ferr.ErrIllegalArgument, "max_input_size must be positive")
	}
	if c.RunTimeout <= 0 {
		return ferr.Wrap(ferr.ErrIllegalArgument, "run_timeout must be positive")
	}
	if c.Asan.MaxAllocation < 0 || c.Asan.MaxTotalAllocation < 0 {
		return ferr.Wrap(ferr.ErrIllegalArgument, "asan allocation limits must not be negative")
	}
	if c.Executor.RateLimitPerSec < 0 {
		return ferr.Wrap(ferr.ErrIllegalArgument, "executor.rate_limit_per_sec must not be negative")
	}
	return nil
}
