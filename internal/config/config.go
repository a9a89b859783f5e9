// Package config provides configuration management for GAUNTLET with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (GAUNTLET_* prefix)
//  3. Project config (.gauntlet/config.yaml)
//  4. Global config (~/.gauntlet/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import (
	"path/filepath"
	"time"

	"github.com/mrz1836/gauntlet/internal/constants"
)

// Config is the root configuration structure for GAUNTLET.
// It contains all configuration sections for the application.
type Config struct {
	// Corpus contains settings for locating and reading the benchmark corpus.
	Corpus CorpusConfig `yaml:"corpus" mapstructure:"corpus"`

	// Results contains settings for the results directory and checkpoint file.
	Results ResultsConfig `yaml:"results" mapstructure:"results"`

	// Execution contains settings for running benchmark units.
	Execution ExecutionConfig `yaml:"execution" mapstructure:"execution"`

	// RateLimit contains settings for the pre-flight rate limit probe.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CorpusConfig contains settings for the benchmark corpus manifest.
type CorpusConfig struct {
	// File is the path to the YAML manifest that enumerates the corpus.
	// Relative paths are resolved against the working directory.
	// Default: "corpus.yaml"
	File string `yaml:"file" mapstructure:"file"`
}

// ResultsConfig contains settings for where batch output lands on disk.
type ResultsConfig struct {
	// Dir is the root directory holding per-unit run directories, worker
	// logs, and (by default) the checkpoint file.
	// Default: "results"
	Dir string `yaml:"dir" mapstructure:"dir"`

	// CheckpointFile is an explicit path for the checkpoint file.
	// If empty, the checkpoint lives at <dir>/checkpoint.json.
	// Default: "" (derived from Dir)
	CheckpointFile string `yaml:"checkpoint_file,omitempty" mapstructure:"checkpoint_file"`
}

// ExecutionConfig contains settings for running benchmark units.
// These settings control how GAUNTLET shells out to the agent harness.
type ExecutionConfig struct {
	// Command is the shell command that executes a single unit. It runs
	// via "sh -c" with the unit identity exposed through GAUNTLET_*
	// environment variables and the run directory as working directory.
	// Empty means no executor is configured; read-only commands still work.
	// Default: "" (must be set to run batches)
	Command string `yaml:"command" mapstructure:"command"`

	// Workers is the number of units executed concurrently.
	// Default: 4, Valid range: 1-32
	Workers int `yaml:"workers" mapstructure:"workers"`

	// UnitTimeout is the maximum duration for a single unit execution.
	// Agent sessions routinely run for many minutes.
	// Default: 30 minutes
	UnitTimeout time.Duration `yaml:"unit_timeout" mapstructure:"unit_timeout"`
}

// RateLimitConfig contains settings for the pre-flight rate limit probe.
// The probe runs once per invocation before any unit is scheduled.
type RateLimitConfig struct {
	// Command is the shell command that reports backend rate limit status
	// as JSON on stdout. Empty means the probe is skipped and the batch
	// always proceeds.
	// Default: "" (probe disabled)
	Command string `yaml:"command,omitempty" mapstructure:"command"`

	// Timeout is the maximum duration for the probe command.
	// Default: 30 seconds
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CheckpointPath returns the effective checkpoint file path: the explicit
// CheckpointFile when set, otherwise checkpoint.json inside the results
// directory.
func (c *Config) CheckpointPath() string {
	if c.Results.CheckpointFile != "" {
		return c.Results.CheckpointFile
	}
	return filepath.Join(c.Results.Dir, constants.CheckpointFileName)
}

// LockPath returns the invocation lock file path, beside the effective
// checkpoint file.
func (c *Config) LockPath() string {
	return c.CheckpointPath() + ".lock"
}
