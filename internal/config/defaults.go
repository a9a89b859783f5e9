package config

import (
	"github.com/mrz1836/gauntlet/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
//
// Default values are chosen so that a corpus.yaml next to the working
// directory and a results/ directory beside it work out of the box.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			// File: the conventional manifest name in the working directory.
			File: constants.CorpusFileName,
		},
		Results: ResultsConfig{
			// Dir: per-unit run directories land here.
			Dir: constants.ResultsDir,

			// CheckpointFile: empty derives <dir>/checkpoint.json.
			CheckpointFile: "",
		},
		Execution: ExecutionConfig{
			// Command: empty until the user points GAUNTLET at their harness.
			Command: "",

			// Workers: a modest pool that most backends tolerate.
			Workers: constants.DefaultWorkers,

			// UnitTimeout: agent sessions run long; give them room.
			UnitTimeout: constants.DefaultUnitTimeout,
		},
		RateLimit: RateLimitConfig{
			// Command: empty disables the pre-flight probe.
			Command: "",

			// Timeout: the probe is a quick status check, not a session.
			Timeout: constants.DefaultRateLimitTimeout,
		},
	}
}
