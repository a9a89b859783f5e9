// Package constants provides centralized constant values used throughout GAUNTLET.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// File names used by GAUNTLET for state persistence.
const (
	// CheckpointFileName is the name of the JSON file that stores durable
	// batch progress inside the results directory.
	CheckpointFileName = "checkpoint.json"

	// CorpusFileName is the default name of the YAML manifest that
	// enumerates the benchmark corpus.
	CorpusFileName = "corpus.yaml"

	// ResultFileName is the terminal marker a unit execution writes into
	// its run directory. Its presence means the execution reached its end.
	ResultFileName = "result.json"

	// RawOutputFileName is the raw event stream a unit execution produces,
	// one JSON object per line.
	RawOutputFileName = "output.jsonl"

	// SummaryFileName is the derived per-unit summary (score, turns,
	// token usage) computed from the raw output.
	SummaryFileName = "summary.json"
)

// Directory names and paths used by GAUNTLET for organizing data.
const (
	// GauntletHome is the hidden directory name where GAUNTLET stores all
	// its data. This directory is created in the user's home directory.
	GauntletHome = ".gauntlet"

	// ResultsDir is the default directory name where per-unit run
	// directories are created.
	ResultsDir = "results"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// Timeout configurations for various operations.
const (
	// DefaultUnitTimeout is the default maximum duration for a single
	// unit execution. Agent sessions routinely run for many minutes.
	DefaultUnitTimeout = 30 * time.Minute

	// DefaultRateLimitTimeout is the default maximum duration for the
	// pre-flight rate limit probe.
	DefaultRateLimitTimeout = 30 * time.Second
)

// Worker pool defaults.
const (
	// DefaultWorkers is the default number of concurrent unit executions.
	DefaultWorkers = 4

	// MaxWorkers caps the worker pool to keep the execution backend and
	// the local machine within reason.
	MaxWorkers = 32
)

// Log rotation settings shared by the CLI log and the per-worker logs.
const (
	// LogMaxSizeMB is the maximum size in megabytes of a log file before
	// it gets rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the maximum number of rotated log files to retain.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum number of days to retain rotated log
	// files.
	LogMaxAgeDays = 28
)

// Schema version constants for data migration support.
const (
	// CheckpointSchemaVersion is the current version of the checkpoint
	// JSON schema. This enables forward-compatible schema migrations.
	CheckpointSchemaVersion = "1.0"
)
