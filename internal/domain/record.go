package domain

import (
	"time"

	"github.com/mrz1836/gauntlet/internal/constants"
)

// RunRecord captures the terminal outcome of a single unit execution.
// A record is created exactly once, when the unit finishes, and is never
// mutated afterward. A later re-execution of the same unit supersedes the
// old record in merged views; it does not edit it.
//
// Example JSON representation:
//
//	{
//	    "id": "core/file-edit/run-2",
//	    "tier": "core",
//	    "subtest": "file-edit",
//	    "run": 2,
//	    "status": "pass",
//	    "started_at": "2026-03-01T10:00:00Z",
//	    "completed_at": "2026-03-01T10:04:12Z",
//	    "duration_seconds": 252.4,
//	    "exit_code": 0,
//	    "score": 0.92,
//	    "turns": 18,
//	    "tokens_used": 41520,
//	    "worker": 3
//	}
type RunRecord struct {
	// ID is the canonical unit identifier, tier/subtest/run-N.
	ID string `json:"id"`

	// Tier, Subtest and Run repeat the unit identity as separate fields
	// so records filter cleanly without re-parsing the ID.
	Tier    string `json:"tier"`
	Subtest string `json:"subtest"`
	Run     int    `json:"run"`

	// Status is the terminal outcome: pass, fail, or error.
	Status constants.RunStatus `json:"status"`

	// StartedAt is when the unit execution began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the unit execution finished.
	CompletedAt time.Time `json:"completed_at"`

	// DurationSeconds is the wall-clock execution time.
	DurationSeconds float64 `json:"duration_seconds"`

	// ExitCode is the executor process exit code.
	ExitCode int `json:"exit_code"`

	// Score is the graded benchmark score in [0,1], when the summary
	// artifact provides one.
	Score *float64 `json:"score,omitempty"`

	// Turns counts agent conversation turns, when known.
	Turns int `json:"turns,omitempty"`

	// TokensUsed sums token usage across the run, when known.
	TokensUsed int `json:"tokens_used,omitempty"`

	// Message carries the failure or error detail, empty on pass.
	Message string `json:"message,omitempty"`

	// Worker is the 1-based worker slot that executed the unit.
	Worker int `json:"worker,omitempty"`
}

// NewRunRecord builds a record for the given unit, filling the identity fields.
func NewRunRecord(unit Unit, status constants.RunStatus) RunRecord {
	return RunRecord{
		ID:      unit.ID(),
		Tier:    unit.Tier,
		Subtest: unit.Subtest,
		Run:     unit.Run,
		Status:  status,
	}
}

// Unit reconstructs the unit identity from the record's fields.
func (r RunRecord) Unit() Unit {
	return Unit{Tier: r.Tier, Subtest: r.Subtest, Run: r.Run}
}

// Checkpoint is the durable batch progress file: a small header plus the
// append-ordered list of run records. The whole structure is rewritten on
// every append; appends are therefore O(n) in the number of records, which
// stays cheap at benchmark scale (hundreds of units).
//
// Example JSON representation:
//
//	{
//	    "schema_version": "1.0",
//	    "started_at": "2026-03-01T09:58:02Z",
//	    "config": {...},
//	    "results": [...]
//	}
type Checkpoint struct {
	// SchemaVersion is the checkpoint schema version for forward migrations.
	SchemaVersion string `json:"schema_version"`

	// StartedAt is when the first invocation created this checkpoint.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt advances on every append; it reads as "last durable
	// progress at" rather than "batch done at".
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Config echoes the invocation configuration for humans reading the
	// file. The store treats it as opaque.
	Config ConfigSnapshot `json:"config"`

	// Results is the append-ordered record list. Order is insertion
	// order; for duplicate unit IDs the later record wins.
	Results []RunRecord `json:"results"`
}

// LatestByUnit collapses the append-ordered record list into a map keyed
// by unit ID. Later records overwrite earlier ones, so re-executed units
// surface their newest outcome.
func (c Checkpoint) LatestByUnit() map[string]RunRecord {
	latest := make(map[string]RunRecord, len(c.Results))
	for _, rec := range c.Results {
		latest[rec.ID] = rec
	}
	return latest
}

// ConfigSnapshot echoes the invocation configuration into the checkpoint
// header. It exists for humans and debugging; nothing re-reads it to make
// decisions.
type ConfigSnapshot struct {
	// InvocationID uniquely identifies the invocation that last wrote
	// the checkpoint.
	InvocationID string `json:"invocation_id"`

	// CorpusFile is the manifest path the invocation ran against.
	CorpusFile string `json:"corpus_file"`

	// ResultsDir is the root directory holding per-unit run directories.
	ResultsDir string `json:"results_dir"`

	// Workers is the worker pool size.
	Workers int `json:"workers"`

	// ExecutorCommand is the configured unit execution command.
	ExecutorCommand string `json:"executor_command,omitempty"`

	// UnitTimeout is the per-unit execution timeout.
	UnitTimeout time.Duration `json:"unit_timeout,omitempty"`
}
