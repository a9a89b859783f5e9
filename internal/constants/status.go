package constants

// RunStatus represents the outcome recorded for a finished unit execution.
// Status values use snake_case for JSON serialization compatibility.
type RunStatus string

// Run status constants define the valid outcomes a RunRecord can carry.
// Pass and fail are both valid benchmark results; error means the harness
// itself failed (timeout, crash, unparseable output) and the unit is a
// candidate for --retry-errors.
const (
	// RunStatusPass indicates the unit executed and the agent succeeded.
	RunStatusPass RunStatus = "pass"

	// RunStatusFail indicates the unit executed and the agent did not
	// meet the success criteria.
	RunStatusFail RunStatus = "fail"

	// RunStatusError indicates the execution itself failed: the harness
	// crashed, timed out, or produced output that could not be parsed.
	RunStatusError RunStatus = "error"
)

// String returns the string representation of the RunStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s RunStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the known run statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPass, RunStatusFail, RunStatusError:
		return true
	default:
		return false
	}
}

// RunState represents the derived on-disk condition of a unit, computed
// fresh from its run-directory artifacts on every invocation. Checkpoint
// records do not influence it.
// State values use snake_case for JSON serialization compatibility.
type RunState string

// Run state constants define the closed set of derived states.
const (
	// RunStateCompleted indicates every required artifact exists and
	// parses: terminal marker, raw output, and summary.
	RunStateCompleted RunState = "completed"

	// RunStateResultsOnly indicates execution succeeded with valid raw
	// output, but the derived summary is missing or unparseable. The
	// unit needs summary regeneration, not re-execution.
	RunStateResultsOnly RunState = "results_only"

	// RunStateFailed indicates the unit's artifacts record a terminal
	// execution failure: non-zero exit, an error verdict, a corrupt
	// marker, or missing raw output.
	RunStateFailed RunState = "failed"

	// RunStatePartial indicates the unit's run directory exists but no
	// terminal marker was written, typically after a mid-execution crash
	// or an interrupt.
	RunStatePartial RunState = "partial"

	// RunStateMissing indicates no run directory exists for the unit.
	RunStateMissing RunState = "missing"
)

// String returns the string representation of the RunState.
// This implements fmt.Stringer for convenient logging and debugging.
func (s RunState) String() string {
	return string(s)
}

// Valid reports whether s is one of the known run states.
func (s RunState) Valid() bool {
	switch s {
	case RunStateCompleted, RunStateResultsOnly, RunStateFailed, RunStatePartial, RunStateMissing:
		return true
	default:
		return false
	}
}

// AllRunStates lists every derived state in display order.
func AllRunStates() []RunState {
	return []RunState{
		RunStateCompleted,
		RunStateResultsOnly,
		RunStateFailed,
		RunStatePartial,
		RunStateMissing,
	}
}
