package domain

import "github.com/mrz1836/gauntlet/internal/constants"

// Re-export RunStatus and RunState from constants package.
// This allows consumers to import domain types and status types together,
// providing a unified API for working with GAUNTLET domain objects.
//
// Example usage:
//
//	import "github.com/mrz1836/gauntlet/internal/domain"
//
//	rec := domain.RunRecord{
//	    Status: domain.RunStatusPass,
//	}
type (
	// RunStatus represents the terminal outcome of a unit execution.
	RunStatus = constants.RunStatus

	// RunState represents the derived on-disk condition of a unit.
	RunState = constants.RunState
)

// Re-export RunStatus constants for convenience.
// These mirror the values in internal/constants/status.go.
const (
	// RunStatusPass indicates the unit executed and the agent succeeded.
	RunStatusPass = constants.RunStatusPass

	// RunStatusFail indicates the unit executed and the agent did not
	// meet the success criteria.
	RunStatusFail = constants.RunStatusFail

	// RunStatusError indicates the execution itself failed.
	RunStatusError = constants.RunStatusError
)

// Re-export RunState constants for convenience.
const (
	// RunStateCompleted indicates every required artifact exists and parses.
	RunStateCompleted = constants.RunStateCompleted

	// RunStateResultsOnly indicates valid raw output whose summary is
	// missing or unparseable.
	RunStateResultsOnly = constants.RunStateResultsOnly

	// RunStateFailed indicates artifacts recording a terminal execution failure.
	RunStateFailed = constants.RunStateFailed

	// RunStatePartial indicates a run directory without a terminal marker.
	RunStatePartial = constants.RunStatePartial

	// RunStateMissing indicates no run directory exists for the unit.
	RunStateMissing = constants.RunStateMissing
)
