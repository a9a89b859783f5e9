// Package errors provides centralized error handling for GAUNTLET.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import (
	"errors"
	"time"
)

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigNotFound indicates that the configuration file was not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalidCorpus indicates invalid corpus configuration.
	ErrConfigInvalidCorpus = errors.New("invalid corpus configuration")

	// ErrConfigInvalidResults indicates invalid results configuration.
	ErrConfigInvalidResults = errors.New("invalid results configuration")

	// ErrConfigInvalidExecution indicates invalid execution configuration.
	ErrConfigInvalidExecution = errors.New("invalid execution configuration")

	// ErrConfigInvalidRateLimit indicates invalid rate limit configuration.
	ErrConfigInvalidRateLimit = errors.New("invalid rate limit configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidDuration indicates that a duration format is invalid.
	ErrInvalidDuration = errors.New("invalid duration format")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrConflictingFlags indicates that mutually exclusive flags were specified.
	ErrConflictingFlags = errors.New("conflicting flags specified")

	// ErrCorpusNotFound indicates that the corpus manifest file was not found.
	ErrCorpusNotFound = errors.New("corpus manifest not found")

	// ErrCorpusInvalid indicates that the corpus manifest failed validation.
	ErrCorpusInvalid = errors.New("invalid corpus manifest")

	// ErrDuplicateUnit indicates that the corpus expands to the same unit twice.
	ErrDuplicateUnit = errors.New("duplicate unit in corpus")

	// ErrInvalidUnitID indicates a unit identifier that does not parse as
	// tier/subtest/run-N.
	ErrInvalidUnitID = errors.New("invalid unit id")

	// ErrInvalidRunState indicates an unknown run state name.
	ErrInvalidRunState = errors.New("invalid run state")

	// ErrInvalidRunStatus indicates an unknown run status value.
	ErrInvalidRunStatus = errors.New("invalid run status")

	// ErrPathTraversal indicates an attempt to use path traversal in a
	// tier or subtest name.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrCheckpointWrite indicates that the checkpoint file could not be
	// durably written.
	ErrCheckpointWrite = errors.New("checkpoint write failed")

	// ErrStoreClosed indicates an operation on a closed checkpoint store.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrResultsLocked indicates another invocation holds the lock on the
	// results tree this command wants to write.
	ErrResultsLocked = errors.New("results directory locked by another invocation")

	// ErrArtifactNotFound indicates the requested artifact file was not found.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactCorrupt indicates an artifact file exists but cannot be parsed.
	ErrArtifactCorrupt = errors.New("artifact corrupt")

	// ErrExecutorNotConfigured indicates that no executor command is configured.
	ErrExecutorNotConfigured = errors.New("executor command not configured")

	// ErrCommandNotConfigured indicates a subprocess helper was built
	// with an empty command string.
	ErrCommandNotConfigured = errors.New("command not configured")

	// ErrCommandFailed indicates that a command execution failed.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates a command exceeded its timeout duration.
	ErrCommandTimeout = errors.New("command timeout exceeded")

	// ErrRateLimited indicates the execution backend reported an active
	// rate limit. Commands exit with code 2 when this error is returned.
	ErrRateLimited = errors.New("rate limited")

	// ErrInterrupted indicates the batch was stopped by SIGINT or SIGTERM.
	// Commands exit with code 130 when this error is returned.
	ErrInterrupted = errors.New("interrupted")

	// ErrBatchIncomplete indicates the batch finished but one or more units
	// ended in an error record or never produced a record.
	ErrBatchIncomplete = errors.New("batch incomplete")

	// ErrAlreadyReported indicates a command already rendered the error to
	// the user. Commands return it wrapped around the original cause so
	// cobra's own error printing can be silenced while the exit code still
	// derives from the underlying error.
	ErrAlreadyReported = errors.New("error already reported")
)

// RateLimitedError wraps ErrRateLimited with the reset time reported by the
// execution backend. Commands map it to exit code 2.
type RateLimitedError struct {
	// Message is the backend's human-readable description of the limit.
	Message string
	// ResetAt is when the limit is expected to lift, if the backend knows.
	ResetAt *time.Time
}

// NewRateLimitedError builds a RateLimitedError from the backend's report.
func NewRateLimitedError(message string, resetAt *time.Time) *RateLimitedError {
	return &RateLimitedError{Message: message, ResetAt: resetAt}
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.Message == "" {
		return ErrRateLimited.Error()
	}
	return "rate limited: " + e.Message
}

// Unwrap returns ErrRateLimited so errors.Is checks keep working.
func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// IsRateLimited checks if an error should result in exit code 2.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
