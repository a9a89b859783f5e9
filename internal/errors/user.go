package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries is the pre-built mapping of sentinel errors to their user-facing messages.
// This single source of truth ensures UserMessage and Actionable stay in sync.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Corpus & scope
	// ===================
	{
		err: ErrCorpusNotFound,
		info: ErrorInfo{
			Message: "Corpus manifest not found.",
			Action:  "Check the --corpus path or set corpus.file in .gauntlet/config.yaml.",
		},
	},
	{
		err: ErrCorpusInvalid,
		info: ErrorInfo{
			Message: "Corpus manifest failed validation.",
			Action:  "Fix the reported field in the manifest; every subtest needs a name and a positive run count.",
		},
	},
	{
		err: ErrDuplicateUnit,
		info: ErrorInfo{
			Message: "Corpus manifest expands to the same unit more than once.",
			Action:  "Remove the duplicate tier/subtest entry from the manifest.",
		},
	},
	{
		err: ErrInvalidUnitID,
		info: ErrorInfo{
			Message: "Unit identifier is not in tier/subtest/run-N form.",
			Action:  "Use identifiers like core/file-edit/run-2.",
		},
	},
	{
		err: ErrInvalidRunState,
		info: ErrorInfo{
			Message: "Unknown run state.",
			Action:  "Valid states: completed, results_only, failed, partial, missing.",
		},
	},

	// ===================
	// Checkpoint & artifacts
	// ===================
	{
		err: ErrCheckpointWrite,
		info: ErrorInfo{
			Message: "Could not durably write the checkpoint file.",
			Action:  "Check free disk space and permissions on the checkpoint directory.",
		},
	},
	{
		err: ErrResultsLocked,
		info: ErrorInfo{
			Message: "Another invocation is already writing this results directory.",
			Action:  "Wait for it to finish, or point --results-dir at a separate tree.",
		},
	},
	{
		err: ErrArtifactNotFound,
		info: ErrorInfo{
			Message: "Expected run artifact was not found on disk.",
			Action:  "Re-run the unit, or run 'gauntlet status' to see which artifacts exist.",
		},
	},
	{
		err: ErrArtifactCorrupt,
		info: ErrorInfo{
			Message: "A run artifact exists but could not be parsed.",
			Action:  "Delete the unit's run directory and re-execute it.",
		},
	},

	// ===================
	// Execution
	// ===================
	{
		err: ErrExecutorNotConfigured,
		info: ErrorInfo{
			Message: "No executor command is configured.",
			Action:  "Set execution.command in .gauntlet/config.yaml or pass --executor.",
		},
	},
	{
		err: ErrCommandTimeout,
		info: ErrorInfo{
			Message: "A unit exceeded its execution timeout.",
			Action:  "Raise --unit-timeout or investigate the hung unit's worker log.",
		},
	},
	{
		err: ErrRateLimited,
		info: ErrorInfo{
			Message: "The execution backend is rate limited; nothing was executed.",
			Action:  "Wait for the reset time, then re-run the same command to resume.",
		},
	},
	{
		err: ErrInterrupted,
		info: ErrorInfo{
			Message: "The batch was interrupted before finishing.",
			Action:  "Re-run the same command; completed units are checkpointed and will be skipped.",
		},
	},
	{
		err: ErrBatchIncomplete,
		info: ErrorInfo{
			Message: "The batch finished but some units ended in errors.",
			Action:  "Run 'gauntlet run --retry-errors' to re-execute only the error units.",
		},
	},

	// ===================
	// Configuration
	// ===================
	{
		err: ErrConfigNotFound,
		info: ErrorInfo{
			Message: "Configuration file not found.",
			Action:  "Create .gauntlet/config.yaml or rely on defaults and flags.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrConflictingFlags,
		info: ErrorInfo{
			Message: "Mutually exclusive flags were specified.",
			Action:  "Drop one of the conflicting flags and retry.",
		},
	},
}

// errorInfoMap provides O(1) lookup for direct sentinel error matches.
// Built once from errorInfoEntries during package initialization.
//
//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup performance
var errorInfoMap = buildErrorInfoMap()

// buildErrorInfoMap creates a map from the errorInfoEntries slice.
// This is called once during package init for O(1) direct lookups.
func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries O(1) direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	// Fast path: O(1) lookup for direct sentinel errors
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	// Slow path: errors.Is() for wrapped errors
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// This function maps sentinel errors to helpful, actionable messages
// that are suitable for display to end users.
//
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that are not recoverable or have no clear action, the action
// string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
