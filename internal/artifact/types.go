package artifact

import (
	"encoding/json"
	"fmt"
	"time"

	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// Verdict values a terminal marker may carry.
const (
	// VerdictPass means the agent met the subtest's success criteria.
	VerdictPass = "pass"

	// VerdictFail means the agent ran to completion but did not meet
	// the success criteria.
	VerdictFail = "fail"

	// VerdictError means the harness hit a terminal failure: crash,
	// timeout, or unusable agent output.
	VerdictError = "error"
)

// Result is the terminal marker (result.json) the harness writes when a
// unit finishes attempting execution. Its presence separates "finished"
// from "died midway"; its content separates pass/fail from harness error.
//
// Example JSON representation:
//
//	{
//	    "verdict": "pass",
//	    "exit_code": 0,
//	    "started_at": "2026-03-01T10:00:00Z",
//	    "completed_at": "2026-03-01T10:04:12Z",
//	    "duration_seconds": 252.4
//	}
type Result struct {
	// Verdict is pass, fail, or error.
	Verdict string `json:"verdict"`

	// ExitCode is the harness process exit code.
	ExitCode int `json:"exit_code"`

	// StartedAt is when the execution began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the execution finished.
	CompletedAt time.Time `json:"completed_at"`

	// DurationSeconds is the wall-clock execution time.
	DurationSeconds float64 `json:"duration_seconds"`

	// Score is the graded score in [0,1], when the harness grades inline.
	Score *float64 `json:"score,omitempty"`

	// Error holds the failure detail when Verdict is error.
	Error string `json:"error,omitempty"`
}

// ParseResult decodes and validates a terminal marker.
func ParseResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: result marker: %s", gauntleterrors.ErrArtifactCorrupt, err)
	}
	switch r.Verdict {
	case VerdictPass, VerdictFail, VerdictError:
	default:
		return nil, fmt.Errorf("%w: result marker: unknown verdict %q", gauntleterrors.ErrArtifactCorrupt, r.Verdict)
	}
	return &r, nil
}

// Failed reports whether the marker records a terminal execution failure.
func (r *Result) Failed() bool {
	return r.Verdict == VerdictError || r.ExitCode != 0
}

// Summary is the derived per-unit summary (summary.json): the cheap
// mechanical rollup of the raw event stream plus the recorded verdict.
//
// Example JSON representation:
//
//	{
//	    "verdict": "pass",
//	    "score": 0.92,
//	    "turns": 18,
//	    "tokens_used": 41520,
//	    "generated_at": "2026-03-01T10:04:13Z"
//	}
type Summary struct {
	// Verdict echoes the terminal marker's verdict.
	Verdict string `json:"verdict"`

	// Score is the graded score in [0,1], when one exists.
	Score *float64 `json:"score,omitempty"`

	// Turns counts assistant turns in the event stream.
	Turns int `json:"turns"`

	// TokensUsed sums input and output tokens across all events.
	TokensUsed int `json:"tokens_used"`

	// Model is the agent model reported by the event stream, if any.
	Model string `json:"model,omitempty"`

	// GeneratedAt is when this summary was derived.
	GeneratedAt time.Time `json:"generated_at"`
}

// ParseSummary decodes and validates a derived summary.
func ParseSummary(data []byte) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: summary: %s", gauntleterrors.ErrArtifactCorrupt, err)
	}
	if s.Verdict == "" {
		return nil, fmt.Errorf("%w: summary: missing verdict", gauntleterrors.ErrArtifactCorrupt)
	}
	return &s, nil
}

// Event is one line of the raw event stream. The harness emits many event
// types; only the fields the summary derivation needs are modeled, the
// rest pass through unexamined.
type Event struct {
	// Type is the event kind, e.g. "turn", "message", "tool_use", "result".
	Type string `json:"type"`

	// Role is the speaker for message events, e.g. "assistant", "user".
	Role string `json:"role,omitempty"`

	// Model is the agent model for events that report one.
	Model string `json:"model,omitempty"`

	// Usage carries token counts for events that report them.
	Usage *TokenUsage `json:"usage,omitempty"`
}

// TokenUsage is the per-event token accounting block.
type TokenUsage struct {
	// InputTokens is the prompt-side token count.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the completion-side token count.
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
