package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gauntlet/internal/config"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/domain"
	"github.com/mrz1836/gauntlet/internal/errors"
	"github.com/mrz1836/gauntlet/internal/orchestrator"
	"github.com/mrz1836/gauntlet/internal/retry"
	"github.com/mrz1836/gauntlet/internal/scheduler"
	"github.com/mrz1836/gauntlet/internal/tui"
)

// Shared stub failures for dependency seams.
var (
	errStubLoad  = stderrors.New("config file unreadable")
	errStubBatch = stderrors.New("store directory not writable")
)

// stubBatch returns a canned orchestrator outcome so the run command can
// be exercised without a real worker pool.
type stubBatch struct {
	res *orchestrator.Result
	err error
}

func (b *stubBatch) Run(_ context.Context) (*orchestrator.Result, error) {
	return b.res, b.err
}

// batchFunc adapts a function to the unitBatch seam.
type batchFunc func(ctx context.Context) (*orchestrator.Result, error)

func (f batchFunc) Run(ctx context.Context) (*orchestrator.Result, error) {
	return f(ctx)
}

// stubRunDeps wires a fixed config and batch into the run command seams.
// The invocation lock is stubbed to a no-op so tests never touch the
// configured results path.
func stubRunDeps(cfg *config.Config, batch unitBatch, newErr error) runDeps {
	return runDeps{
		loadConfig: func(_ context.Context, _ *config.Config) (*config.Config, error) {
			return cfg, nil
		},
		lockResults: func(_ *config.Config) (func(), error) {
			return func() {}, nil
		},
		newBatch: func(_ *config.Config, _ retry.Flags, _ domain.ConfigSnapshot, _ zerolog.Logger) (unitBatch, error) {
			if newErr != nil {
				return nil, newErr
			}
			return batch, nil
		},
	}
}

// executorConfig returns defaults with a harness command set so the
// pre-flight executor check passes.
func executorConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Execution.Command = "harness run-unit"
	return cfg
}

// passingResult builds an orchestrator result where every in-scope unit
// ended with a verdict: one skipped pass carried forward, one executed
// pass, one executed fail.
func passingResult() *orchestrator.Result {
	units := []domain.Unit{
		{Tier: "core", Subtest: "file-edit", Run: 1},
		{Tier: "core", Subtest: "file-edit", Run: 2},
		{Tier: "core", Subtest: "search", Run: 1},
	}
	appended := []domain.RunRecord{
		{ID: "core/file-edit/run-2", Tier: "core", Subtest: "file-edit", Run: 2, Status: constants.RunStatusPass},
		{ID: "core/search/run-1", Tier: "core", Subtest: "search", Run: 1, Status: constants.RunStatusFail},
	}

	return &orchestrator.Result{
		CorpusSize: 3,
		Plan: retry.Plan{
			InScope:          units,
			ToExecute:        units[1:],
			SkippedCompleted: 1,
		},
		Scheduled: &scheduler.Result{Appended: appended},
		Merged: []domain.RunRecord{
			{ID: "core/file-edit/run-1", Tier: "core", Subtest: "file-edit", Run: 1, Status: constants.RunStatusPass},
			appended[0],
			appended[1],
		},
		Tally: map[constants.RunStatus]int{
			constants.RunStatusPass: 2,
			constants.RunStatusFail: 1,
		},
	}
}

func TestNewRunCmd(t *testing.T) {
	t.Parallel()

	cmd := newRunCmd()
	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, "resumes")
	assert.Contains(t, cmd.Long, "Exit codes")

	flagNames := []string{
		"fresh", "retry-errors", "tier", "subtest", "run", "state",
		"workers", "corpus", "results-dir", "checkpoint", "executor", "unit-timeout",
	}
	for _, name := range flagNames {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestParseRunStates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     []string
		want    []constants.RunState
		wantErr error
	}{
		{
			name: "no states returns nil",
			raw:  nil,
			want: nil,
		},
		{
			name: "single valid state",
			raw:  []string{"completed"},
			want: []constants.RunState{constants.RunStateCompleted},
		},
		{
			name: "multiple valid states keep order",
			raw:  []string{"missing", "partial"},
			want: []constants.RunState{constants.RunStateMissing, constants.RunStatePartial},
		},
		{
			name:    "unknown state rejected",
			raw:     []string{"bogus"},
			wantErr: errors.ErrInvalidRunState,
		},
		{
			name:    "one bad state poisons the whole list",
			raw:     []string{"completed", "done"},
			wantErr: errors.ErrInvalidRunState,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			states, err := parseRunStates(tc.raw)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, states)
		})
	}
}

func TestParseRetryFlags(t *testing.T) {
	t.Parallel()

	t.Run("fresh and retry-errors conflict", func(t *testing.T) {
		t.Parallel()

		_, err := parseRetryFlags(&runFlags{fresh: true, retryErrors: true})
		require.ErrorIs(t, err, errors.ErrConflictingFlags)
		assert.Contains(t, err.Error(), "--retry-errors")
	})

	t.Run("invalid state propagates", func(t *testing.T) {
		t.Parallel()

		_, err := parseRetryFlags(&runFlags{states: []string{"nope"}})
		require.ErrorIs(t, err, errors.ErrInvalidRunState)
	})

	t.Run("maps every scope flag", func(t *testing.T) {
		t.Parallel()

		flags := &runFlags{
			retryErrors: true,
			tiers:       []string{"core", "advanced"},
			subtests:    []string{"file-edit"},
			runs:        []int{1, 3},
			states:      []string{"missing"},
		}

		got, err := parseRetryFlags(flags)
		require.NoError(t, err)
		assert.Equal(t, retry.Flags{
			RetryErrors: true,
			Tiers:       []string{"core", "advanced"},
			Subtests:    []string{"file-edit"},
			Runs:        []int{1, 3},
			States:      []constants.RunState{constants.RunStateMissing},
		}, got)
	})
}

func TestOverridesFromFlags(t *testing.T) {
	t.Parallel()

	flags := &runFlags{
		corpusFile:  "bench/corpus.yaml",
		resultsDir:  "bench/results",
		checkpoint:  "bench/checkpoint.json",
		executor:    "harness run-unit",
		workers:     8,
		unitTimeout: 45 * time.Minute,
	}

	overrides := overridesFromFlags(flags)
	assert.Equal(t, "bench/corpus.yaml", overrides.Corpus.File)
	assert.Equal(t, "bench/results", overrides.Results.Dir)
	assert.Equal(t, "bench/checkpoint.json", overrides.Results.CheckpointFile)
	assert.Equal(t, "harness run-unit", overrides.Execution.Command)
	assert.Equal(t, 8, overrides.Execution.Workers)
	assert.Equal(t, 45*time.Minute, overrides.Execution.UnitTimeout)
}

func TestBuildRunSummary(t *testing.T) {
	t.Parallel()

	t.Run("counts from a full result", func(t *testing.T) {
		t.Parallel()

		res := passingResult()
		s := buildRunSummary("inv-9", res, 2*time.Second, "bench/results")

		assert.Equal(t, "inv-9", s.InvocationID)
		assert.Equal(t, 3, s.CorpusSize)
		assert.Equal(t, 3, s.InScope)
		assert.Equal(t, 2, s.Executed)
		assert.Equal(t, 1, s.Skipped)
		assert.Equal(t, 2, s.Passed)
		assert.Equal(t, 1, s.Failed)
		assert.Equal(t, 0, s.Errored)
		assert.Equal(t, 0, s.Unrecorded)
		assert.Equal(t, 2*time.Second, s.Elapsed)
		assert.Equal(t, "bench/results", s.ResultsDir)
	})

	t.Run("no scheduler outcome means nothing executed", func(t *testing.T) {
		t.Parallel()

		res := passingResult()
		res.Scheduled = nil

		s := buildRunSummary("inv-9", res, time.Second, "bench/results")
		assert.Equal(t, 0, s.Executed)
	})
}

func TestRunStatusLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "no error is ok",
			err:  nil,
			want: "ok",
		},
		{
			name: "batch incomplete",
			err:  fmt.Errorf("2 units errored: %w", errors.ErrBatchIncomplete),
			want: "incomplete",
		},
		{
			name: "rate limited",
			err:  errors.NewRateLimitedError("backend at capacity", nil),
			want: "rate_limited",
		},
		{
			name: "interrupted",
			err:  fmt.Errorf("batch stopped: %w", errors.ErrInterrupted),
			want: "interrupted",
		},
		{
			name: "anything else is an error",
			err:  errStubBatch,
			want: "error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, runStatusLabel(tc.err))
		})
	}
}

func TestRenderRunOutcome_JSONSuccess(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := tui.NewOutput(&buf, OutputJSON)
	res := passingResult()
	summary := buildRunSummary("inv-1", res, 1500*time.Millisecond, "bench/results")

	err := renderRunOutcome(&buf, out, OutputJSON, summary, res, nil)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "inv-1", report.InvocationID)
	assert.Equal(t, 3, report.CorpusSize)
	assert.Equal(t, 3, report.InScope)
	assert.Equal(t, 2, report.Executed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.InDelta(t, 1.5, report.ElapsedSeconds, 0.001)
	assert.Equal(t, "bench/results", report.ResultsDir)
	assert.Len(t, report.Results, 3)
	assert.Empty(t, report.Error)
	assert.Nil(t, report.ResetAt)
}

func TestRenderRunOutcome_JSONRateLimited(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	runErr := errors.NewRateLimitedError("probe reported zero capacity", &reset)

	res := passingResult()
	res.Scheduled = nil

	var buf bytes.Buffer
	out := tui.NewOutput(&buf, OutputJSON)
	summary := buildRunSummary("inv-2", res, time.Second, "bench/results")

	err := renderRunOutcome(&buf, out, OutputJSON, summary, res, runErr)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.True(t, errors.IsRateLimited(err))
	assert.Equal(t, ExitRateLimited, ExitCodeForError(err))

	var report runReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "rate_limited", report.Status)
	assert.Contains(t, report.Error, "probe reported zero capacity")
	require.NotNil(t, report.ResetAt)
	assert.True(t, reset.Equal(*report.ResetAt))
}

func TestRenderRunOutcome_TextSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := tui.NewOutput(&buf, OutputText)
	res := passingResult()
	summary := buildRunSummary("inv-3", res, 2*time.Second, "bench/results")

	err := renderRunOutcome(&buf, out, OutputText, summary, res, nil)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Invocation inv-3 finished in")
	assert.Contains(t, output, "2 passed")
	assert.Contains(t, output, "1 failed")
	assert.Contains(t, output, "results in bench/results")
	assert.NotContains(t, output, "unrecorded")
}

func TestRenderRunOutcome_TextSkipsSummaryWithoutScheduler(t *testing.T) {
	t.Parallel()

	runErr := errors.NewRateLimitedError("backend at capacity", nil)
	res := passingResult()
	res.Scheduled = nil

	var buf bytes.Buffer
	out := tui.NewOutput(&buf, OutputText)
	summary := buildRunSummary("inv-4", res, time.Second, "bench/results")

	err := renderRunOutcome(&buf, out, OutputText, summary, res, runErr)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)

	output := buf.String()
	assert.NotContains(t, output, "Invocation inv-4")
	assert.Contains(t, output, "rate limited: backend at capacity")
	assert.Contains(t, output, "Wait for the reset time")
	assert.NotContains(t, output, "Log file:")
}

func TestRenderRunOutcome_TextErrorShowsLogHint(t *testing.T) {
	t.Parallel()

	res := passingResult()
	res.Scheduled = nil

	var buf bytes.Buffer
	out := tui.NewOutput(&buf, OutputText)
	summary := buildRunSummary("inv-5", res, time.Second, "bench/results")

	err := renderRunOutcome(&buf, out, OutputText, summary, res, errStubBatch)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStubBatch)
	assert.Equal(t, ExitError, ExitCodeForError(err))

	output := buf.String()
	assert.Contains(t, output, "store directory not writable")
	assert.Contains(t, output, "Log file:")
}

func TestReportError(t *testing.T) {
	t.Parallel()

	t.Run("nil error is a no-op", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		out := tui.NewOutput(&buf, OutputText)

		require.NoError(t, reportError(out, OutputText, nil))
		assert.Empty(t, buf.String())
	})

	t.Run("text mode renders the action hint", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		out := tui.NewOutput(&buf, OutputText)
		cause := fmt.Errorf("cannot run batch: %w", errors.ErrExecutorNotConfigured)

		err := reportError(out, OutputText, cause)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrAlreadyReported)
		assert.ErrorIs(t, err, errors.ErrExecutorNotConfigured)

		output := buf.String()
		assert.Contains(t, output, "cannot run batch")
		assert.Contains(t, output, "Set execution.command")
	})

	t.Run("json mode emits a single error document", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		out := tui.NewOutput(&buf, OutputJSON)
		cause := fmt.Errorf("cannot run batch: %w", errors.ErrExecutorNotConfigured)

		err := reportError(out, OutputJSON, cause)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrAlreadyReported)

		dec := json.NewDecoder(&buf)
		var msg struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Details string `json:"details"`
		}
		require.NoError(t, dec.Decode(&msg))
		assert.Equal(t, "error", msg.Type)
		assert.Contains(t, msg.Message, "cannot run batch")
		assert.NotEmpty(t, msg.Details)

		// No trailing action hint in machine-readable mode.
		require.ErrorIs(t, dec.Decode(&msg), io.EOF)
	})
}

func TestRunRunWithDeps_ConflictingFlagsShortCircuit(t *testing.T) {
	t.Parallel()

	loadCalled := false
	deps := runDeps{
		loadConfig: func(_ context.Context, _ *config.Config) (*config.Config, error) {
			loadCalled = true
			return executorConfig(), nil
		},
		newBatch: func(_ *config.Config, _ retry.Flags, _ domain.ConfigSnapshot, _ zerolog.Logger) (unitBatch, error) {
			return &stubBatch{res: passingResult()}, nil
		},
	}

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{fresh: true, retryErrors: true}, OutputJSON, deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflictingFlags)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.False(t, loadCalled, "config should not load after a flag conflict")
}

func TestRunRunWithDeps_LoadFailure(t *testing.T) {
	t.Parallel()

	deps := runDeps{
		loadConfig: func(_ context.Context, _ *config.Config) (*config.Config, error) {
			return nil, errStubLoad
		},
	}

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputJSON, deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStubLoad)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.Contains(t, buf.String(), "failed to load configuration")
}

func TestRunRunWithDeps_ExecutorNotConfigured(t *testing.T) {
	t.Parallel()

	deps := stubRunDeps(config.DefaultConfig(), &stubBatch{res: passingResult()}, nil)

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputJSON, deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExecutorNotConfigured)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.Contains(t, buf.String(), "cannot run batch")
}

func TestRunRunWithDeps_ResultsLocked(t *testing.T) {
	t.Parallel()

	deps := stubRunDeps(executorConfig(), &stubBatch{res: passingResult()}, nil)
	deps.lockResults = func(cfg *config.Config) (func(), error) {
		return nil, fmt.Errorf("%w: %s", errors.ErrResultsLocked, cfg.LockPath())
	}

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputText, deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResultsLocked)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.Contains(t, buf.String(), "locked by another invocation")
	assert.Contains(t, buf.String(), "--results-dir")
}

func TestLockResults(t *testing.T) {
	t.Parallel()

	cfg := executorConfig()
	cfg.Results.Dir = t.TempDir()

	release, err := lockResults(cfg)
	require.NoError(t, err)

	// A second invocation on the same tree fails fast instead of queuing
	// behind a batch.
	_, err = lockResults(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResultsLocked)

	release()

	release, err = lockResults(cfg)
	require.NoError(t, err, "lock is free again after release")
	release()
}

func TestRunRunWithDeps_BatchConstructionFailure(t *testing.T) {
	t.Parallel()

	deps := stubRunDeps(executorConfig(), nil, errStubBatch)

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputJSON, deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStubBatch)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

func TestRunRunWithDeps_Success(t *testing.T) {
	t.Parallel()

	cfg := executorConfig()
	deps := stubRunDeps(cfg, &stubBatch{res: passingResult()}, nil)

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputJSON, deps)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, 3, report.CorpusSize)
	assert.Equal(t, 3, report.InScope)
	assert.Equal(t, 2, report.Executed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, cfg.Results.Dir, report.ResultsDir)
	assert.Len(t, report.Results, 3)

	// Each invocation gets a fresh UUID.
	_, parseErr := uuid.Parse(report.InvocationID)
	assert.NoError(t, parseErr)
}

func TestRunRunWithDeps_Interrupted(t *testing.T) {
	t.Parallel()

	res := passingResult()
	res.Scheduled = &scheduler.Result{
		Appended:  res.Scheduled.Appended[:1],
		Abandoned: []domain.Unit{{Tier: "core", Subtest: "search", Run: 1}},
	}
	batchErr := fmt.Errorf("batch stopped: %w", errors.ErrInterrupted)
	deps := stubRunDeps(executorConfig(), &stubBatch{res: res, err: batchErr}, nil)

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputJSON, deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInterrupted)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitInterrupted, ExitCodeForError(err))

	var report runReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "interrupted", report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestRunRunWithDeps_RateLimited(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	res := passingResult()
	res.Scheduled = nil
	batchErr := errors.NewRateLimitedError("backend at capacity", &reset)
	deps := stubRunDeps(executorConfig(), &stubBatch{res: res, err: batchErr}, nil)

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputJSON, deps)
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
	assert.Equal(t, ExitRateLimited, ExitCodeForError(err))

	var report runReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "rate_limited", report.Status)
	require.NotNil(t, report.ResetAt)
	assert.True(t, reset.Equal(*report.ResetAt))
}

func TestRunRunWithDeps_BatchIncomplete(t *testing.T) {
	t.Parallel()

	res := passingResult()
	res.Tally[constants.RunStatusError] = 1
	batchErr := fmt.Errorf("1 unit errored: %w", errors.ErrBatchIncomplete)
	deps := stubRunDeps(executorConfig(), &stubBatch{res: res, err: batchErr}, nil)

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputJSON, deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBatchIncomplete)
	assert.Equal(t, ExitError, ExitCodeForError(err))

	var report runReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "incomplete", report.Status)
	assert.Equal(t, 1, report.Errored)
}

func TestRunRunWithDeps_TextSummary(t *testing.T) {
	t.Parallel()

	deps := stubRunDeps(executorConfig(), &stubBatch{res: passingResult()}, nil)

	var buf bytes.Buffer
	err := runRunWithDeps(context.Background(), &buf, &runFlags{}, OutputText, deps)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "finished in")
	assert.Contains(t, output, "2 passed")
	assert.Contains(t, output, "1 failed")
}

func TestRunRunWithDeps_CanceledContext(t *testing.T) {
	t.Parallel()

	// The batch sees the signal handler's context, which must inherit a
	// parent cancellation.
	sawCanceled := false
	batch := batchFunc(func(ctx context.Context) (*orchestrator.Result, error) {
		sawCanceled = ctx.Err() != nil
		res := passingResult()
		res.Scheduled = nil
		return res, fmt.Errorf("scope planning aborted: %w", errors.ErrInterrupted)
	})
	deps := stubRunDeps(executorConfig(), batch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := runRunWithDeps(ctx, &buf, &runFlags{}, OutputJSON, deps)
	require.Error(t, err)
	assert.Equal(t, ExitInterrupted, ExitCodeForError(err))
	assert.True(t, sawCanceled, "batch context should reflect the canceled parent")
}
