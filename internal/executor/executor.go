// Package executor bridges the scheduler to the external agent harness.
// The harness itself is a collaborator: a configured shell command that
// runs one unit, writes the unit's artifacts (output.jsonl, result.json
// and optionally summary.json) into its run directory, and exits. This
// package invokes that command with the unit's identity in the
// environment, enforces the per-unit timeout, and converts every
// expected failure mode into a status=error run record instead of an
// error.
//
// The command receives the unit through environment variables:
//
//	GAUNTLET_UNIT_ID  tier/subtest/run-N
//	GAUNTLET_TIER     tier name
//	GAUNTLET_SUBTEST  subtest name
//	GAUNTLET_RUN      run number
//	GAUNTLET_RUN_DIR  absolute run directory (also the working directory)
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/clock"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/ctxutil"
	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// maxMessageLen caps the stderr tail copied into a record's message.
const maxMessageLen = 500

// UnitExecutor runs one unit to completion.
type UnitExecutor interface {
	// Execute blocks until the unit finishes. Expected failure modes
	// (non-zero exit, per-unit timeout, missing or corrupt artifacts)
	// come back as a status=error record, not an error. A non-nil error
	// means the unit was abandoned without a usable outcome, which
	// happens only on external cancellation.
	Execute(ctx context.Context, unit domain.Unit) (domain.RunRecord, error)
}

// CommandExecutor abstracts command execution for testing.
// The production implementation uses exec.Cmd to run subprocesses,
// while tests can provide a mock implementation.
type CommandExecutor interface {
	// Execute runs the command and returns stdout, stderr, and any error.
	Execute(ctx context.Context, cmd *exec.Cmd) (stdout, stderr []byte, err error)
}

// DefaultExecutor is the production implementation of CommandExecutor.
type DefaultExecutor struct{}

// Execute runs the command and captures its output.
func (e *DefaultExecutor) Execute(_ context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CommandRunner implements UnitExecutor by shelling out to the
// configured harness command.
type CommandRunner struct {
	command  string
	layout   artifact.Layout
	timeout  time.Duration
	executor CommandExecutor
	clk      clock.Clock
	logger   zerolog.Logger
}

// CommandRunnerOption is a functional option for configuring CommandRunner.
type CommandRunnerOption func(*CommandRunner)

// WithRunnerTimeout sets the per-unit execution timeout.
func WithRunnerTimeout(timeout time.Duration) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.timeout = timeout
	}
}

// WithRunnerExecutor sets the subprocess executor, usually a mock in tests.
func WithRunnerExecutor(executor CommandExecutor) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.executor = executor
	}
}

// WithRunnerClock sets the clock used for record timestamps.
func WithRunnerClock(clk clock.Clock) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.clk = clk
	}
}

// WithRunnerLogger sets the fallback logger used when the context
// carries none.
func WithRunnerLogger(logger zerolog.Logger) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.logger = logger
	}
}

// NewCommandRunner creates a CommandRunner for the given harness command
// and artifact layout.
func NewCommandRunner(command string, layout artifact.Layout, opts ...CommandRunnerOption) (*CommandRunner, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("failed to create unit runner: %w", gauntleterrors.ErrCommandNotConfigured)
	}
	r := &CommandRunner{
		command:  command,
		layout:   layout,
		timeout:  constants.DefaultUnitTimeout,
		executor: &DefaultExecutor{},
		clk:      clock.RealClock{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Execute runs the harness command for one unit and derives its record
// from the artifacts the command leaves behind.
func (r *CommandRunner) Execute(ctx context.Context, unit domain.Unit) (domain.RunRecord, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.RunRecord{}, err
	}

	logger := r.unitLogger(ctx, unit)

	if err := r.layout.EnsureRunDir(unit); err != nil {
		// Without a run directory the harness has nowhere to write, so
		// this is a unit error, not a batch failure.
		logger.Error().Err(err).Msg("failed to create run directory")
		return r.errorRecord(unit, r.clk.Now().UTC(), 0, "run directory: "+err.Error()), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	runDir := r.layout.RunDir(unit)
	cmd := exec.CommandContext(runCtx, "sh", "-c", r.command)
	cmd.Dir = runDir
	cmd.Env = append(os.Environ(),
		"GAUNTLET_UNIT_ID="+unit.ID(),
		"GAUNTLET_TIER="+unit.Tier,
		"GAUNTLET_SUBTEST="+unit.Subtest,
		"GAUNTLET_RUN="+strconv.Itoa(unit.Run),
		"GAUNTLET_RUN_DIR="+runDir,
	)

	logger.Info().
		Str("command", shellescape.Quote(r.command)).
		Str("run_dir", runDir).
		Dur("timeout", r.timeout).
		Msg("executing unit")

	startedAt := r.clk.Now().UTC()
	_, stderr, runErr := r.executor.Execute(runCtx, cmd)
	elapsed := r.clk.Since(startedAt)
	completedAt := startedAt.Add(elapsed)

	// External cancellation abandons the unit: no record at all, so a
	// resumed invocation re-executes it from scratch.
	if ctx.Err() != nil {
		logger.Warn().Msg("unit abandoned by cancellation")
		return domain.RunRecord{}, ctx.Err()
	}

	rec := r.deriveRecord(runCtx, unit, runErr, stderr, logger)
	rec.StartedAt = startedAt
	rec.CompletedAt = completedAt
	rec.DurationSeconds = elapsed.Seconds()

	logger.Info().
		Str("status", rec.Status.String()).
		Int("exit_code", rec.ExitCode).
		Float64("duration_seconds", rec.DurationSeconds).
		Msg("unit finished")

	return rec, nil
}

// deriveRecord turns the command outcome plus the on-disk artifacts into
// the unit's run record.
func (r *CommandRunner) deriveRecord(runCtx context.Context, unit domain.Unit, runErr error, stderr []byte, logger zerolog.Logger) domain.RunRecord {
	now := r.clk.Now().UTC()

	// The per-unit deadline expiring is an expected failure mode.
	if runErr != nil && runCtx.Err() == context.DeadlineExceeded {
		logger.Warn().Dur("timeout", r.timeout).Msg("unit timed out")
		return r.errorRecord(unit, now, -1, fmt.Sprintf("timed out after %s", r.timeout))
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// The command never ran (sh missing, exec failure).
			logger.Error().Err(runErr).Msg("harness command failed to start")
			return r.errorRecord(unit, now, -1, "harness: "+runErr.Error())
		}
	}

	// The artifacts the harness wrote are the source of truth for the
	// outcome; the process exit code is corroborating detail.
	snap := artifact.Take(r.layout, unit)
	if !snap.ResultValid {
		msg := "no terminal marker written"
		if snap.ResultPresent {
			msg = "terminal marker unparseable"
		}
		if tail := messageTail(stderr); tail != "" {
			msg += ": " + tail
		}
		return r.errorRecord(unit, now, exitCode, msg)
	}

	rec := domain.NewRunRecord(unit, statusFromResult(snap.Result))
	rec.ExitCode = snap.Result.ExitCode
	rec.Score = snap.Result.Score
	if rec.Status == constants.RunStatusError {
		rec.Message = snap.Result.Error
		if rec.Message == "" {
			rec.Message = messageTail(stderr)
		}
	}

	r.fillSummaryMetrics(&rec, snap, unit, logger)
	return rec
}

// fillSummaryMetrics copies turn/token metrics from the summary into the
// record, regenerating the summary first when the harness did not write
// one but left a valid event stream behind.
func (r *CommandRunner) fillSummaryMetrics(rec *domain.RunRecord, snap artifact.Snapshot, unit domain.Unit, logger zerolog.Logger) {
	summary := snap.Summary
	if !snap.SummaryValid && snap.RawValid && !snap.Result.Failed() {
		regenerated, err := artifact.Regenerate(r.layout, unit, r.clk)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to derive summary from raw output")
			return
		}
		summary = regenerated
	}
	if summary == nil {
		return
	}
	rec.Turns = summary.Turns
	rec.TokensUsed = summary.TokensUsed
	if rec.Score == nil && summary.Score != nil {
		rec.Score = summary.Score
	}
}

// errorRecord builds a status=error record for expected failure modes.
func (r *CommandRunner) errorRecord(unit domain.Unit, completedAt time.Time, exitCode int, message string) domain.RunRecord {
	rec := domain.NewRunRecord(unit, constants.RunStatusError)
	rec.CompletedAt = completedAt
	rec.ExitCode = exitCode
	rec.Message = message
	return rec
}

// unitLogger returns the context's logger, or the runner's own, enriched
// with the unit identity. Workers put their scoped logger in the context
// so per-unit output lands in the right worker log.
func (r *CommandRunner) unitLogger(ctx context.Context, unit domain.Unit) zerolog.Logger {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &r.logger
	}
	return logger.With().Str("unit", unit.ID()).Logger()
}

// statusFromResult maps a terminal marker to a record status. A fail
// verdict is a legitimate benchmark fail whatever the exit code; an
// error verdict, or a pass claim contradicted by a non-zero exit, is a
// harness error.
func statusFromResult(result *artifact.Result) constants.RunStatus {
	switch result.Verdict {
	case artifact.VerdictPass:
		if result.ExitCode != 0 {
			return constants.RunStatusError
		}
		return constants.RunStatusPass
	case artifact.VerdictFail:
		return constants.RunStatusFail
	default:
		return constants.RunStatusError
	}
}

// messageTail returns the trailing portion of stderr for record messages.
func messageTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > maxMessageLen {
		s = "..." + s[len(s)-maxMessageLen:]
	}
	return s
}

// Ensure CommandRunner implements UnitExecutor.
var _ UnitExecutor = (*CommandRunner)(nil)
