package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/checkpoint"
	"github.com/mrz1836/gauntlet/internal/config"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/corpus"
	"github.com/mrz1836/gauntlet/internal/domain"
	"github.com/mrz1836/gauntlet/internal/errors"
	"github.com/mrz1836/gauntlet/internal/executor"
	"github.com/mrz1836/gauntlet/internal/flock"
	"github.com/mrz1836/gauntlet/internal/orchestrator"
	"github.com/mrz1836/gauntlet/internal/ratelimit"
	"github.com/mrz1836/gauntlet/internal/retry"
	"github.com/mrz1836/gauntlet/internal/scheduler"
	"github.com/mrz1836/gauntlet/internal/signal"
	"github.com/mrz1836/gauntlet/internal/tui"
)

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command) {
	root.AddCommand(newRunCmd())
}

// runFlags holds the run command's flag values.
type runFlags struct {
	fresh       bool
	retryErrors bool
	tiers       []string
	subtests    []string
	runs        []int
	states      []string
	workers     int
	corpusFile  string
	resultsDir  string
	checkpoint  string
	executor    string
	unitTimeout time.Duration
}

// newRunCmd creates the run command.
func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the benchmark corpus as a checkpointed batch",
		Long: `Run every in-scope corpus unit through the configured executor command,
recording each outcome in the checkpoint as it lands. A re-invocation
skips units that already hold a record, so an interrupted or partially
failed batch resumes instead of starting over.

Exit codes:
  0    every in-scope unit holds a pass or fail verdict
  1    permanent error, or units left with error/no record
  2    the pre-flight rate limit probe reported the backend limited
  130  interrupted by SIGINT or SIGTERM

Examples:
  gauntlet run                                # Run or resume the full corpus
  gauntlet run --retry-errors                 # Re-execute only error units
  gauntlet run --fresh                        # Discard history and start over
  gauntlet run --tier core --subtest parser   # Run a corpus subset
  gauntlet run --state missing --state partial
  gauntlet run --workers 8 --unit-timeout 45m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runRun(cmd.Context(), cmd, os.Stdout, flags)
			// If the error was already rendered, silence cobra's own
			// printing but still return it for the exit code.
			if stderrors.Is(err, errors.ErrAlreadyReported) {
				cmd.SilenceErrors = true
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&flags.fresh, "fresh", false, "Discard checkpoint history and execute every in-scope unit")
	cmd.Flags().BoolVar(&flags.retryErrors, "retry-errors", false, "Re-execute units whose latest record is status error")
	cmd.Flags().StringSliceVar(&flags.tiers, "tier", nil, "Limit the batch to the named tiers")
	cmd.Flags().StringSliceVar(&flags.subtests, "subtest", nil, "Limit the batch to the named subtests")
	cmd.Flags().IntSliceVar(&flags.runs, "run", nil, "Limit the batch to the given run indexes")
	cmd.Flags().StringSliceVar(&flags.states, "state", nil, "Limit the batch to units in the given derived states")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Number of concurrent unit executions")
	cmd.Flags().StringVar(&flags.corpusFile, "corpus", "", "Path to the corpus manifest")
	cmd.Flags().StringVar(&flags.resultsDir, "results-dir", "", "Root directory for run artifacts")
	cmd.Flags().StringVar(&flags.checkpoint, "checkpoint", "", "Checkpoint file path (default <results-dir>/checkpoint.json)")
	cmd.Flags().StringVar(&flags.executor, "executor", "", "Shell command that executes a single unit")
	cmd.Flags().DurationVar(&flags.unitTimeout, "unit-timeout", 0, "Maximum duration for a single unit execution")

	return cmd
}

// runRun executes the run command.
func runRun(ctx context.Context, cmd *cobra.Command, w io.Writer, flags *runFlags) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Get output format from global flags
	outputFormat := cmd.Flag("output").Value.String()

	return runRunWithDeps(ctx, w, flags, outputFormat, defaultRunDeps())
}

// unitBatch is the orchestrator seam, replaceable in tests.
type unitBatch interface {
	Run(ctx context.Context) (*orchestrator.Result, error)
}

// runDeps carries the construction seams runRunWithDeps uses.
type runDeps struct {
	loadConfig  func(ctx context.Context, overrides *config.Config) (*config.Config, error)
	lockResults func(cfg *config.Config) (release func(), err error)
	newBatch    func(cfg *config.Config, retryFlags retry.Flags, snapshot domain.ConfigSnapshot, logger zerolog.Logger) (unitBatch, error)
}

// defaultRunDeps returns the production dependencies.
func defaultRunDeps() runDeps {
	return runDeps{
		loadConfig:  config.LoadWithOverrides,
		lockResults: lockResults,
		newBatch:    newBatch,
	}
}

// lockResults takes the invocation lock beside the checkpoint file and
// returns its release func. The checkpoint store does no cross-process
// locking of its own, so commands that append records hold this lock
// from before the store is opened until the command returns.
func lockResults(cfg *config.Config) (func(), error) {
	lock, err := flock.Acquire(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(); err != nil {
			logger := GetLogger()
			logger.Warn().Err(err).Str("path", lock.Path()).Msg("failed to release invocation lock")
		}
	}, nil
}

// runRunWithDeps executes the run command with injectable dependencies.
func runRunWithDeps(ctx context.Context, w io.Writer, flags *runFlags, outputFormat string, deps runDeps) error {
	logger := GetLogger()
	tui.CheckNoColor()
	out := tui.NewOutput(w, outputFormat)

	retryFlags, err := parseRetryFlags(flags)
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	cfg, err := deps.loadConfig(ctx, overridesFromFlags(flags))
	if err != nil {
		return reportError(out, outputFormat, fmt.Errorf("failed to load configuration: %w", err))
	}

	if cfg.Execution.Command == "" {
		return reportError(out, outputFormat, fmt.Errorf("cannot run batch: %w", errors.ErrExecutorNotConfigured))
	}

	release, err := deps.lockResults(cfg)
	if err != nil {
		return reportError(out, outputFormat, err)
	}
	defer release()

	invocationID := uuid.NewString()
	runLogger := logger.With().Str("invocation_id", invocationID).Logger()
	snapshot := domain.ConfigSnapshot{
		InvocationID:    invocationID,
		CorpusFile:      cfg.Corpus.File,
		ResultsDir:      cfg.Results.Dir,
		Workers:         cfg.Execution.Workers,
		ExecutorCommand: cfg.Execution.Command,
		UnitTimeout:     cfg.Execution.UnitTimeout,
	}

	batch, err := deps.newBatch(cfg, retryFlags, snapshot, runLogger)
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	runLogger.Info().
		Str("corpus", cfg.Corpus.File).
		Str("results_dir", cfg.Results.Dir).
		Int("workers", cfg.Execution.Workers).
		Msg("starting batch")

	// Translate SIGINT/SIGTERM into context cancellation so in-flight
	// units finish draining before the process exits.
	handler := signal.NewHandler(ctx)
	defer handler.Stop()

	start := time.Now()
	res, runErr := batch.Run(handler.Context())
	elapsed := time.Since(start)

	return renderRunOutcome(w, out, outputFormat, buildRunSummary(invocationID, res, elapsed, cfg.Results.Dir), res, runErr)
}

// newBatch wires the production orchestrator from the effective config.
func newBatch(cfg *config.Config, retryFlags retry.Flags, snapshot domain.ConfigSnapshot, logger zerolog.Logger) (unitBatch, error) {
	layout := artifact.NewLayout(cfg.Results.Dir)

	store, err := checkpoint.NewFileStore(cfg.CheckpointPath(), checkpoint.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	runner, err := executor.NewCommandRunner(cfg.Execution.Command, layout,
		executor.WithRunnerTimeout(cfg.Execution.UnitTimeout),
		executor.WithRunnerLogger(logger))
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(runner, store, layout, snapshot, cfg.Execution.Workers,
		scheduler.WithSchedulerLogger(logger))
	if err != nil {
		return nil, err
	}

	gate, err := newGate(cfg, logger)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(corpus.Source{Path: cfg.Corpus.File}, gate, store, sched, layout, retryFlags,
		orchestrator.WithOrchestratorLogger(logger))
}

// newGate selects the rate limit provider: the configured probe command,
// or the noop provider that always reports capacity.
func newGate(cfg *config.Config, logger zerolog.Logger) (*ratelimit.Gate, error) {
	if cfg.RateLimit.Command == "" {
		return ratelimit.NewGate(ratelimit.NoopProvider{}, ratelimit.WithGateLogger(logger)), nil
	}

	provider, err := ratelimit.NewCommandProvider(cfg.RateLimit.Command,
		ratelimit.WithCommandTimeout(cfg.RateLimit.Timeout),
		ratelimit.WithCommandLogger(logger))
	if err != nil {
		return nil, err
	}
	return ratelimit.NewGate(provider, ratelimit.WithGateLogger(logger)), nil
}

// parseRetryFlags converts the raw flag values into the retry policy
// flags, validating state names.
func parseRetryFlags(flags *runFlags) (retry.Flags, error) {
	if flags.fresh && flags.retryErrors {
		return retry.Flags{}, fmt.Errorf("%w: --fresh already re-executes error units, drop --retry-errors", errors.ErrConflictingFlags)
	}

	states, err := parseRunStates(flags.states)
	if err != nil {
		return retry.Flags{}, err
	}

	return retry.Flags{
		Fresh:       flags.fresh,
		RetryErrors: flags.retryErrors,
		Tiers:       flags.tiers,
		Subtests:    flags.subtests,
		Runs:        flags.runs,
		States:      states,
	}, nil
}

// parseRunStates validates raw --state values against the known derived
// states.
func parseRunStates(raw []string) ([]constants.RunState, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	states := make([]constants.RunState, 0, len(raw))
	for _, s := range raw {
		state := constants.RunState(s)
		if !state.Valid() {
			return nil, fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidRunState, s, constants.AllRunStates())
		}
		states = append(states, state)
	}
	return states, nil
}

// overridesFromFlags maps set flags onto a config override layer. Zero
// values are ignored by the loader, so unset flags defer to config files
// and defaults.
func overridesFromFlags(flags *runFlags) *config.Config {
	overrides := &config.Config{}
	overrides.Corpus.File = flags.corpusFile
	overrides.Results.Dir = flags.resultsDir
	overrides.Results.CheckpointFile = flags.checkpoint
	overrides.Execution.Command = flags.executor
	overrides.Execution.Workers = flags.workers
	overrides.Execution.UnitTimeout = flags.unitTimeout
	return overrides
}

// buildRunSummary folds the orchestrator result into the renderable
// summary. The result is always populated as far as the batch got, so a
// partial outcome still renders meaningful counts.
func buildRunSummary(invocationID string, res *orchestrator.Result, elapsed time.Duration, resultsDir string) *tui.RunSummary {
	s := &tui.RunSummary{
		InvocationID: invocationID,
		CorpusSize:   res.CorpusSize,
		InScope:      len(res.Plan.InScope),
		Skipped:      res.Plan.SkippedCompleted,
		Passed:       res.Tally[constants.RunStatusPass],
		Failed:       res.Tally[constants.RunStatusFail],
		Errored:      res.Tally[constants.RunStatusError],
		Unrecorded:   res.Unrecorded,
		Elapsed:      elapsed,
		ResultsDir:   resultsDir,
	}
	if res.Scheduled != nil {
		s.Executed = len(res.Scheduled.Appended)
	}
	return s
}

// runReport is the run command's JSON document.
type runReport struct {
	Status         string             `json:"status"`
	InvocationID   string             `json:"invocation_id"`
	CorpusSize     int                `json:"corpus_size"`
	InScope        int                `json:"in_scope"`
	Executed       int                `json:"executed"`
	Skipped        int                `json:"skipped"`
	Passed         int                `json:"passed"`
	Failed         int                `json:"failed"`
	Errored        int                `json:"errored"`
	Unrecorded     int                `json:"unrecorded"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	ResultsDir     string             `json:"results_dir"`
	Results        []domain.RunRecord `json:"results,omitempty"`
	Error          string             `json:"error,omitempty"`
	ResetAt        *time.Time         `json:"reset_at,omitempty"`
}

// runStatusLabel names the batch outcome for the JSON report.
func runStatusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case stderrors.Is(err, errors.ErrBatchIncomplete):
		return "incomplete"
	case errors.IsRateLimited(err):
		return "rate_limited"
	case stderrors.Is(err, errors.ErrInterrupted):
		return "interrupted"
	default:
		return "error"
	}
}

// renderRunOutcome writes the batch outcome in the requested format and
// wraps any batch error as already reported.
func renderRunOutcome(w io.Writer, out tui.Output, outputFormat string, summary *tui.RunSummary, res *orchestrator.Result, runErr error) error {
	if outputFormat == OutputJSON {
		report := runReport{
			Status:         runStatusLabel(runErr),
			InvocationID:   summary.InvocationID,
			CorpusSize:     summary.CorpusSize,
			InScope:        summary.InScope,
			Executed:       summary.Executed,
			Skipped:        summary.Skipped,
			Passed:         summary.Passed,
			Failed:         summary.Failed,
			Errored:        summary.Errored,
			Unrecorded:     summary.Unrecorded,
			ElapsedSeconds: summary.Elapsed.Seconds(),
			ResultsDir:     summary.ResultsDir,
			Results:        res.Merged,
		}
		if runErr != nil {
			report.Error = runErr.Error()
			var rlErr *errors.RateLimitedError
			if stderrors.As(runErr, &rlErr) {
				report.ResetAt = rlErr.ResetAt
			}
		}

		if err := out.JSON(report); err != nil {
			return err
		}
		if runErr != nil {
			return fmt.Errorf("%w: %w", errors.ErrAlreadyReported, runErr)
		}
		return nil
	}

	// The scheduler outcome marks how far the batch got: without it
	// nothing executed and the summary would be all zeros.
	if res.Scheduled != nil {
		summary.Render(w)
	}

	if runErr == nil {
		return nil
	}

	out.Error(runErr)
	if _, action := errors.Actionable(runErr); action != "" {
		out.Info(action)
	}
	if runStatusLabel(runErr) == "error" {
		if path, pathErr := LogFilePath(); pathErr == nil {
			out.Info("Log file: " + path)
		}
	}
	return fmt.Errorf("%w: %w", errors.ErrAlreadyReported, runErr)
}

// reportError renders a pre-flight error and marks it already reported
// so cobra does not print it a second time. The original error stays in
// the chain for exit code mapping.
func reportError(out tui.Output, outputFormat string, err error) error {
	if err == nil {
		return nil
	}

	out.Error(err)
	if outputFormat != OutputJSON {
		if _, action := errors.Actionable(err); action != "" {
			out.Info(action)
		}
	}
	return fmt.Errorf("%w: %w", errors.ErrAlreadyReported, err)
}
