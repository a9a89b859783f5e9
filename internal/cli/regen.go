package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/checkpoint"
	"github.com/mrz1836/gauntlet/internal/config"
	"github.com/mrz1836/gauntlet/internal/corpus"
	"github.com/mrz1836/gauntlet/internal/domain"
	"github.com/mrz1836/gauntlet/internal/errors"
	"github.com/mrz1836/gauntlet/internal/orchestrator"
	"github.com/mrz1836/gauntlet/internal/signal"
	"github.com/mrz1836/gauntlet/internal/tui"
)

// AddRegenCommand adds the regen command to the root command.
func AddRegenCommand(root *cobra.Command) {
	root.AddCommand(newRegenCmd())
}

// regenFlags holds the regen command's flag values.
type regenFlags struct {
	corpusFile string
	resultsDir string
	checkpoint string
}

// newRegenCmd creates the regen command.
func newRegenCmd() *cobra.Command {
	flags := &regenFlags{}

	cmd := &cobra.Command{
		Use:   "regen",
		Short: "Regenerate missing summaries from existing raw output",
		Long: `Recover units whose execution finished but whose summary artifact is
missing or unparseable. The summary is rebuilt from the raw event
stream, written back to the run directory, and the recovered record is
appended to the checkpoint. Nothing is ever re-executed.

Units whose raw stream turns out corrupt are reported and left for
re-execution with 'gauntlet run'.

Examples:
  gauntlet regen                     # Recover every results_only unit
  gauntlet regen --output json       # Machine-readable recovery report
  gauntlet regen --results-dir out   # Recover a non-default results tree`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runRegen(cmd.Context(), cmd, os.Stdout, flags)
			// If the error was already rendered, silence cobra's own
			// printing but still return it for the exit code.
			if stderrors.Is(err, errors.ErrAlreadyReported) {
				cmd.SilenceErrors = true
			}
			return err
		},
	}

	cmd.Flags().StringVar(&flags.corpusFile, "corpus", "", "Path to the corpus manifest")
	cmd.Flags().StringVar(&flags.resultsDir, "results-dir", "", "Root directory for run artifacts")
	cmd.Flags().StringVar(&flags.checkpoint, "checkpoint", "", "Checkpoint file path (default <results-dir>/checkpoint.json)")

	return cmd
}

// runRegen executes the regen command.
func runRegen(ctx context.Context, cmd *cobra.Command, w io.Writer, flags *regenFlags) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Get output format from global flags
	outputFormat := cmd.Flag("output").Value.String()

	return runRegenWithOutput(ctx, w, flags, outputFormat)
}

// runRegenWithOutput executes the regen command with explicit output format.
func runRegenWithOutput(ctx context.Context, w io.Writer, flags *regenFlags, outputFormat string) error {
	logger := GetLogger()
	tui.CheckNoColor()
	out := tui.NewOutput(w, outputFormat)

	overrides := &config.Config{}
	overrides.Corpus.File = flags.corpusFile
	overrides.Results.Dir = flags.resultsDir
	overrides.Results.CheckpointFile = flags.checkpoint

	cfg, err := config.LoadWithOverrides(ctx, overrides)
	if err != nil {
		return reportError(out, outputFormat, fmt.Errorf("failed to load configuration: %w", err))
	}

	// Recovery appends to the same checkpoint a running batch would, so
	// it competes for the same invocation lock.
	release, err := lockResults(cfg)
	if err != nil {
		return reportError(out, outputFormat, err)
	}
	defer release()

	store, err := checkpoint.NewFileStore(cfg.CheckpointPath(), checkpoint.WithLogger(logger))
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	snapshot := domain.ConfigSnapshot{
		InvocationID:    uuid.NewString(),
		CorpusFile:      cfg.Corpus.File,
		ResultsDir:      cfg.Results.Dir,
		Workers:         cfg.Execution.Workers,
		ExecutorCommand: cfg.Execution.Command,
		UnitTimeout:     cfg.Execution.UnitTimeout,
	}

	regen, err := orchestrator.NewRegenerator(
		corpus.Source{Path: cfg.Corpus.File},
		store,
		artifact.NewLayout(cfg.Results.Dir),
		snapshot,
		orchestrator.WithRegenLogger(logger))
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	// Recovery appends to the checkpoint; route interrupts through the
	// context so a half-done pass still leaves durable appends behind.
	handler := signal.NewHandler(ctx)
	defer handler.Stop()

	res, err := regen.Run(handler.Context())
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	if outputFormat == OutputJSON {
		return out.JSON(buildRegenReport(res))
	}

	renderRegenText(out, res)
	return nil
}

// regenReport is the regen command's JSON document.
type regenReport struct {
	Candidates int                `json:"candidates"`
	Recovered  []domain.RunRecord `json:"recovered"`
	Failed     []string           `json:"failed,omitempty"`
}

// buildRegenReport folds the regeneration result into the JSON document.
func buildRegenReport(res *orchestrator.RegenResult) regenReport {
	return regenReport{
		Candidates: len(res.Candidates),
		Recovered:  res.Recovered,
		Failed:     res.Failed,
	}
}

// renderRegenText writes the recovery outcome for terminal display.
func renderRegenText(out tui.Output, res *orchestrator.RegenResult) {
	if len(res.Candidates) == 0 {
		out.Info("No units need summary regeneration")
		return
	}

	if len(res.Recovered) > 0 {
		headers := []string{"UNIT", "STATUS", "SCORE", "TURNS", "TOKENS"}
		rows := make([][]string, 0, len(res.Recovered))
		for _, rec := range res.Recovered {
			score := "-"
			if rec.Score != nil {
				score = fmt.Sprintf("%.2f", *rec.Score)
			}
			rows = append(rows, []string{
				rec.ID,
				rec.Status.String(),
				score,
				fmt.Sprintf("%d", rec.Turns),
				fmt.Sprintf("%d", rec.TokensUsed),
			})
		}
		out.Table(headers, rows)
	}

	for _, id := range res.Failed {
		out.Warning(fmt.Sprintf("%s: raw output would not summarize, re-execute with 'gauntlet run'", id))
	}

	out.Success(fmt.Sprintf("Recovered %d of %d candidate units", len(res.Recovered), len(res.Candidates)))
}
