package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/checkpoint"
	"github.com/mrz1836/gauntlet/internal/classify"
	"github.com/mrz1836/gauntlet/internal/config"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/corpus"
	"github.com/mrz1836/gauntlet/internal/domain"
	"github.com/mrz1836/gauntlet/internal/errors"
	"github.com/mrz1836/gauntlet/internal/tui"
)

// statusScanLimit bounds the concurrent artifact probes during a status
// scan. Probing is stat-call bound, so a small pool is enough.
const statusScanLimit = 8

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(root *cobra.Command) {
	root.AddCommand(newStatusCmd())
}

// statusFlags holds the status command's flag values.
type statusFlags struct {
	corpusFile string
	resultsDir string
	checkpoint string
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	flags := &statusFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-unit completion state without executing anything",
		Long: `Enumerate the corpus, load the checkpoint, and classify every unit's
on-disk artifacts into a derived state:

  completed     all artifacts present and valid
  results_only  valid results but no summary; 'gauntlet regen' recovers it
  failed        artifacts record a terminal failure
  partial       run directory exists but no terminal marker
  missing       no run directory

The classification reads only the filesystem; nothing executes and
nothing is written.

Examples:
  gauntlet status                    # State counts plus per-unit table
  gauntlet status --output json      # Machine-readable report
  gauntlet status --results-dir out  # Inspect a non-default results tree`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runStatus(cmd.Context(), cmd, os.Stdout, flags)
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

// runStatus executes the status command.
func runStatus(ctx context.Context, cmd *cobra.Command, w io.Writer, flags *statusFlags) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Get output format from global flags
	outputFormat := cmd.Flag("output").Value.String()

	return runStatusWithOutput(ctx, w, flags, outputFormat)
}

// runStatusWithOutput executes the status command with explicit output format.
func runStatusWithOutput(ctx context.Context, w io.Writer, flags *statusFlags, outputFormat string) error {
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

	units, err := corpus.Source{Path: cfg.Corpus.File}.EnumerateUnits(ctx)
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	store, err := checkpoint.NewFileStore(cfg.CheckpointPath(), checkpoint.WithLogger(logger))
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	cp, err := store.Load(ctx)
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	layout := artifact.NewLayout(cfg.Results.Dir)
	classifications, err := classify.ScanParallel(ctx, layout, units, statusScanLimit)
	if err != nil {
		return reportError(out, outputFormat, err)
	}

	logger.Debug().
		Int("units", len(units)).
		Int("records", len(cp.Results)).
		Msg("status scan complete")

	latest := cp.LatestByUnit()
	if outputFormat == OutputJSON {
		return out.JSON(buildStatusReport(cfg, cp, classifications, latest))
	}

	renderStatusText(w, out, cfg, cp, classifications, latest)
	return nil
}

// statusUnit is one corpus unit in the JSON report.
type statusUnit struct {
	ID              string   `json:"id"`
	State           string   `json:"state"`
	Reason          string   `json:"reason"`
	Status          string   `json:"status,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	Score           *float64 `json:"score,omitempty"`
}

// statusCheckpoint summarizes the checkpoint header in the JSON report.
type statusCheckpoint struct {
	Path         string     `json:"path"`
	InvocationID string     `json:"invocation_id,omitempty"`
	Records      int        `json:"records"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// statusReport is the status command's JSON document.
type statusReport struct {
	CorpusFile string                     `json:"corpus_file"`
	CorpusSize int                        `json:"corpus_size"`
	ResultsDir string                     `json:"results_dir"`
	Checkpoint statusCheckpoint           `json:"checkpoint"`
	States     map[constants.RunState]int `json:"states"`
	Units      []statusUnit               `json:"units"`
}

// buildStatusReport folds the scan into the JSON document.
func buildStatusReport(cfg *config.Config, cp *domain.Checkpoint, classifications []classify.Classification, latest map[string]domain.RunRecord) statusReport {
	report := statusReport{
		CorpusFile: cfg.Corpus.File,
		CorpusSize: len(classifications),
		ResultsDir: cfg.Results.Dir,
		Checkpoint: statusCheckpoint{
			Path:         cfg.CheckpointPath(),
			InvocationID: cp.Config.InvocationID,
			Records:      len(cp.Results),
			UpdatedAt:    cp.CompletedAt,
		},
		States: classify.Tally(classifications),
		Units:  make([]statusUnit, 0, len(classifications)),
	}
	if !cp.StartedAt.IsZero() {
		startedAt := cp.StartedAt
		report.Checkpoint.StartedAt = &startedAt
	}

	for _, c := range classifications {
		u := statusUnit{
			ID:     c.Unit.ID(),
			State:  c.State.String(),
			Reason: classify.Reason(c.Snapshot),
		}
		if rec, ok := latest[c.Unit.ID()]; ok {
			u.Status = rec.Status.String()
			u.DurationSeconds = rec.DurationSeconds
			u.Score = rec.Score
		}
		report.Units = append(report.Units, u)
	}
	return report
}

// renderStatusText writes the state counts, checkpoint age, and per-unit
// table for terminal display.
func renderStatusText(w io.Writer, out tui.Output, cfg *config.Config, cp *domain.Checkpoint, classifications []classify.Classification, latest map[string]domain.RunRecord) {
	summary := &tui.StateSummary{Counts: classify.Tally(classifications)}
	summary.Render(w)

	if len(cp.Results) > 0 {
		line := fmt.Sprintf("Checkpoint: %d records, started %s", len(cp.Results), tui.RelativeTime(cp.StartedAt))
		if cp.CompletedAt != nil {
			line += ", last progress " + tui.RelativeTime(*cp.CompletedAt)
		}
		out.Info(line)
	} else {
		out.Info(fmt.Sprintf("Checkpoint: empty (%s)", cfg.CheckpointPath()))
	}

	_, _ = fmt.Fprintln(w)
	_ = tui.NewUnitTable(unitRows(classifications, latest)).Render(w)
}

// unitRows converts classifications plus checkpoint history into table rows.
func unitRows(classifications []classify.Classification, latest map[string]domain.RunRecord) []tui.UnitRow {
	rows := make([]tui.UnitRow, 0, len(classifications))
	for _, c := range classifications {
		row := tui.UnitRow{UnitID: c.Unit.ID(), State: c.State}
		if rec, ok := latest[c.Unit.ID()]; ok {
			row.Status = rec.Status
			row.Duration = time.Duration(rec.DurationSeconds * float64(time.Second))
		}
		rows = append(rows, row)
	}
	return rows
}
