package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/checkpoint"
	"github.com/mrz1836/gauntlet/internal/classify"
	"github.com/mrz1836/gauntlet/internal/clock"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/ctxutil"
	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// Regenerator recovers units whose execution succeeded but whose derived
// summary is missing or unparseable. It rebuilds summary.json from the
// raw event stream and appends the recovered record through the same
// checkpoint store the batch writes to; nothing is ever re-executed.
type Regenerator struct {
	enumerator Enumerator
	store      checkpoint.Store
	layout     artifact.Layout
	snapshot   domain.ConfigSnapshot
	clk        clock.Clock
	logger     zerolog.Logger
}

// RegenOption configures a Regenerator.
type RegenOption func(*Regenerator)

// WithRegenClock sets the clock stamped into regenerated summaries.
func WithRegenClock(clk clock.Clock) RegenOption {
	return func(r *Regenerator) {
		r.clk = clk
	}
}

// WithRegenLogger sets the logger. Defaults to a no-op logger.
func WithRegenLogger(logger zerolog.Logger) RegenOption {
	return func(r *Regenerator) {
		r.logger = logger
	}
}

// NewRegenerator creates a Regenerator over the given collaborators.
func NewRegenerator(enum Enumerator, store checkpoint.Store, layout artifact.Layout, snapshot domain.ConfigSnapshot, opts ...RegenOption) (*Regenerator, error) {
	if enum == nil {
		return nil, fmt.Errorf("failed to create regenerator: corpus enumerator %w", gauntleterrors.ErrEmptyValue)
	}
	if store == nil {
		return nil, fmt.Errorf("failed to create regenerator: checkpoint store %w", gauntleterrors.ErrEmptyValue)
	}

	r := &Regenerator{
		enumerator: enum,
		store:      store,
		layout:     layout,
		snapshot:   snapshot,
		clk:        clock.RealClock{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RegenResult reports what a regeneration pass found and recovered.
type RegenResult struct {
	// Candidates lists the units classified as needing regeneration.
	Candidates []domain.Unit

	// Recovered holds the records appended for successfully
	// regenerated units.
	Recovered []domain.RunRecord

	// Failed lists unit IDs whose raw stream would not summarize.
	Failed []string
}

// Run classifies the corpus, regenerates every results-only unit's
// summary, and appends the recovered records. Units whose raw stream
// turns out corrupt are reported in Failed rather than aborting the
// pass; only checkpoint append failures are fatal.
func (r *Regenerator) Run(ctx context.Context) (*RegenResult, error) {
	res := &RegenResult{}
	if err := ctxutil.Canceled(ctx); err != nil {
		return res, interrupted(err)
	}

	units, err := r.enumerator.EnumerateUnits(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to enumerate corpus: %w", err)
	}

	classifications, err := classify.Scan(ctx, r.layout, units)
	if err != nil {
		return res, interrupted(err)
	}

	for _, c := range classifications {
		if c.State != constants.RunStateResultsOnly {
			continue
		}
		if err := ctxutil.Canceled(ctx); err != nil {
			return res, interrupted(err)
		}
		res.Candidates = append(res.Candidates, c.Unit)

		summary, regenErr := artifact.Regenerate(r.layout, c.Unit, r.clk)
		if regenErr != nil {
			r.logger.Warn().Err(regenErr).Str("unit", c.Unit.ID()).Msg("summary regeneration failed")
			res.Failed = append(res.Failed, c.Unit.ID())
			continue
		}

		rec := recoveredRecord(c.Unit, c.Snapshot, summary)
		if appendErr := r.store.Append(ctx, rec, r.snapshot); appendErr != nil {
			return res, fmt.Errorf("failed to checkpoint recovered unit %s: %w", c.Unit.ID(), appendErr)
		}
		res.Recovered = append(res.Recovered, rec)
		r.logger.Info().
			Str("unit", c.Unit.ID()).
			Str("verdict", summary.Verdict).
			Msg("summary regenerated")
	}

	r.logger.Info().
		Int("candidates", len(res.Candidates)).
		Int("recovered", len(res.Recovered)).
		Int("failed", len(res.Failed)).
		Msg("regeneration pass finished")

	return res, nil
}

// recoveredRecord builds the record for a regenerated unit from its
// terminal marker and the freshly derived summary. A results-only unit
// always finished with exit 0 and a pass or fail verdict, so no error
// mapping is needed here.
func recoveredRecord(unit domain.Unit, snap artifact.Snapshot, summary *artifact.Summary) domain.RunRecord {
	status := constants.RunStatusPass
	if snap.Result.Verdict == artifact.VerdictFail {
		status = constants.RunStatusFail
	}

	rec := domain.NewRunRecord(unit, status)
	rec.ExitCode = snap.Result.ExitCode
	rec.StartedAt = snap.Result.StartedAt
	rec.CompletedAt = snap.Result.CompletedAt
	rec.DurationSeconds = snap.Result.DurationSeconds
	rec.Score = summary.Score
	rec.Turns = summary.Turns
	rec.TokensUsed = summary.TokensUsed
	return rec
}
