// Package orchestrator sequences one batch invocation end to end:
// enumerate the corpus, consult the rate limit gate, load or clear the
// checkpoint, classify prior artifacts, plan what to execute, run the
// worker pool, and merge the outcome into the final per-unit records.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/checkpoint"
	"github.com/mrz1836/gauntlet/internal/classify"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/ctxutil"
	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
	"github.com/mrz1836/gauntlet/internal/retry"
	"github.com/mrz1836/gauntlet/internal/scheduler"
)

// Enumerator lists the units the batch operates on.
type Enumerator interface {
	EnumerateUnits(ctx context.Context) ([]domain.Unit, error)
}

// Gate answers the single pre-flight rate limit question.
type Gate interface {
	Check(ctx context.Context) (domain.RateLimitInfo, error)
}

// UnitScheduler runs the planned units through the worker pool. Run
// returns a non-nil result even on failure so partial progress stays
// visible to the caller.
type UnitScheduler interface {
	Run(ctx context.Context, units []domain.Unit) (*scheduler.Result, error)
}

// Orchestrator drives one batch invocation. Construct it with New, call
// Run once, then let it go; nothing in it survives the invocation.
type Orchestrator struct {
	enumerator Enumerator
	gate       Gate
	store      checkpoint.Store
	scheduler  UnitScheduler
	layout     artifact.Layout
	flags      retry.Flags
	logger     zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOrchestratorLogger sets the logger. Defaults to a no-op logger.
func WithOrchestratorLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator. Every collaborator is required; a missing
// one is a configuration error the caller surfaces with exit code 1.
func New(enum Enumerator, gate Gate, store checkpoint.Store, sched UnitScheduler, layout artifact.Layout, flags retry.Flags, opts ...Option) (*Orchestrator, error) {
	if enum == nil {
		return nil, fmt.Errorf("failed to create orchestrator: corpus enumerator %w", gauntleterrors.ErrEmptyValue)
	}
	if gate == nil {
		return nil, fmt.Errorf("failed to create orchestrator: rate limit gate %w", gauntleterrors.ErrEmptyValue)
	}
	if store == nil {
		return nil, fmt.Errorf("failed to create orchestrator: checkpoint store %w", gauntleterrors.ErrEmptyValue)
	}
	if sched == nil {
		return nil, fmt.Errorf("failed to create orchestrator: scheduler %w", gauntleterrors.ErrEmptyValue)
	}

	o := &Orchestrator{
		enumerator: enum,
		gate:       gate,
		store:      store,
		scheduler:  sched,
		layout:     layout,
		flags:      flags,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Result is everything one invocation learned, for rendering.
type Result struct {
	// CorpusSize is the full corpus size before scoping.
	CorpusSize int

	// Plan is what the invocation decided to execute and carry forward.
	Plan retry.Plan

	// Scheduled is the worker pool outcome for Plan.ToExecute.
	Scheduled *scheduler.Result

	// Merged holds the latest record per unit after combining carried
	// history with this pass's appends, sorted by unit.
	Merged []domain.RunRecord

	// Tally counts the in-scope merged records by status.
	Tally map[constants.RunStatus]int

	// Unrecorded counts in-scope units that hold no record anywhere.
	Unrecorded int
}

// Run executes the invocation sequence. The returned Result is always
// populated as far as the sequence got, so callers can render partial
// outcomes alongside the error.
//
// Error mapping: a positive rate limit answer returns a
// *gauntleterrors.RateLimitedError (exit 2), cancellation returns
// gauntleterrors.ErrInterrupted (exit 130), an in-scope unit left with
// an error record or no record returns gauntleterrors.ErrBatchIncomplete
// (exit 1), and anything else is a fatal failure (exit 1).
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	res := &Result{Tally: map[constants.RunStatus]int{}}
	if err := ctxutil.Canceled(ctx); err != nil {
		return res, interrupted(err)
	}
	start := time.Now()

	units, err := o.enumerator.EnumerateUnits(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to enumerate corpus: %w", err)
	}
	res.CorpusSize = len(units)
	o.logger.Info().Int("units", len(units)).Msg("corpus enumerated")

	info, err := o.gate.Check(ctx)
	if err != nil {
		return res, interrupted(err)
	}
	if info.Limited {
		return res, gauntleterrors.NewRateLimitedError(info.Message, info.ResetAt)
	}

	if o.flags.Fresh {
		o.logger.Info().Msg("fresh start requested, clearing checkpoint")
		if err := o.store.Clear(ctx); err != nil {
			return res, fmt.Errorf("failed to clear checkpoint: %w", err)
		}
	}

	cp, err := o.store.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	o.logger.Info().Int("records", len(cp.Results)).Msg("checkpoint loaded")

	classifications, err := classify.Scan(ctx, o.layout, units)
	if err != nil {
		return res, interrupted(err)
	}
	states := classify.StatesByUnit(classifications)

	plan := retry.Filter(units, cp.Results, states, o.flags)
	res.Plan = plan
	o.logger.Info().
		Int("in_scope", len(plan.InScope)).
		Int("to_execute", len(plan.ToExecute)).
		Int("carried", len(plan.CarryForward)).
		Int("skipped", plan.SkippedCompleted).
		Msg("execution plan computed")

	if !plan.Executes() {
		o.logger.Info().Msg("nothing to execute, prior results already cover the scope")
	}

	o.dropStaleErrorRecords(ctx, plan)

	scheduled, schedErr := o.scheduler.Run(ctx, plan.ToExecute)
	res.Scheduled = scheduled

	// Records appended before a failure are durable and still count.
	res.Merged = mergeRecords(plan.CarryForward, scheduled.Appended)
	o.tallyInScope(res)

	if schedErr != nil {
		if errors.Is(schedErr, context.Canceled) {
			o.logger.Warn().
				Int("appended", len(scheduled.Appended)).
				Int("abandoned", len(scheduled.Abandoned)).
				Msg("batch interrupted")
			return res, gauntleterrors.ErrInterrupted
		}
		return res, schedErr
	}

	o.logger.Info().
		Int("pass", res.Tally[constants.RunStatusPass]).
		Int("fail", res.Tally[constants.RunStatusFail]).
		Int("error", res.Tally[constants.RunStatusError]).
		Int("unrecorded", res.Unrecorded).
		Dur("duration", time.Since(start)).
		Msg("batch finished")

	return res, o.evaluate(res)
}

// interrupted maps context cancellation onto the interrupt error so the
// CLI exits 130; any other error passes through.
func interrupted(err error) error {
	if errors.Is(err, context.Canceled) {
		return gauntleterrors.ErrInterrupted
	}
	return err
}

// mergeRecords collapses carried history plus this pass's appends into
// one latest record per unit, sorted by unit identity. Carried records
// keep checkpoint order semantics: later entries supersede earlier ones,
// and anything re-executed this pass is superseded by its new record.
func mergeRecords(carried, appended []domain.RunRecord) []domain.RunRecord {
	latest := make(map[string]domain.RunRecord, len(carried)+len(appended))
	for _, rec := range carried {
		latest[rec.ID] = rec
	}
	for _, rec := range appended {
		latest[rec.ID] = rec
	}

	merged := make([]domain.RunRecord, 0, len(latest))
	for _, rec := range latest {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Unit().Less(merged[j].Unit())
	})
	return merged
}

// tallyInScope counts merged outcomes for the units the invocation
// scoped in. Out-of-scope history stays in Merged but does not influence
// the exit code.
func (o *Orchestrator) tallyInScope(res *Result) {
	byID := make(map[string]domain.RunRecord, len(res.Merged))
	for _, rec := range res.Merged {
		byID[rec.ID] = rec
	}

	res.Tally = map[constants.RunStatus]int{}
	res.Unrecorded = 0
	for _, unit := range res.Plan.InScope {
		rec, ok := byID[unit.ID()]
		if !ok {
			res.Unrecorded++
			continue
		}
		res.Tally[rec.Status]++
	}
}

// dropStaleErrorRecords rewrites the checkpoint without the records of
// units this pass re-executes. The drop covers every record of a retried
// unit, not just the error one: anything older was already superseded,
// and keeping it would resurrect a stale outcome if re-execution gets
// interrupted. An unrecorded unit re-executes on the next invocation,
// which is the safe direction.
//
// A rewrite failure is logged and ignored: the re-executed unit's new
// record lands after the stale one, so the latest-wins merge stays
// correct either way.
func (o *Orchestrator) dropStaleErrorRecords(ctx context.Context, plan retry.Plan) {
	if len(plan.DroppedErrorIDs) == 0 {
		return
	}

	retried := make(map[string]struct{}, len(plan.DroppedErrorIDs))
	for _, id := range plan.DroppedErrorIDs {
		retried[id] = struct{}{}
	}

	err := o.store.Rewrite(ctx, func(rec domain.RunRecord) bool {
		_, drop := retried[rec.ID]
		return !drop
	})
	if err != nil {
		o.logger.Warn().Err(err).Msg("failed to drop stale error records")
		return
	}
	o.logger.Debug().Int("dropped", len(plan.DroppedErrorIDs)).Msg("stale error records dropped for re-execution")
}

// evaluate decides between a clean exit and batch-incomplete. Fail
// verdicts are legitimate benchmark outcomes; only error records and
// units without any record keep the batch from being accounted for.
func (o *Orchestrator) evaluate(res *Result) error {
	errored := res.Tally[constants.RunStatusError]
	if errored == 0 && res.Unrecorded == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d error units, %d unrecorded units",
		gauntleterrors.ErrBatchIncomplete, errored, res.Unrecorded)
}
