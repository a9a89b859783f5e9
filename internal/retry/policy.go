// Package retry decides which corpus units an invocation executes and
// which prior results it carries forward unchanged. The decision is a
// pure function of the corpus, the checkpoint history, the derived run
// states, and the invocation flags: identical inputs always produce the
// identical plan, with no dependence on directory iteration order or
// wall-clock time.
package retry

import (
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/domain"
)

// Flags are the history-handling switches for one invocation. All of
// them compose independently.
type Flags struct {
	// Fresh ignores all checkpoint history: every in-scope unit
	// executes and nothing is carried forward.
	Fresh bool

	// RetryErrors re-executes units whose latest record is status
	// error, dropping the stale error record from the carried results.
	RetryErrors bool

	// Tiers, Subtests and Runs narrow the candidate corpus to matching
	// units. Empty slices match everything.
	Tiers    []string
	Subtests []string
	Runs     []int

	// States narrows the candidate corpus to units whose derived run
	// state is in the set. Empty matches everything.
	States []constants.RunState
}

// Scoped reports whether any scope filter is set.
func (f Flags) Scoped() bool {
	return len(f.Tiers) > 0 || len(f.Subtests) > 0 || len(f.Runs) > 0 || len(f.States) > 0
}

// Plan is the filter outcome: the units to hand to the scheduler and
// the prior records the final report keeps as-is.
type Plan struct {
	// InScope lists every corpus unit that survived the scope filters,
	// executed or not. The final exit code accounts over exactly this
	// set.
	InScope []domain.Unit

	// ToExecute lists the units this invocation runs, sorted.
	ToExecute []domain.Unit

	// CarryForward lists prior records not superseded by this
	// invocation, in checkpoint order.
	CarryForward []domain.RunRecord

	// DroppedErrorIDs names the units whose stale error records were
	// dropped for re-execution, so the store can rewrite the checkpoint
	// to match.
	DroppedErrorIDs []string

	// SkippedCompleted counts in-scope units excluded because a record
	// already exists.
	SkippedCompleted int
}

// Executes reports whether the plan schedules any work.
func (p Plan) Executes() bool {
	return len(p.ToExecute) > 0
}

// Filter computes the execution plan. The states map keys unit IDs to
// their classifier output; units absent from the map count as missing.
func Filter(corpusUnits []domain.Unit, records []domain.RunRecord, states map[string]constants.RunState, flags Flags) Plan {
	candidates := scope(corpusUnits, states, flags)

	if flags.Fresh {
		toExecute := make([]domain.Unit, len(candidates))
		copy(toExecute, candidates)
		domain.SortUnits(toExecute)
		return Plan{
			InScope:         candidates,
			ToExecute:       toExecute,
			CarryForward:    []domain.RunRecord{},
			DroppedErrorIDs: []string{},
		}
	}

	// Later records supersede earlier ones for the same unit.
	latest := make(map[string]domain.RunRecord, len(records))
	for _, rec := range records {
		latest[rec.ID] = rec
	}

	plan := Plan{
		InScope:         candidates,
		ToExecute:       make([]domain.Unit, 0, len(candidates)),
		CarryForward:    make([]domain.RunRecord, 0, len(records)),
		DroppedErrorIDs: []string{},
	}

	executing := make(map[string]bool, len(candidates))
	for _, unit := range candidates {
		id := unit.ID()
		rec, recorded := latest[id]
		switch {
		case !recorded:
			executing[id] = true
		case flags.RetryErrors && rec.Status == constants.RunStatusError:
			executing[id] = true
			plan.DroppedErrorIDs = append(plan.DroppedErrorIDs, id)
		default:
			plan.SkippedCompleted++
		}
		if executing[id] {
			plan.ToExecute = append(plan.ToExecute, unit)
		}
	}
	domain.SortUnits(plan.ToExecute)

	for _, rec := range records {
		if executing[rec.ID] {
			continue
		}
		plan.CarryForward = append(plan.CarryForward, rec)
	}

	return plan
}

// scope narrows the corpus to units matching the tier, subtest, run and
// state filters, preserving input order.
func scope(corpusUnits []domain.Unit, states map[string]constants.RunState, flags Flags) []domain.Unit {
	out := make([]domain.Unit, 0, len(corpusUnits))
	for _, unit := range corpusUnits {
		if !matchString(flags.Tiers, unit.Tier) {
			continue
		}
		if !matchString(flags.Subtests, unit.Subtest) {
			continue
		}
		if !matchInt(flags.Runs, unit.Run) {
			continue
		}
		if len(flags.States) > 0 {
			state, ok := states[unit.ID()]
			if !ok {
				state = constants.RunStateMissing
			}
			if !matchState(flags.States, state) {
				continue
			}
		}
		out = append(out, unit)
	}
	return out
}

func matchString(filter []string, value string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, v := range filter {
		if v == value {
			return true
		}
	}
	return false
}

func matchInt(filter []int, value int) bool {
	if len(filter) == 0 {
		return true
	}
	for _, v := range filter {
		if v == value {
			return true
		}
	}
	return false
}

func matchState(filter []constants.RunState, value constants.RunState) bool {
	for _, v := range filter {
		if v == value {
			return true
		}
	}
	return false
}
