// Package classify derives the on-disk completion state of corpus units.
//
// Classification looks only at the artifacts inside a unit's run
// directory. Checkpoint records play no part: a unit whose artifacts
// were deleted is missing again no matter what the checkpoint says, and
// a unit with an intact artifact set stays completed even if the
// checkpoint was lost. This keeps resume decisions anchored to what is
// actually on disk.
package classify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/domain"
)

// Run maps an artifact snapshot to a RunState. It is deterministic,
// total, and never fails: every possible snapshot has exactly one state.
//
// Corrupt or half-written artifacts never classify as completed. A unit
// whose terminal marker parses but whose raw output is missing or broken
// counts as failed rather than resultsOnly, because there is nothing
// valid left to summarize.
func Run(snap artifact.Snapshot) constants.RunState {
	if !snap.DirExists {
		return constants.RunStateMissing
	}
	if !snap.ResultPresent {
		return constants.RunStatePartial
	}
	if !snap.ResultValid {
		return constants.RunStateFailed
	}
	if snap.Result.Failed() {
		return constants.RunStateFailed
	}
	if !snap.RawValid {
		return constants.RunStateFailed
	}
	if !snap.SummaryValid {
		return constants.RunStateResultsOnly
	}
	return constants.RunStateCompleted
}

// Reason returns a short human-readable explanation for the state a
// snapshot classifies to, for status output and debug logs.
func Reason(snap artifact.Snapshot) string {
	switch {
	case !snap.DirExists:
		return "no run directory"
	case !snap.ResultPresent:
		return "no terminal marker"
	case !snap.ResultValid:
		return "terminal marker unparseable"
	case snap.Result.Failed():
		if snap.Result.ExitCode != 0 {
			return "non-zero exit code"
		}
		return "error verdict"
	case !snap.RawPresent:
		return "raw output missing"
	case !snap.RawValid:
		return "raw output unparseable"
	case !snap.SummaryPresent:
		return "summary missing"
	case !snap.SummaryValid:
		return "summary unparseable"
	default:
		return "all artifacts valid"
	}
}

// Classification pairs a unit with its derived state and the snapshot
// the state was derived from.
type Classification struct {
	Unit     domain.Unit
	State    constants.RunState
	Snapshot artifact.Snapshot
}

// Scan probes and classifies every unit against the given layout. Units
// are classified in the order given; the context is checked between
// units so a large corpus scan can be interrupted.
func Scan(ctx context.Context, layout artifact.Layout, units []domain.Unit) ([]Classification, error) {
	out := make([]Classification, 0, len(units))
	for _, unit := range units {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		snap := artifact.Take(layout, unit)
		out = append(out, Classification{
			Unit:     unit,
			State:    Run(snap),
			Snapshot: snap,
		})
	}
	return out, nil
}

// ScanParallel probes and classifies units concurrently, bounded by
// limit goroutines. Output order matches input order. Status scans use
// this for large corpora where per-unit stat calls dominate.
func ScanParallel(ctx context.Context, layout artifact.Layout, units []domain.Unit, limit int) ([]Classification, error) {
	if limit < 1 {
		limit = 1
	}

	out := make([]Classification, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, unit := range units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			snap := artifact.Take(layout, unit)
			out[i] = Classification{
				Unit:     unit,
				State:    Run(snap),
				Snapshot: snap,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// StatesByUnit flattens classifications into a unit-ID keyed state map,
// the shape the retry policy consumes.
func StatesByUnit(classifications []Classification) map[string]constants.RunState {
	states := make(map[string]constants.RunState, len(classifications))
	for _, c := range classifications {
		states[c.Unit.ID()] = c.State
	}
	return states
}

// Tally counts how many units landed in each state.
func Tally(classifications []Classification) map[constants.RunState]int {
	counts := make(map[constants.RunState]int, len(constants.AllRunStates()))
	for _, c := range classifications {
		counts[c.State]++
	}
	return counts
}
