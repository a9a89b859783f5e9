// Package domain provides shared domain types for the GAUNTLET batch runner.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case per architecture requirements.
package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// Unit identifies a single executable benchmark unit: one run of one
// subtest in one tier. The (Tier, Subtest, Run) triple is the unit's
// identity everywhere: in the checkpoint, on disk, and in log lines.
//
// Example JSON representation:
//
//	{
//	    "tier": "core",
//	    "subtest": "file-edit",
//	    "run": 2
//	}
type Unit struct {
	// Tier is the difficulty tier the subtest belongs to.
	Tier string `json:"tier"`

	// Subtest is the named scenario within the tier.
	Subtest string `json:"subtest"`

	// Run is the 1-based repetition number for this subtest.
	Run int `json:"run"`
}

// ID returns the canonical identifier, tier/subtest/run-N.
// This is the key used for checkpoint matching and log correlation.
func (u Unit) ID() string {
	return fmt.Sprintf("%s/%s/run-%d", u.Tier, u.Subtest, u.Run)
}

// String implements fmt.Stringer for convenient logging.
func (u Unit) String() string {
	return u.ID()
}

// Less orders units by tier, then subtest, then run number.
// Corpus enumeration and reports rely on this for deterministic output.
func (u Unit) Less(other Unit) bool {
	if u.Tier != other.Tier {
		return u.Tier < other.Tier
	}
	if u.Subtest != other.Subtest {
		return u.Subtest < other.Subtest
	}
	return u.Run < other.Run
}

// Validate checks that the unit's names are safe to use as path segments
// and that the run number is positive.
func (u Unit) Validate() error {
	if err := validateNameSegment(u.Tier); err != nil {
		return gauntleterrors.Wrapf(err, "tier %q", u.Tier)
	}
	if err := validateNameSegment(u.Subtest); err != nil {
		return gauntleterrors.Wrapf(err, "subtest %q", u.Subtest)
	}
	if u.Run < 1 {
		return gauntleterrors.Wrapf(gauntleterrors.ErrValueOutOfRange, "run %d", u.Run)
	}
	return nil
}

// validateNameSegment rejects names that would escape the results directory
// or collide with the run-N layout when used as a path segment.
func validateNameSegment(name string) error {
	if name == "" {
		return gauntleterrors.ErrEmptyValue
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return gauntleterrors.ErrPathTraversal
	}
	return nil
}

// ParseUnitID parses a canonical tier/subtest/run-N identifier back into a Unit.
func ParseUnitID(id string) (Unit, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 3 {
		return Unit{}, gauntleterrors.Wrapf(gauntleterrors.ErrInvalidUnitID, "%q", id)
	}

	runPart, ok := strings.CutPrefix(parts[2], "run-")
	if !ok {
		return Unit{}, gauntleterrors.Wrapf(gauntleterrors.ErrInvalidUnitID, "%q: missing run- segment", id)
	}
	run, err := strconv.Atoi(runPart)
	if err != nil || run < 1 {
		return Unit{}, gauntleterrors.Wrapf(gauntleterrors.ErrInvalidUnitID, "%q: bad run number", id)
	}

	u := Unit{Tier: parts[0], Subtest: parts[1], Run: run}
	if err := u.Validate(); err != nil {
		return Unit{}, gauntleterrors.Wrapf(gauntleterrors.ErrInvalidUnitID, "%q", id)
	}
	return u, nil
}

// SortUnits orders a slice of units in place by tier, subtest, then run.
func SortUnits(units []Unit) {
	sort.Slice(units, func(i, j int) bool {
		return units[i].Less(units[j])
	})
}
