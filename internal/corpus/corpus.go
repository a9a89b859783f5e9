// Package corpus loads and expands the benchmark corpus manifest.
//
// The manifest is a small YAML file enumerating tiers, their subtests, and
// how many times each subtest runs. Expansion produces the full, sorted
// list of units the batch operates on; everything downstream treats that
// list as the single source of truth for scope.
package corpus

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

const (
	// maxManifestSize is the maximum allowed size for a corpus manifest (1MB).
	maxManifestSize = 1024 * 1024

	// defaultRuns is the run count for subtests that do not set one and
	// when the manifest has no default_runs.
	defaultRuns = 1
)

// Subtest is one named scenario within a tier.
type Subtest struct {
	// Name is the scenario name, used as a path segment on disk.
	Name string `yaml:"name"`

	// Runs is how many times this subtest executes. Zero falls back to
	// the manifest's default_runs.
	Runs int `yaml:"runs,omitempty"`
}

// Tier groups subtests of comparable difficulty.
type Tier struct {
	// Name is the tier name, used as a path segment on disk.
	Name string `yaml:"name"`

	// Subtests are the scenarios in this tier.
	Subtests []Subtest `yaml:"subtests"`
}

// Manifest is the parsed corpus file.
//
// Example:
//
//	version: "1"
//	default_runs: 3
//	tiers:
//	  - name: core
//	    subtests:
//	      - name: file-edit
//	      - name: debug
//	        runs: 5
type Manifest struct {
	// Version is the manifest schema version.
	Version string `yaml:"version,omitempty"`

	// DefaultRuns applies to subtests that do not set their own run count.
	DefaultRuns int `yaml:"default_runs,omitempty"`

	// Tiers are the corpus tiers in declaration order.
	Tiers []Tier `yaml:"tiers"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", gauntleterrors.ErrCorpusNotFound, path)
	}
	if err != nil {
		return nil, gauntleterrors.Wrapf(err, "failed to stat corpus manifest '%s'", path)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("%w: manifest exceeds %d bytes", gauntleterrors.ErrCorpusInvalid, maxManifestSize)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from config, not untrusted input
	if err != nil {
		return nil, gauntleterrors.Wrapf(err, "failed to read corpus manifest '%s'", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", gauntleterrors.ErrCorpusInvalid, path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest structure: at least one tier, safe names,
// positive run counts, and no duplicate tier/subtest pairs.
func (m *Manifest) Validate() error {
	if len(m.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers defined", gauntleterrors.ErrCorpusInvalid)
	}
	if m.DefaultRuns < 0 {
		return fmt.Errorf("%w: default_runs must not be negative", gauntleterrors.ErrCorpusInvalid)
	}

	seen := make(map[string]struct{})
	for _, tier := range m.Tiers {
		if len(tier.Subtests) == 0 {
			return fmt.Errorf("%w: tier %q has no subtests", gauntleterrors.ErrCorpusInvalid, tier.Name)
		}
		for _, st := range tier.Subtests {
			if st.Runs < 0 {
				return fmt.Errorf("%w: subtest %q runs must not be negative", gauntleterrors.ErrCorpusInvalid, st.Name)
			}
			// Validate names through the same rules units enforce.
			probe := domain.Unit{Tier: tier.Name, Subtest: st.Name, Run: 1}
			if err := probe.Validate(); err != nil {
				return fmt.Errorf("%w: %s", gauntleterrors.ErrCorpusInvalid, err)
			}
			key := tier.Name + "/" + st.Name
			if _, dup := seen[key]; dup {
				return fmt.Errorf("%w: %s", gauntleterrors.ErrDuplicateUnit, key)
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}

// Units expands the manifest into the full sorted unit list.
// Run numbers are 1-based and dense: a subtest with runs 3 expands to
// run-1, run-2, run-3.
func (m *Manifest) Units() []domain.Unit {
	fallback := m.DefaultRuns
	if fallback == 0 {
		fallback = defaultRuns
	}

	var units []domain.Unit
	for _, tier := range m.Tiers {
		for _, st := range tier.Subtests {
			runs := st.Runs
			if runs == 0 {
				runs = fallback
			}
			for n := 1; n <= runs; n++ {
				units = append(units, domain.Unit{Tier: tier.Name, Subtest: st.Name, Run: n})
			}
		}
	}
	domain.SortUnits(units)
	return units
}

// Source enumerates units from a manifest file on demand.
// It satisfies the orchestrator's enumerator dependency.
type Source struct {
	// Path is the manifest file location.
	Path string
}

// EnumerateUnits loads the manifest and returns its expanded unit list.
func (s Source) EnumerateUnits(ctx context.Context) ([]domain.Unit, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m, err := Load(s.Path)
	if err != nil {
		return nil, err
	}
	return m.Units(), nil
}
