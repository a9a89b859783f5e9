package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gauntlet/internal/constants"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// TestValidate_NilConfig tests that nil config returns error
func TestValidate_NilConfig(t *testing.T) {
	t.Parallel()

	err := Validate(nil)

	require.Error(t, err)
	require.ErrorIs(t, err, gauntleterrors.ErrConfigNil)
}

// TestValidate_DefaultConfig tests that default config is valid
func TestValidate_DefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	err := Validate(cfg)

	require.NoError(t, err)
}

// TestValidate_EmptyExecutionCommand tests that an unset executor command
// passes validation. Read-only commands never shell out, and the run
// command reports the missing command itself.
func TestValidate_EmptyExecutionCommand(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Execution.Command = ""

	err := Validate(cfg)

	require.NoError(t, err)
}

// TestValidate_BoundaryWorkers tests the edges of the worker pool range.
func TestValidate_BoundaryWorkers(t *testing.T) {
	t.Parallel()

	t.Run("one worker is valid", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Execution.Workers = 1

		require.NoError(t, Validate(cfg))
	})

	t.Run("pool cap is valid", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Execution.Workers = constants.MaxWorkers

		require.NoError(t, Validate(cfg))
	})
}

// TestValidate_InvalidSections tests that each section rejects its
// out-of-range values with the matching sentinel.
func TestValidate_InvalidSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  error
		contains string
	}{
		{
			name:     "empty corpus file",
			mutate:   func(c *Config) { c.Corpus.File = "" },
			wantErr:  gauntleterrors.ErrConfigInvalidCorpus,
			contains: "corpus.file must not be empty",
		},
		{
			name:     "empty results dir",
			mutate:   func(c *Config) { c.Results.Dir = "" },
			wantErr:  gauntleterrors.ErrConfigInvalidResults,
			contains: "results.dir must not be empty",
		},
		{
			name:     "zero workers",
			mutate:   func(c *Config) { c.Execution.Workers = 0 },
			wantErr:  gauntleterrors.ErrConfigInvalidExecution,
			contains: "execution.workers must be between",
		},
		{
			name:     "negative workers",
			mutate:   func(c *Config) { c.Execution.Workers = -2 },
			wantErr:  gauntleterrors.ErrConfigInvalidExecution,
			contains: "execution.workers must be between",
		},
		{
			name:     "workers above pool cap",
			mutate:   func(c *Config) { c.Execution.Workers = constants.MaxWorkers + 1 },
			wantErr:  gauntleterrors.ErrConfigInvalidExecution,
			contains: "execution.workers must be between",
		},
		{
			name:     "zero unit timeout",
			mutate:   func(c *Config) { c.Execution.UnitTimeout = 0 },
			wantErr:  gauntleterrors.ErrConfigInvalidExecution,
			contains: "execution.unit_timeout must be positive",
		},
		{
			name:     "negative unit timeout",
			mutate:   func(c *Config) { c.Execution.UnitTimeout = -time.Minute },
			wantErr:  gauntleterrors.ErrConfigInvalidExecution,
			contains: "execution.unit_timeout must be positive",
		},
		{
			name:     "zero rate limit timeout",
			mutate:   func(c *Config) { c.RateLimit.Timeout = 0 },
			wantErr:  gauntleterrors.ErrConfigInvalidRateLimit,
			contains: "rate_limit.timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
