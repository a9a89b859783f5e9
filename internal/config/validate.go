package config

import (
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - Corpus file path must not be empty
//   - Results directory must not be empty
//   - Execution workers must be between 1 and the pool cap
//   - Execution unit timeout must be positive
//   - Rate limit timeout must be positive
//
// An empty execution command is valid: read-only commands (status, regen)
// never shell out, and the run command reports the missing command itself.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateCorpusConfig(&cfg.Corpus); err != nil {
		return err
	}

	if err := validateResultsConfig(&cfg.Results); err != nil {
		return err
	}

	if err := validateExecutionConfig(&cfg.Execution); err != nil {
		return err
	}

	if err := validateRateLimitConfig(&cfg.RateLimit); err != nil {
		return err
	}

	return nil
}

// validateCorpusConfig checks corpus-specific configuration values.
func validateCorpusConfig(cfg *CorpusConfig) error {
	if cfg.File == "" {
		return errors.Wrap(errors.ErrConfigInvalidCorpus,
			"corpus.file must not be empty")
	}

	return nil
}

// validateResultsConfig checks results-specific configuration values.
func validateResultsConfig(cfg *ResultsConfig) error {
	if cfg.Dir == "" {
		return errors.Wrap(errors.ErrConfigInvalidResults,
			"results.dir must not be empty")
	}

	return nil
}

// validateExecutionConfig checks execution-specific configuration values.
func validateExecutionConfig(cfg *ExecutionConfig) error {
	if cfg.Workers < 1 || cfg.Workers > constants.MaxWorkers {
		return errors.Wrapf(errors.ErrConfigInvalidExecution,
			"execution.workers must be between 1 and %d, got %d",
			constants.MaxWorkers, cfg.Workers)
	}

	if cfg.UnitTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidExecution,
			"execution.unit_timeout must be positive, got %s", cfg.UnitTimeout)
	}

	return nil
}

// validateRateLimitConfig checks rate-limit-specific configuration values.
func validateRateLimitConfig(cfg *RateLimitConfig) error {
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidRateLimit,
			"rate_limit.timeout must be positive, got %s", cfg.Timeout)
	}

	return nil
}
