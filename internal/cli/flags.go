// Package cli provides the command-line interface for gauntlet.
package cli

import (
	stderrors "errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/gauntlet/internal/errors"
)

// Exit codes for the CLI. The contract is external: scripts driving a
// batch branch on these values, so they must stay exact.
const (
	// ExitSuccess indicates every in-scope unit is accounted for with a
	// pass or fail verdict.
	ExitSuccess = 0
	// ExitError indicates a permanent or configuration error, including
	// batches that finished with error or unrecorded units.
	ExitError = 1
	// ExitRateLimited indicates the pre-flight rate limit probe aborted
	// the batch before anything executed. Safe to re-invoke later.
	ExitRateLimited = 2
	// ExitInterrupted indicates the batch was stopped by SIGINT or
	// SIGTERM. Checkpointed progress survives; re-invoking resumes.
	ExitInterrupted = 130
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = "text"
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = "json"
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
}

// AddGlobalFlags adds global flags to a command.
// These flags are available to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to Viper for configuration file and
// environment variable support. The GAUNTLET_ prefix is used for
// environment variables (e.g., GAUNTLET_OUTPUT, GAUNTLET_VERBOSE).
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Use Root().PersistentFlags() to find flags defined on the root command,
	// even when called from a subcommand's PersistentPreRunE.
	rootFlags := cmd.Root().PersistentFlags()

	if err := v.BindPFlag("output", rootFlags.Lookup("output")); err != nil {
		return err
	}
	if err := v.BindPFlag("verbose", rootFlags.Lookup("verbose")); err != nil {
		return err
	}
	if err := v.BindPFlag("quiet", rootFlags.Lookup("quiet")); err != nil {
		return err
	}

	// Enable environment variable support with GAUNTLET_ prefix
	v.SetEnvPrefix("GAUNTLET")
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	for _, valid := range ValidOutputFormats() {
		if format == valid {
			return true
		}
	}
	return false
}

// ExitCodeForError maps an error onto the CLI exit code contract.
// Interrupts win over everything else: a batch cancelled while the
// backend was also rate limited still exits 130.
func ExitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case stderrors.Is(err, errors.ErrInterrupted):
		return ExitInterrupted
	case errors.IsRateLimited(err):
		return ExitRateLimited
	default:
		return ExitError
	}
}
