package constants

// Log file names and patterns.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.gauntlet/logs/gauntlet.log
	CLILogFileName = "gauntlet.log"

	// WorkerLogPattern is the printf pattern for per-worker log files
	// created under the results directory's logs/ subdirectory.
	WorkerLogPattern = "worker-%d.log"
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global GAUNTLET configuration file.
	// This file is located in the GAUNTLET home directory.
	GlobalConfigName = "config.yaml"

	// ProjectConfigDir is the per-project directory that holds the
	// project configuration file.
	ProjectConfigDir = ".gauntlet"
)
