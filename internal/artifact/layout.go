// Package artifact defines the on-disk run directory layout and typed
// access to the files a unit execution leaves behind.
//
// Each unit owns one run directory, results/<tier>/<subtest>/run-<N>/,
// holding up to three files: the raw event stream (output.jsonl), the
// terminal marker (result.json), and the derived summary (summary.json).
// The execution harness writes the first two; the summary is either
// written by the harness or regenerated later from the raw stream.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// dirPerm is the permission for created run and log directories.
const dirPerm = 0o750

// Layout maps units to their run directories under a results root.
type Layout struct {
	// Root is the results directory all run directories live under.
	Root string
}

// NewLayout returns a Layout rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{Root: dir}
}

// RunDir returns the unit's run directory path.
func (l Layout) RunDir(unit domain.Unit) string {
	return filepath.Join(l.Root, unit.Tier, unit.Subtest, fmt.Sprintf("run-%d", unit.Run))
}

// ResultPath returns the unit's terminal marker path.
func (l Layout) ResultPath(unit domain.Unit) string {
	return filepath.Join(l.RunDir(unit), constants.ResultFileName)
}

// RawOutputPath returns the unit's raw event stream path.
func (l Layout) RawOutputPath(unit domain.Unit) string {
	return filepath.Join(l.RunDir(unit), constants.RawOutputFileName)
}

// SummaryPath returns the unit's derived summary path.
func (l Layout) SummaryPath(unit domain.Unit) string {
	return filepath.Join(l.RunDir(unit), constants.SummaryFileName)
}

// LogsDir returns the directory for per-worker log files.
func (l Layout) LogsDir() string {
	return filepath.Join(l.Root, constants.LogsDir)
}

// WorkerLogPath returns the log file path for the 1-based worker slot.
func (l Layout) WorkerLogPath(worker int) string {
	return filepath.Join(l.LogsDir(), fmt.Sprintf(constants.WorkerLogPattern, worker))
}

// CheckpointPath returns the default checkpoint location under the root.
func (l Layout) CheckpointPath() string {
	return filepath.Join(l.Root, constants.CheckpointFileName)
}

// EnsureRunDir creates the unit's run directory if it does not exist.
func (l Layout) EnsureRunDir(unit domain.Unit) error {
	if err := os.MkdirAll(l.RunDir(unit), dirPerm); err != nil {
		return gauntleterrors.Wrapf(err, "failed to create run directory for unit %s", unit.ID())
	}
	return nil
}

// EnsureLogsDir creates the per-worker log directory if it does not exist.
func (l Layout) EnsureLogsDir() error {
	if err := os.MkdirAll(l.LogsDir(), dirPerm); err != nil {
		return gauntleterrors.Wrap(err, "failed to create logs directory")
	}
	return nil
}
