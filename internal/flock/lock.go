package flock

import (
	"fmt"
	"os"
	"path/filepath"

	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

const (
	// dirPerm is the permission mode for created lock file directories.
	dirPerm = 0o750

	// filePerm is the permission mode for created lock files.
	filePerm = 0o600
)

// Lock is a held exclusive lock on a results tree, backed by an open
// lock file. Release it with Release; it is also released implicitly
// when the process exits.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive non-blocking lock on the file at path,
// creating the file and any missing parent directories. Contention
// returns an error wrapping ErrResultsLocked; open or mkdir failures
// return the underlying error instead, so callers can tell a held lock
// from a broken path.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePerm) //#nosec G304 -- path derives from the configured checkpoint location
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := exclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", gauntleterrors.ErrResultsLocked, path)
	}

	return &Lock{f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.f.Name()
}

// Release unlocks and closes the lock file. The file itself stays on
// disk; only the kernel lock state matters for contention.
func (l *Lock) Release() error {
	if err := unlock(l.f.Fd()); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return l.f.Close()
}
