// Package checkpoint persists batch progress across invocations.
// The store owns the checkpoint file's whole lifecycle: it is the only
// component that reads or writes the path, and every write replaces the
// file atomically so readers see either the previous checkpoint or the
// previous checkpoint plus exactly one record, never a torn file.
//
// No cross-process locking is provided here. Two orchestrator processes
// racing on the same path risk last-write-wins data loss; commands
// guard against that by holding the flock invocation lock for their
// whole lifetime before the store is ever opened.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gauntlet/internal/clock"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// dirPerm is the permission mode for created checkpoint directories.
const dirPerm = 0o750

// tmpPattern names the uniquely-suffixed temp files used for atomic
// replacement. Load reads only the checkpoint path itself, so a temp
// file orphaned by a killed process is inert; it is never auto-cleaned.
const tmpPattern = constants.CheckpointFileName + ".tmp-*"

// Store defines the interface for checkpoint persistence operations.
type Store interface {
	// Load reads the checkpoint from disk. An absent or unparseable file
	// yields an empty checkpoint and, for the unparseable case, a logged
	// warning; neither is an error. Only genuine I/O failures such as
	// permission denied propagate.
	Load(ctx context.Context) (*domain.Checkpoint, error)

	// Append adds one record and atomically rewrites the checkpoint.
	// Each append re-serializes the entire history, so the call is O(n)
	// in the number of stored records.
	Append(ctx context.Context, record domain.RunRecord, cfg domain.ConfigSnapshot) error

	// Rewrite atomically replaces the stored record list with the
	// records keep returns true for, preserving the header. A missing
	// checkpoint file is a no-op.
	Rewrite(ctx context.Context, keep func(domain.RunRecord) bool) error

	// Clear deletes the checkpoint file if present.
	Clear(ctx context.Context) error

	// Path returns the checkpoint file path.
	Path() string
}

// FileStore implements Store against a single JSON file on the local
// filesystem.
type FileStore struct {
	path   string
	clk    clock.Clock
	logger zerolog.Logger
}

// FileStoreOption is a functional option for configuring FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used for non-fatal load warnings.
func WithLogger(logger zerolog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithClock sets the clock used for checkpoint timestamps.
func WithClock(clk clock.Clock) FileStoreOption {
	return func(s *FileStore) {
		s.clk = clk
	}
}

// NewFileStore creates a FileStore for the given checkpoint path.
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("failed to create checkpoint store: path %w", gauntleterrors.ErrEmptyValue)
	}
	s := &FileStore{
		path:   path,
		clk:    clock.RealClock{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the checkpoint file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the checkpoint file.
func (s *FileStore) Load(ctx context.Context) (*domain.Checkpoint, error) {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(s.path) //#nosec G304 -- path is fixed at store construction
	if err != nil {
		if os.IsNotExist(err) {
			return emptyCheckpoint(), nil
		}
		return nil, fmt.Errorf("failed to read checkpoint '%s': %w", s.path, err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		// Treat a corrupt checkpoint as empty history: losing resume
		// state re-runs completed units, which is safe; refusing to
		// start would strand the whole batch.
		s.logger.Warn().
			Err(err).
			Str("path", s.path).
			Msg("checkpoint file is corrupt, starting with empty history")
		return emptyCheckpoint(), nil
	}

	if cp.Results == nil {
		cp.Results = []domain.RunRecord{}
	}
	return &cp, nil
}

// Append adds one record and rewrites the checkpoint atomically.
func (s *FileStore) Append(ctx context.Context, record domain.RunRecord, cfg domain.ConfigSnapshot) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if record.ID == "" {
		return fmt.Errorf("failed to append checkpoint record: record ID %w", gauntleterrors.ErrEmptyValue)
	}
	if !record.Status.Valid() {
		return fmt.Errorf("failed to append checkpoint record '%s': %w: %q", record.ID, gauntleterrors.ErrInvalidRunStatus, record.Status)
	}

	cp, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to append checkpoint record '%s': %w", record.ID, err)
	}

	now := s.clk.Now().UTC()
	if cp.StartedAt.IsZero() {
		cp.StartedAt = now
	}
	cp.CompletedAt = &now
	cp.Config = cfg
	cp.Results = append(cp.Results, record)

	if err := s.write(cp); err != nil {
		return fmt.Errorf("failed to append checkpoint record '%s': %w", record.ID, err)
	}
	return nil
}

// Rewrite filters the stored record list in place.
func (s *FileStore) Rewrite(ctx context.Context, keep func(domain.RunRecord) bool) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if keep == nil {
		return fmt.Errorf("failed to rewrite checkpoint: keep predicate %w", gauntleterrors.ErrEmptyValue)
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	cp, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to rewrite checkpoint: %w", err)
	}

	kept := make([]domain.RunRecord, 0, len(cp.Results))
	for _, rec := range cp.Results {
		if keep(rec) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(cp.Results) {
		return nil
	}
	cp.Results = kept

	if err := s.write(cp); err != nil {
		return fmt.Errorf("failed to rewrite checkpoint: %w", err)
	}
	return nil
}

// Clear deletes the checkpoint file if present.
func (s *FileStore) Clear(ctx context.Context) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear checkpoint '%s': %w", s.path, err)
	}
	return nil
}

// write serializes the checkpoint and replaces the file atomically via
// a uniquely-named temp file in the same directory. The unique name
// keeps concurrent appends from clobbering each other's temp file; the
// final rename is still last-write-wins.
func (s *FileStore) write(cp *domain.Checkpoint) error {
	if cp.SchemaVersion == "" {
		cp.SchemaVersion = constants.CheckpointSchemaVersion
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s", gauntleterrors.ErrCheckpointWrite, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: %s", gauntleterrors.ErrCheckpointWrite, err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("%w: %s", gauntleterrors.ErrCheckpointWrite, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %s", gauntleterrors.ErrCheckpointWrite, err)
	}

	// Sync to disk (ensure data is persisted before rename)
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %s", gauntleterrors.ErrCheckpointWrite, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %s", gauntleterrors.ErrCheckpointWrite, err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %s", gauntleterrors.ErrCheckpointWrite, err)
	}

	return nil
}

// emptyCheckpoint synthesizes the zero-history checkpoint Load returns
// for absent or corrupt files.
func emptyCheckpoint() *domain.Checkpoint {
	return &domain.Checkpoint{
		SchemaVersion: constants.CheckpointSchemaVersion,
		Results:       []domain.RunRecord{},
	}
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
