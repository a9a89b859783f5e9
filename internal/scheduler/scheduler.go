// Package scheduler runs benchmark units across a fixed pool of workers.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/checkpoint"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/ctxutil"
	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
	"github.com/mrz1836/gauntlet/internal/executor"
)

// Scheduler feeds a shared queue of units to a fixed pool of workers.
// Each worker owns one append-mode log file for the invocation's
// lifetime and checkpoints every finished unit before pulling the next
// one, so an interrupt loses at most one in-flight unit per worker.
type Scheduler struct {
	executor executor.UnitExecutor
	store    checkpoint.Store
	layout   artifact.Layout
	snapshot domain.ConfigSnapshot
	workers  int
	metrics  Metrics
	logger   zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics sets the metrics collector. Defaults to NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithSchedulerLogger sets the logger for pool-level events. Worker and
// unit events go to the per-worker log files instead.
func WithSchedulerLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a Scheduler that executes units with exec, records them
// through store, and writes worker logs under layout's logs directory.
// The worker count is clamped to [1, constants.MaxWorkers]; zero or
// negative values fall back to constants.DefaultWorkers.
func New(exec executor.UnitExecutor, store checkpoint.Store, layout artifact.Layout, snapshot domain.ConfigSnapshot, workers int, opts ...Option) (*Scheduler, error) {
	if exec == nil {
		return nil, fmt.Errorf("failed to create scheduler: executor %w", gauntleterrors.ErrEmptyValue)
	}
	if store == nil {
		return nil, fmt.Errorf("failed to create scheduler: checkpoint store %w", gauntleterrors.ErrEmptyValue)
	}

	if workers <= 0 {
		workers = constants.DefaultWorkers
	}
	if workers > constants.MaxWorkers {
		workers = constants.MaxWorkers
	}

	s := &Scheduler{
		executor: exec,
		store:    store,
		layout:   layout,
		snapshot: snapshot,
		workers:  workers,
		metrics:  NoopMetrics{},
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Result reports what a scheduling pass accomplished.
type Result struct {
	// Appended holds the records made durable during this pass, in
	// completion order. Completion order is not deterministic across
	// workers.
	Appended []domain.RunRecord

	// Abandoned holds units a worker had pulled when cancellation hit.
	// They left no record, so a resumed invocation re-executes them.
	Abandoned []domain.Unit
}

// Run executes every unit in units and returns once the queue drains or
// cancellation stops the pool. A checkpoint append failure aborts the
// whole pass because progress can no longer be made durable; the error
// from the failed append is returned. On cancellation Run returns
// ctx.Err() alongside the partial result.
func (s *Scheduler) Run(ctx context.Context, units []domain.Unit) (*Result, error) {
	res := &Result{}
	if len(units) == 0 {
		return res, nil
	}
	if err := ctxutil.Canceled(ctx); err != nil {
		return res, err
	}
	if err := s.layout.EnsureLogsDir(); err != nil {
		return res, fmt.Errorf("failed to create worker log directory: %w", err)
	}

	workers := s.workers
	if workers > len(units) {
		workers = len(units)
	}

	queue := make(chan domain.Unit, len(units))
	for _, u := range units {
		queue <- u
	}
	close(queue)

	s.logger.Info().
		Int("units", len(units)).
		Int("workers", workers).
		Msg("starting worker pool")
	s.metrics.BatchStarted(len(units), workers)
	start := time.Now()

	var mu sync.Mutex
	g, runCtx := errgroup.WithContext(ctx)
	for i := 1; i <= workers; i++ {
		g.Go(func() error {
			return s.runWorker(runCtx, i, queue, res, &mu)
		})
	}
	err := g.Wait()

	s.metrics.BatchFinished(len(res.Appended), len(res.Abandoned), time.Since(start))
	s.logger.Info().
		Int("appended", len(res.Appended)).
		Int("abandoned", len(res.Abandoned)).
		Dur("duration", time.Since(start)).
		Msg("worker pool finished")

	return res, err
}

// runWorker is one worker's loop: pull a unit, execute it, make its
// record durable, repeat. It exits when the queue drains, cancellation
// is observed between units, or an append fails.
func (s *Scheduler) runWorker(ctx context.Context, slot int, queue <-chan domain.Unit, res *Result, mu *sync.Mutex) error {
	logger, closeLog := s.workerLogger(slot)
	defer closeLog()

	logger.Info().Msg("worker started")

	// Unit executions log to this worker's file.
	workerCtx := logger.WithContext(ctx)

	for {
		// A select alone could still pull from a ready queue after
		// cancellation; checking first keeps "stop between units"
		// deterministic.
		if err := ctxutil.Canceled(ctx); err != nil {
			logger.Info().Msg("worker stopping on cancellation")
			return err
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopping on cancellation")
			return ctx.Err()
		case unit, ok := <-queue:
			if !ok {
				logger.Info().Msg("worker finished, queue drained")
				return nil
			}
			if err := s.runUnit(workerCtx, slot, unit, res, mu, logger); err != nil {
				return err
			}
		}
	}
}

// runUnit executes a single unit and appends its record. A nil return
// means the worker may pull the next unit.
func (s *Scheduler) runUnit(ctx context.Context, slot int, unit domain.Unit, res *Result, mu *sync.Mutex, logger zerolog.Logger) error {
	s.metrics.UnitStarted(unit.ID(), slot)

	rec, err := s.executor.Execute(ctx, unit)
	if err != nil {
		// Cancellation mid-unit. Nothing was recorded, so the next
		// invocation re-executes the unit from scratch.
		logger.Warn().Str("unit", unit.ID()).Msg("unit abandoned")
		mu.Lock()
		res.Abandoned = append(res.Abandoned, unit)
		mu.Unlock()
		s.metrics.UnitAbandoned(unit.ID(), slot)
		return err
	}

	rec.Worker = slot

	// A finished unit's record must reach the checkpoint even when
	// cancellation raced the finish; the append itself is never
	// interrupted.
	appendCtx := context.WithoutCancel(ctx)
	if err := s.store.Append(appendCtx, rec, s.snapshot); err != nil {
		logger.Error().Err(err).Str("unit", unit.ID()).Msg("checkpoint append failed")
		return fmt.Errorf("failed to checkpoint unit %s: %w", unit.ID(), err)
	}

	mu.Lock()
	res.Appended = append(res.Appended, rec)
	mu.Unlock()

	duration := time.Duration(rec.DurationSeconds * float64(time.Second))
	s.metrics.UnitFinished(unit.ID(), slot, rec.Status, duration)
	return nil
}

// workerLogger opens the worker's rotating append-mode log file. The
// returned close function flushes and releases it; runWorker defers it
// so the file closes on both normal and cancelled exit.
func (s *Scheduler) workerLogger(slot int) (zerolog.Logger, func()) {
	lj := &lumberjack.Logger{
		Filename:   s.layout.WorkerLogPath(slot),
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
	}

	logger := zerolog.New(lj).With().Timestamp().Int("worker", slot).Logger()

	closeFn := func() {
		if err := lj.Close(); err != nil {
			s.logger.Warn().Err(err).Int("worker", slot).Msg("failed to close worker log")
		}
	}
	return logger, closeFn
}
