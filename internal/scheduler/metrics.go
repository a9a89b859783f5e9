package scheduler

import (
	"time"

	"github.com/mrz1836/gauntlet/internal/constants"
)

// Metrics collects metrics about batch and unit execution.
// Implementations can send these to monitoring systems like Prometheus,
// StatsD, or custom observability platforms.
type Metrics interface {
	// BatchStarted is called when a scheduling pass begins.
	BatchStarted(units, workers int)

	// BatchFinished is called when a scheduling pass ends, whether the
	// queue drained or cancellation stopped it early.
	BatchFinished(appended, abandoned int, duration time.Duration)

	// UnitStarted is called when a worker pulls a unit from the queue.
	UnitStarted(unitID string, worker int)

	// UnitFinished is called after a unit's record is durable in the
	// checkpoint.
	UnitFinished(unitID string, worker int, status constants.RunStatus, duration time.Duration)

	// UnitAbandoned is called when cancellation interrupts a unit
	// mid-flight, leaving no record behind.
	UnitAbandoned(unitID string, worker int)
}

// NoopMetrics is a no-op implementation of Metrics for default behavior.
// Use this when metrics collection is not needed.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Metrics interface.
var _ Metrics = (*NoopMetrics)(nil)

// BatchStarted implements Metrics.
func (NoopMetrics) BatchStarted(int, int) {}

// BatchFinished implements Metrics.
func (NoopMetrics) BatchFinished(int, int, time.Duration) {}

// UnitStarted implements Metrics.
func (NoopMetrics) UnitStarted(string, int) {}

// UnitFinished implements Metrics.
func (NoopMetrics) UnitFinished(string, int, constants.RunStatus, time.Duration) {}

// UnitAbandoned implements Metrics.
func (NoopMetrics) UnitAbandoned(string, int) {}
