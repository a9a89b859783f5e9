package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/gauntlet/internal/constants"
)

func TestNoopMetrics_ImplementsInterface(t *testing.T) {
	// Verify NoopMetrics implements Metrics interface
	var m Metrics = NoopMetrics{}
	assert.NotNil(t, m)
}

func TestNoopMetrics_MethodsDoNotPanic(t *testing.T) {
	m := NoopMetrics{}

	// All methods should complete without panicking
	assert.NotPanics(t, func() {
		m.BatchStarted(10, 4)
	})

	assert.NotPanics(t, func() {
		m.BatchFinished(10, 0, time.Second)
	})

	assert.NotPanics(t, func() {
		m.UnitStarted("core/parse/run-1", 1)
	})

	assert.NotPanics(t, func() {
		m.UnitFinished("core/parse/run-1", 1, constants.RunStatusPass, time.Second)
	})

	assert.NotPanics(t, func() {
		m.UnitAbandoned("core/parse/run-1", 1)
	})
}

// recordingMetrics is a test implementation that counts calls for
// verification.
type recordingMetrics struct {
	mu             sync.Mutex
	batchStarted   int
	batchFinished  int
	unitsStarted   int
	unitsFinished  int
	unitsAbandoned int
	lastAppended   int
}

func (m *recordingMetrics) BatchStarted(int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchStarted++
}

func (m *recordingMetrics) BatchFinished(appended, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchFinished++
	m.lastAppended = appended
}

func (m *recordingMetrics) UnitStarted(string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unitsStarted++
}

func (m *recordingMetrics) UnitFinished(string, int, constants.RunStatus, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unitsFinished++
}

func (m *recordingMetrics) UnitAbandoned(string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unitsAbandoned++
}
