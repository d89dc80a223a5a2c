package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability on the hot path.
// Uses atomic operations for thread-safety; Prometheus reads it through
// the collector in prometheus.go.
type Metrics struct {
	// Counters
	instructionsProcessed atomic.Uint64
	salesCompleted        atomic.Uint64
	errorsTotal           atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32 // event feed subscribers
	publisherDown     atomic.Int32 // 1 = last publish failed
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordInstruction records a committed instruction with latency.
func (m *Metrics) RecordInstruction(latencyNs int64) {
	m.instructionsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordError records a rejected instruction or infrastructure failure.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordSale records a completed purchase.
func (m *Metrics) RecordSale() {
	m.salesCompleted.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// SetPublisherState records whether the broker publisher is failing.
func (m *Metrics) SetPublisherState(down bool) {
	if down {
		m.publisherDown.Store(1)
	} else {
		m.publisherDown.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	InstructionsProcessed uint64
	SalesCompleted        uint64
	ErrorsTotal           uint64
	AvgLatencyNs          int64
	ActiveConnections     int32
	PublisherDown         bool
	Timestamp             time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		InstructionsProcessed: m.instructionsProcessed.Load(),
		SalesCompleted:        m.salesCompleted.Load(),
		ErrorsTotal:           m.errorsTotal.Load(),
		AvgLatencyNs:          avgLatency,
		ActiveConnections:     m.activeConnections.Load(),
		PublisherDown:         m.publisherDown.Load() == 1,
		Timestamp:             time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.instructionsProcessed.Store(0)
	m.salesCompleted.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
	m.publisherDown.Store(0)
}
