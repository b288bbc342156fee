package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ordersSubmitted atomic.Uint64
	ordersConfirmed atomic.Uint64
	ordersFailed    atomic.Uint64
	retriesTotal    atomic.Uint64
	jobsDeduped     atomic.Uint64

	// Latency tracking for quote fan-out
	quoteLatencySumNs atomic.Int64
	quoteLatencyCount atomic.Uint64

	// Gauges
	activeSubscribers atomic.Int32
	activeJobs        atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordSubmission records a newly accepted order.
func (m *Metrics) RecordSubmission() {
	m.ordersSubmitted.Add(1)
}

// RecordConfirmed records a successfully executed order.
func (m *Metrics) RecordConfirmed() {
	m.ordersConfirmed.Add(1)
}

// RecordFailed records a terminally failed order.
func (m *Metrics) RecordFailed() {
	m.ordersFailed.Add(1)
}

// RecordRetry records one retry attempt.
func (m *Metrics) RecordRetry() {
	m.retriesTotal.Add(1)
}

// RecordDedup records an enqueue suppressed by the dedup key.
func (m *Metrics) RecordDedup() {
	m.jobsDeduped.Add(1)
}

// RecordQuoteLatency records one best-quote fan-out duration.
func (m *Metrics) RecordQuoteLatency(d time.Duration) {
	m.quoteLatencySumNs.Add(d.Nanoseconds())
	m.quoteLatencyCount.Add(1)
}

// AvgQuoteLatency returns the mean fan-out latency observed so far.
func (m *Metrics) AvgQuoteLatency() time.Duration {
	count := m.quoteLatencyCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(m.quoteLatencySumNs.Load() / int64(count))
}

// IncrementSubscribers increments active subscribers by 1.
func (m *Metrics) IncrementSubscribers() {
	m.activeSubscribers.Add(1)
}

// DecrementSubscribers decrements active subscribers by 1.
func (m *Metrics) DecrementSubscribers() {
	m.activeSubscribers.Add(-1)
}

// IncrementJobs increments in-flight jobs by 1.
func (m *Metrics) IncrementJobs() {
	m.activeJobs.Add(1)
}

// DecrementJobs decrements in-flight jobs by 1.
func (m *Metrics) DecrementJobs() {
	m.activeJobs.Add(-1)
}

// Snapshot returns a point-in-time copy of all counters and gauges.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		OrdersSubmitted:   m.ordersSubmitted.Load(),
		OrdersConfirmed:   m.ordersConfirmed.Load(),
		OrdersFailed:      m.ordersFailed.Load(),
		RetriesTotal:      m.retriesTotal.Load(),
		JobsDeduped:       m.jobsDeduped.Load(),
		ActiveSubscribers: m.activeSubscribers.Load(),
		ActiveJobs:        m.activeJobs.Load(),
		AvgQuoteLatency:   m.AvgQuoteLatency(),
	}
}

// MetricsSnapshot is a read-only view of current metric values.
type MetricsSnapshot struct {
	OrdersSubmitted   uint64
	OrdersConfirmed   uint64
	OrdersFailed      uint64
	RetriesTotal      uint64
	JobsDeduped       uint64
	ActiveSubscribers int32
	ActiveJobs        int32
	AvgQuoteLatency   time.Duration
}
