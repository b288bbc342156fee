package infra

import (
	"testing"
	"time"
)

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordSubmission()
	m.RecordSubmission()
	m.RecordConfirmed()
	m.RecordFailed()
	m.RecordRetry()
	m.RecordRetry()
	m.RecordRetry()
	m.RecordDedup()

	snap := m.Snapshot()
	if snap.OrdersSubmitted != 2 {
		t.Errorf("Expected 2 submissions, got %d", snap.OrdersSubmitted)
	}
	if snap.OrdersConfirmed != 1 {
		t.Errorf("Expected 1 confirmation, got %d", snap.OrdersConfirmed)
	}
	if snap.OrdersFailed != 1 {
		t.Errorf("Expected 1 failure, got %d", snap.OrdersFailed)
	}
	if snap.RetriesTotal != 3 {
		t.Errorf("Expected 3 retries, got %d", snap.RetriesTotal)
	}
	if snap.JobsDeduped != 1 {
		t.Errorf("Expected 1 deduped job, got %d", snap.JobsDeduped)
	}
}

func TestMetrics_QuoteLatency(t *testing.T) {
	m := &Metrics{}

	m.RecordQuoteLatency(100 * time.Millisecond)
	m.RecordQuoteLatency(300 * time.Millisecond)

	if avg := m.AvgQuoteLatency(); avg != 200*time.Millisecond {
		t.Errorf("Expected avg 200ms, got %v", avg)
	}
}

func TestMetrics_Gauges(t *testing.T) {
	m := &Metrics{}

	m.IncrementSubscribers()
	m.IncrementSubscribers()
	m.DecrementSubscribers()

	snap := m.Snapshot()
	if snap.ActiveSubscribers != 1 {
		t.Errorf("Expected 1 subscriber, got %d", snap.ActiveSubscribers)
	}

	m.IncrementJobs()
	snap = m.Snapshot()
	if snap.ActiveJobs != 1 {
		t.Errorf("Expected 1 active job, got %d", snap.ActiveJobs)
	}
	m.DecrementJobs()
	snap = m.Snapshot()
	if snap.ActiveJobs != 0 {
		t.Errorf("Expected 0 active jobs, got %d", snap.ActiveJobs)
	}
}
