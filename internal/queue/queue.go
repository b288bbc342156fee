package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dexflow/internal/domain"
	"dexflow/internal/infra"
)

// ErrRetryScheduled is returned by a job handler that armed its own
// delayed redelivery. The dedup entry stays held so outside enqueues
// keep deduplicating while the backoff runs.
var ErrRetryScheduled = errors.New("retry scheduled")

// Handler processes one delivered order id. It is invoked exactly once
// per delivery; the queue never retries on its own.
type Handler func(ctx context.Context, orderID string) error

// Queue is the deduplicating, rate-limited submission queue. The order
// id is the job key: while a job for an id is waiting or active, further
// enqueues for the same id are no-ops, which also guarantees at most one
// pipeline run per order at any time.
type Queue struct {
	concurrency int
	limit       int
	window      time.Duration

	handler Handler

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool

	deliveries chan string
	wg         sync.WaitGroup

	rateMu      sync.Mutex
	windowStart time.Time
	delivered   int
}

// New creates a queue with a worker pool of the given concurrency,
// limited to `limit` deliveries per `window`.
func New(concurrency, limit int, window time.Duration) *Queue {
	return &Queue{
		concurrency: concurrency,
		limit:       limit,
		window:      window,
		inflight:    make(map[string]struct{}),
		deliveries:  make(chan string, 1024),
	}
}

// OnJob registers the job handler. Must be called before Start.
func (q *Queue) OnJob(h Handler) {
	q.handler = h
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.concurrency; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	slog.Info("queue started",
		slog.Int("concurrency", q.concurrency),
		slog.Int("rate_limit", q.limit),
		slog.Duration("rate_window", q.window),
	)
}

// Stop rejects further enqueues and waits for workers to exit. The
// context passed to Start must be cancelled first.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue schedules an order for processing. Idempotent: a second call
// while a job for the same id is waiting or active creates no second job.
func (q *Queue) Enqueue(orderID string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrQueueClosed
	}
	if _, dup := q.inflight[orderID]; dup {
		q.mu.Unlock()
		infra.GlobalMetrics.RecordDedup()
		slog.Debug("duplicate job suppressed", slog.String("order_id", orderID))
		return nil
	}
	q.inflight[orderID] = struct{}{}
	q.mu.Unlock()

	q.deliveries <- orderID
	slog.Debug("order enqueued", slog.String("order_id", orderID))
	return nil
}

// Redeliver re-injects an id whose dedup entry is still held. Only the
// pipeline's retry scheduler calls this; it must never be used for ids
// that were not delivered before.
func (q *Queue) Redeliver(orderID string) {
	q.mu.Lock()
	if q.closed {
		// Shutdown won the race; the durable record keeps its retry count
		// and the order can be re-submitted on restart.
		delete(q.inflight, orderID)
		q.mu.Unlock()
		slog.Warn("redelivery dropped, queue closed", slog.String("order_id", orderID))
		return
	}
	q.mu.Unlock()

	q.deliveries <- orderID
}

// Pending reports whether a job for the id is currently waiting or active.
func (q *Queue) Pending(orderID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inflight[orderID]
	return ok
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case orderID := <-q.deliveries:
			if err := q.waitTurn(ctx); err != nil {
				return
			}
			q.deliver(ctx, orderID, id)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, orderID string, worker int) {
	infra.GlobalMetrics.IncrementJobs()
	defer infra.GlobalMetrics.DecrementJobs()

	slog.Info("processing order", slog.String("order_id", orderID), slog.Int("worker", worker))

	err := q.handler(ctx, orderID)
	if errors.Is(err, ErrRetryScheduled) {
		// Dedup entry stays held for the delayed continuation.
		return
	}

	q.mu.Lock()
	delete(q.inflight, orderID)
	q.mu.Unlock()

	if err != nil {
		slog.Error("job failed", slog.String("order_id", orderID), slog.Any("error", err))
		return
	}
	slog.Info("job completed", slog.String("order_id", orderID))
}

// waitTurn blocks until the fixed-window rate limiter admits another
// delivery or the context is cancelled.
func (q *Queue) waitTurn(ctx context.Context) error {
	for {
		q.rateMu.Lock()
		now := time.Now()
		if q.windowStart.IsZero() || now.Sub(q.windowStart) >= q.window {
			q.windowStart = now
			q.delivered = 0
		}
		if q.delivered < q.limit {
			q.delivered++
			q.rateMu.Unlock()
			return nil
		}
		wait := q.window - now.Sub(q.windowStart)
		q.rateMu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
