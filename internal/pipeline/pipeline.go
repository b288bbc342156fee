package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dexflow/internal/domain"
	"dexflow/internal/infra"
	"dexflow/internal/queue"
)

// Redeliverer re-injects an order id into the worker pool after a
// backoff. Implemented by the submission queue.
type Redeliverer interface {
	Redeliver(orderID string)
}

// Pipeline drives a dequeued order through the execution state machine:
// PENDING → ROUTING → BUILDING → SUBMITTED → CONFIRMED, or FAILED once
// the retry budget is spent. All retry policy lives here; the queue only
// delivers.
type Pipeline struct {
	store  domain.OrderStore
	cache  domain.ActiveCache
	pub    domain.StatusPublisher
	router domain.QuoteRouter

	maxRetries  int
	backoffBase time.Duration
	buildDelay  time.Duration

	redeliver Redeliverer
}

// New wires the pipeline's collaborators. AttachQueue must be called
// before the first delivery.
func New(store domain.OrderStore, cache domain.ActiveCache, pub domain.StatusPublisher, router domain.QuoteRouter, cfg *infra.Config) *Pipeline {
	return &Pipeline{
		store:       store,
		cache:       cache,
		pub:         pub,
		router:      router,
		maxRetries:  cfg.Pipeline.MaxRetries,
		backoffBase: cfg.BackoffBase(),
		buildDelay:  cfg.BuildDelay(),
	}
}

// AttachQueue sets the redelivery target for retry continuations.
func (p *Pipeline) AttachQueue(r Redeliverer) {
	p.redeliver = r
}

// Process runs one full attempt for the order. A transient routing or
// swap failure arms a delayed redelivery and returns
// queue.ErrRetryScheduled; the next delivery restarts the whole pipeline
// from the top (full re-route, not resumption of the failed step).
func (p *Pipeline) Process(ctx context.Context, orderID string) error {
	o, err := p.store.GetOrder(orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if o.Status.IsTerminal() {
		slog.Warn("order already terminal", slog.String("order_id", orderID), slog.String("status", string(o.Status)))
		return nil
	}

	cur, err := p.transition(*o, func(o *domain.Order) {
		o.Status = domain.StatusRouting
	})
	if err != nil {
		return err
	}

	quote, err := p.router.GetBestQuote(ctx, cur.TokenIn, cur.TokenOut, cur.AmountIn)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.retry(cur, err)
	}

	cur, err = p.transition(cur, func(o *domain.Order) {
		o.Status = domain.StatusBuilding
		o.DexProvider = quote.Provider
	})
	if err != nil {
		return err
	}

	// Simulated transaction build.
	if err := wait(ctx, p.buildDelay); err != nil {
		return err
	}

	cur, err = p.transition(cur, func(o *domain.Order) {
		o.Status = domain.StatusSubmitted
	})
	if err != nil {
		return err
	}

	result, err := p.router.ExecuteSwap(ctx, cur.DexProvider, &cur)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.retry(cur, err)
	}

	cur, err = p.transition(cur, func(o *domain.Order) {
		o.Status = domain.StatusConfirmed
		o.TxHash = result.TxHash
		o.ExecutedPrice = result.ExecutedPrice
		o.AmountOut = result.AmountOut
	})
	if err != nil {
		return err
	}

	// Terminal: the durable record stays, the in-flight snapshot goes.
	p.cache.Remove(cur.ID)
	infra.GlobalMetrics.RecordConfirmed()

	slog.Info("order confirmed",
		slog.String("order_id", cur.ID),
		slog.String("venue", string(cur.DexProvider)),
		slog.String("tx_hash", cur.TxHash),
	)
	return nil
}

// transition applies a pure mutation to a copy of the order, persists it,
// mirrors it into the cache, and publishes the update — in that order.
// A persistence failure aborts the attempt and is never retried here.
func (p *Pipeline) transition(cur domain.Order, mutate func(*domain.Order)) (domain.Order, error) {
	next := cur
	mutate(&next)

	if next.Status != cur.Status && !domain.ValidTransition(cur.Status, next.Status) {
		return cur, fmt.Errorf("illegal transition %s -> %s for order %s", cur.Status, next.Status, cur.ID)
	}
	next.UpdatedAt = time.Now()

	if err := p.store.SaveOrder(&next); err != nil {
		return cur, err
	}
	if err := p.cache.Set(next.ID, &next); err != nil {
		return cur, err
	}
	p.pub.Publish(next.ID, domain.UpdateFromOrder(&next))

	return next, nil
}

// retry either arms the delayed continuation or, with the budget spent,
// marks the order terminally failed.
func (p *Pipeline) retry(cur domain.Order, cause error) error {
	if cur.RetryCount < p.maxRetries {
		next := cur
		next.RetryCount++
		next.UpdatedAt = time.Now()

		// Persist the incremented count before waiting; status is
		// unchanged until the restart flips it back to routing.
		if err := p.store.SaveOrder(&next); err != nil {
			return err
		}
		if err := p.cache.Set(next.ID, &next); err != nil {
			return err
		}

		backoff := p.backoffBase << next.RetryCount
		infra.GlobalMetrics.RecordRetry()
		slog.Warn("retrying order",
			slog.String("order_id", next.ID),
			slog.Int("attempt", next.RetryCount),
			slog.Int("max", p.maxRetries),
			slog.Duration("backoff", backoff),
			slog.Any("error", cause),
		)

		// The worker slot frees immediately; the continuation re-enters
		// the pool when the timer fires.
		orderID := next.ID
		time.AfterFunc(backoff, func() {
			p.redeliver.Redeliver(orderID)
		})
		return queue.ErrRetryScheduled
	}

	failed, err := p.transition(cur, func(o *domain.Order) {
		o.Status = domain.StatusFailed
		o.Error = cause.Error()
	})
	if err != nil {
		return err
	}

	p.cache.Remove(failed.ID)
	infra.GlobalMetrics.RecordFailed()

	slog.Error("order failed",
		slog.String("order_id", failed.ID),
		slog.Int("retries", failed.RetryCount),
		slog.Any("error", cause),
	)
	return &domain.TerminalError{OrderID: failed.ID, Attempts: failed.RetryCount, Err: cause}
}

// wait sleeps for d or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
