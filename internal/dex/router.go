package dex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dexflow/internal/domain"
	"dexflow/internal/infra"

	"github.com/shopspring/decimal"
)

// Router fans quote requests out to every known venue and arbitrates the
// winner. Venue order is the fixed routing priority: on an exact tie the
// earlier venue keeps the trade.
type Router struct {
	venues []*Venue
}

// NewRouter builds the production venue set (Raydium, Meteora) from config.
func NewRouter(cfg *infra.Config) *Router {
	quoteLatency := time.Duration(cfg.Dex.QuoteLatencyMS) * time.Millisecond
	execMin := time.Duration(cfg.Dex.ExecutionMinMS) * time.Millisecond
	execJitter := time.Duration(cfg.Dex.ExecutionJitterMS) * time.Millisecond

	return NewRouterWithVenues(
		NewVenue(VenueParams{
			Provider:     domain.ProviderRaydium,
			FeeRate:      decimal.NewFromFloat(0.003),
			PriceLow:     0.98,
			PriceSpan:    0.04,
			QuoteLatency: quoteLatency,
			ExecMin:      execMin,
			ExecJitter:   execJitter,
			FailureRate:  cfg.Dex.FailureRate,
		}),
		NewVenue(VenueParams{
			Provider:     domain.ProviderMeteora,
			FeeRate:      decimal.NewFromFloat(0.002),
			PriceLow:     0.97,
			PriceSpan:    0.05,
			QuoteLatency: quoteLatency,
			ExecMin:      execMin,
			ExecJitter:   execJitter,
			FailureRate:  cfg.Dex.FailureRate,
		}),
	)
}

// NewRouterWithVenues builds a router over an explicit venue list.
// The slice order is the routing priority.
func NewRouterWithVenues(venues ...*Venue) *Router {
	return &Router{venues: venues}
}

// GetBestQuote requests quotes from all venues concurrently, waits for
// every venue to answer, and returns the quote with the highest amountOut.
func (r *Router) GetBestQuote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal) (*domain.Quote, error) {
	if len(r.venues) == 0 {
		return nil, domain.ErrNoQuotes
	}

	start := time.Now()
	quotes := make([]*domain.Quote, len(r.venues))
	errs := make([]error, len(r.venues))

	var wg sync.WaitGroup
	for i, v := range r.venues {
		wg.Add(1)
		go func(i int, v *Venue) {
			defer wg.Done()
			quotes[i], errs[i] = v.Quote(ctx, tokenIn, tokenOut, amountIn)
		}(i, v)
	}
	// All venues complete before arbitration; slower venues are not cancelled.
	wg.Wait()
	infra.GlobalMetrics.RecordQuoteLatency(time.Since(start))

	for i, err := range errs {
		if err != nil {
			return nil, domain.NewExecutionError("quote", r.venues[i].Provider(), err)
		}
	}

	// Strict greater-than keeps the earlier-priority venue on ties.
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.AmountOut.GreaterThan(best.AmountOut) {
			best = q
		}
	}

	slog.Debug("dex routing decision",
		slog.String("selected", string(best.Provider)),
		slog.String("amountOut", best.AmountOut.String()),
		slog.String("price", best.Price.String()),
	)

	return best, nil
}

// ExecuteSwap runs the swap on the chosen venue.
func (r *Router) ExecuteSwap(ctx context.Context, provider domain.Provider, o *domain.Order) (*domain.SwapResult, error) {
	for _, v := range r.venues {
		if v.Provider() == provider {
			return v.Execute(ctx, o)
		}
	}
	return nil, fmt.Errorf("unknown venue: %s", provider)
}
