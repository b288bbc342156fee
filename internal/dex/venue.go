package dex

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"dexflow/internal/domain"

	"github.com/shopspring/decimal"
)

// basePrice anchors the simulated market. Venues quote within their
// variance window around it.
const basePrice = 1.0

// Venue simulates a single liquidity source. Quotes carry bounded random
// price variance and a venue-specific fee; execution has randomized
// latency and a fixed failure probability.
type Venue struct {
	provider domain.Provider
	feeRate  decimal.Decimal

	// price multiplier drawn uniformly from [priceLow, priceLow+priceSpan)
	priceLow  float64
	priceSpan float64

	quoteLatency time.Duration
	execMin      time.Duration
	execJitter   time.Duration
	failureRate  float64
}

// VenueParams configures a simulated venue.
type VenueParams struct {
	Provider     domain.Provider
	FeeRate      decimal.Decimal
	PriceLow     float64
	PriceSpan    float64
	QuoteLatency time.Duration
	ExecMin      time.Duration
	ExecJitter   time.Duration
	FailureRate  float64
}

// NewVenue creates a simulated venue.
func NewVenue(p VenueParams) *Venue {
	return &Venue{
		provider:     p.Provider,
		feeRate:      p.FeeRate,
		priceLow:     p.PriceLow,
		priceSpan:    p.PriceSpan,
		quoteLatency: p.QuoteLatency,
		execMin:      p.ExecMin,
		execJitter:   p.ExecJitter,
		failureRate:  p.FailureRate,
	}
}

// Provider returns the venue's identity.
func (v *Venue) Provider() domain.Provider {
	return v.provider
}

// Quote simulates quote retrieval for a trade size. Safe to call
// concurrently across venues.
func (v *Venue) Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal) (*domain.Quote, error) {
	if err := sleep(ctx, v.quoteLatency); err != nil {
		return nil, err
	}

	price := decimal.NewFromFloat(basePrice * (v.priceLow + rand.Float64()*v.priceSpan))
	amountOut := amountIn.Mul(price).Mul(decimal.NewFromInt(1).Sub(v.feeRate))

	return &domain.Quote{
		Provider:  v.provider,
		Price:     price,
		FeeRate:   v.feeRate,
		AmountOut: amountOut,
		Latency:   v.executionDelay(),
	}, nil
}

// Execute simulates swap execution. A fresh quote determines the final
// price; a fixed small fraction of executions fails with a retriable error.
func (v *Venue) Execute(ctx context.Context, o *domain.Order) (*domain.SwapResult, error) {
	if err := sleep(ctx, v.executionDelay()); err != nil {
		return nil, err
	}

	quote, err := v.Quote(ctx, o.TokenIn, o.TokenOut, o.AmountIn)
	if err != nil {
		return nil, err
	}

	if rand.Float64() < v.failureRate {
		return nil, domain.NewExecutionError("swap", v.provider, errors.New("network timeout"))
	}

	return &domain.SwapResult{
		TxHash:        mockTxHash(),
		ExecutedPrice: quote.Price,
		AmountOut:     quote.AmountOut,
	}, nil
}

func (v *Venue) executionDelay() time.Duration {
	if v.execJitter <= 0 {
		return v.execMin
	}
	return v.execMin + time.Duration(rand.Int63n(int64(v.execJitter)))
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
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

const hexDigits = "0123456789abcdef"

// mockTxHash generates a 0x-prefixed 64 hex digit transaction hash.
func mockTxHash() string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = hexDigits[rand.Intn(16)]
	}
	return "0x" + string(b)
}
