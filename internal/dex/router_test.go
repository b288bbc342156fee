package dex

import (
	"context"
	"regexp"
	"testing"
	"time"

	"dexflow/internal/domain"
	"dexflow/internal/infra"

	"github.com/shopspring/decimal"
)

// fixedVenue returns a venue with no price variance so quotes are
// deterministic: price is exactly priceLow.
func fixedVenue(provider domain.Provider, price float64, fee float64, failureRate float64) *Venue {
	return NewVenue(VenueParams{
		Provider:    provider,
		FeeRate:     decimal.NewFromFloat(fee),
		PriceLow:    price,
		PriceSpan:   0,
		FailureRate: failureRate,
	})
}

func TestVenueQuoteMath(t *testing.T) {
	v := fixedVenue(domain.ProviderRaydium, 1.0, 0.003, 0)
	amountIn := decimal.NewFromInt(100)

	q, err := v.Quote(context.Background(), "SOL", "USDC", amountIn)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	// amountOut = amountIn * price * (1 - feeRate), exactly
	want := amountIn.Mul(q.Price).Mul(decimal.NewFromInt(1).Sub(q.FeeRate))
	if !q.AmountOut.Equal(want) {
		t.Errorf("amountOut = %s, want %s", q.AmountOut, want)
	}
	if q.Provider != domain.ProviderRaydium {
		t.Errorf("provider = %s", q.Provider)
	}
}

func TestVenueQuoteVarianceBounds(t *testing.T) {
	v := NewVenue(VenueParams{
		Provider:  domain.ProviderMeteora,
		FeeRate:   decimal.NewFromFloat(0.002),
		PriceLow:  0.97,
		PriceSpan: 0.05,
	})

	low := decimal.NewFromFloat(0.97)
	high := decimal.NewFromFloat(1.02)
	for i := 0; i < 50; i++ {
		q, err := v.Quote(context.Background(), "SOL", "USDC", decimal.NewFromInt(1))
		if err != nil {
			t.Fatalf("Quote failed: %v", err)
		}
		if q.Price.LessThan(low) || q.Price.GreaterThan(high) {
			t.Fatalf("price %s out of [0.97, 1.02]", q.Price)
		}
	}
}

func TestGetBestQuote(t *testing.T) {
	t.Run("picks highest amountOut", func(t *testing.T) {
		r := NewRouterWithVenues(
			fixedVenue(domain.ProviderRaydium, 1.0, 0.003, 0),
			fixedVenue(domain.ProviderMeteora, 1.0, 0.002, 0),
		)

		q, err := r.GetBestQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(100))
		if err != nil {
			t.Fatalf("GetBestQuote failed: %v", err)
		}
		// Same price, lower fee wins.
		if q.Provider != domain.ProviderMeteora {
			t.Errorf("best provider = %s, want meteora", q.Provider)
		}
	})

	t.Run("tie resolves to first venue in priority order", func(t *testing.T) {
		r := NewRouterWithVenues(
			fixedVenue(domain.ProviderRaydium, 1.0, 0, 0),
			fixedVenue(domain.ProviderMeteora, 1.0, 0, 0),
		)

		q, err := r.GetBestQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(100))
		if err != nil {
			t.Fatalf("GetBestQuote failed: %v", err)
		}
		if q.Provider != domain.ProviderRaydium {
			t.Errorf("tie winner = %s, want raydium (first in priority)", q.Provider)
		}
	})

	t.Run("no venues", func(t *testing.T) {
		r := NewRouterWithVenues()
		if _, err := r.GetBestQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(1)); err == nil {
			t.Error("expected error with no venues")
		}
	})

	t.Run("waits for all venues", func(t *testing.T) {
		slow := NewVenue(VenueParams{
			Provider:     domain.ProviderMeteora,
			FeeRate:      decimal.Zero,
			PriceLow:     2.0,
			QuoteLatency: 50 * time.Millisecond,
		})
		r := NewRouterWithVenues(fixedVenue(domain.ProviderRaydium, 1.0, 0, 0), slow)

		start := time.Now()
		q, err := r.GetBestQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(1))
		if err != nil {
			t.Fatalf("GetBestQuote failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("returned after %v, should wait for the slow venue", elapsed)
		}
		if q.Provider != domain.ProviderMeteora {
			t.Errorf("best provider = %s, want the slow-but-better meteora", q.Provider)
		}
	})
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func TestExecuteSwap(t *testing.T) {
	order := &domain.Order{
		ID:       "o1",
		TokenIn:  "SOL",
		TokenOut: "USDC",
		AmountIn: decimal.NewFromInt(100),
	}

	t.Run("success", func(t *testing.T) {
		r := NewRouterWithVenues(fixedVenue(domain.ProviderRaydium, 1.0, 0.003, 0))

		res, err := r.ExecuteSwap(context.Background(), domain.ProviderRaydium, order)
		if err != nil {
			t.Fatalf("ExecuteSwap failed: %v", err)
		}
		if !txHashPattern.MatchString(res.TxHash) {
			t.Errorf("txHash %q does not match 0x + 64 hex digits", res.TxHash)
		}
		if !res.ExecutedPrice.IsPositive() {
			t.Errorf("executedPrice = %s, want > 0", res.ExecutedPrice)
		}
		if !res.AmountOut.IsPositive() {
			t.Errorf("amountOut = %s, want > 0", res.AmountOut)
		}
	})

	t.Run("forced failure is retriable", func(t *testing.T) {
		r := NewRouterWithVenues(fixedVenue(domain.ProviderRaydium, 1.0, 0.003, 1.0))

		_, err := r.ExecuteSwap(context.Background(), domain.ProviderRaydium, order)
		if err == nil {
			t.Fatal("expected forced failure")
		}
		if !domain.IsRetriable(err) {
			t.Errorf("swap failure should be retriable, got %v", err)
		}
	})

	t.Run("unknown venue", func(t *testing.T) {
		r := NewRouterWithVenues(fixedVenue(domain.ProviderRaydium, 1.0, 0.003, 0))
		if _, err := r.ExecuteSwap(context.Background(), "orca", order); err == nil {
			t.Error("expected error for unknown venue")
		}
	})
}

func TestNewRouterConfig(t *testing.T) {
	cfg := infra.Default()
	cfg.Dex.QuoteLatencyMS = 0
	cfg.Dex.ExecutionMinMS = 0
	cfg.Dex.ExecutionJitterMS = 0
	cfg.Dex.FailureRate = 0

	r := NewRouter(cfg)
	q, err := r.GetBestQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("GetBestQuote failed: %v", err)
	}
	if q.Provider != domain.ProviderRaydium && q.Provider != domain.ProviderMeteora {
		t.Errorf("unexpected provider %s", q.Provider)
	}
}
