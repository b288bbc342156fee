package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a venue's offer for a given trade size. Quotes are ephemeral
// and never persisted.
type Quote struct {
	Provider  Provider
	Price     decimal.Decimal
	FeeRate   decimal.Decimal
	AmountOut decimal.Decimal // AmountIn * Price * (1 - FeeRate)
	Latency   time.Duration   // estimated execution time on the venue
}

// SwapResult is the outcome of a successful swap execution.
type SwapResult struct {
	TxHash        string
	ExecutedPrice decimal.Decimal
	AmountOut     decimal.Decimal
}
