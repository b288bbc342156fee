package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderStore defines durable, keyed persistence of order records
type OrderStore interface {
	SaveOrder(o *Order) error
	GetOrder(id string) (*Order, error)
}

// ActiveCache holds time-boxed snapshots of in-flight orders
type ActiveCache interface {
	Set(id string, o *Order) error
	Get(id string) (*Order, bool)
	Remove(id string)
}

// StatusPublisher pushes transition updates to a registered subscriber
type StatusPublisher interface {
	Publish(orderID string, update StatusUpdate)
}

// QuoteRouter arbitrates quotes across venues and executes swaps
type QuoteRouter interface {
	GetBestQuote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal) (*Quote, error)
	ExecuteSwap(ctx context.Context, provider Provider, o *Order) (*SwapResult, error)
}

// JobQueue schedules order ids for pipeline execution
type JobQueue interface {
	Enqueue(orderID string) error
}
