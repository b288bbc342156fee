package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType classifies how an order should be executed.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeSniper OrderType = "sniper"
)

// OrderStatus tracks the order through the execution pipeline.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusRouting   OrderStatus = "routing"
	StatusBuilding  OrderStatus = "building"
	StatusSubmitted OrderStatus = "submitted"
	StatusConfirmed OrderStatus = "confirmed"
	StatusFailed    OrderStatus = "failed"
)

// Provider identifies a liquidity venue.
type Provider string

const (
	ProviderRaydium Provider = "raydium"
	ProviderMeteora Provider = "meteora"
)

// MaxRetries bounds the pipeline retry budget per order.
const MaxRetries = 3

// Order represents a single trade intent. One row per order; status and
// created_at are indexed for operational queries.
type Order struct {
	ID            string          `gorm:"primaryKey" json:"id"`
	Type          OrderType       `json:"type"`
	TokenIn       string          `json:"tokenIn"`
	TokenOut      string          `json:"tokenOut"`
	AmountIn      decimal.Decimal `gorm:"type:numeric" json:"amountIn"`
	AmountOut     decimal.Decimal `gorm:"type:numeric" json:"amountOut"`
	LimitPrice    decimal.Decimal `gorm:"type:numeric" json:"limitPrice"`
	Status        OrderStatus     `gorm:"index" json:"status"`
	DexProvider   Provider        `json:"dexProvider,omitempty"`
	TxHash        string          `json:"txHash,omitempty"`
	ExecutedPrice decimal.Decimal `gorm:"type:numeric" json:"executedPrice"`
	Error         string          `json:"error,omitempty"`
	RetryCount    int             `json:"retryCount"`
	CreatedAt     time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// IsTerminal reports whether the status ends the order's lifecycle.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// ValidTransition reports whether moving from one status to another is
// allowed. The graph is strictly forward except for the retry loop-back
// into routing, which restarts the whole pipeline.
func ValidTransition(from, to OrderStatus) bool {
	switch to {
	case StatusRouting:
		// Fresh start or a retry restart.
		return from == StatusPending || from == StatusRouting ||
			from == StatusBuilding || from == StatusSubmitted
	case StatusBuilding:
		return from == StatusRouting
	case StatusSubmitted:
		return from == StatusBuilding
	case StatusConfirmed:
		return from == StatusSubmitted
	case StatusFailed:
		return !from.IsTerminal()
	}
	return false
}

// ExecuteRequest is the intake payload for a new order.
type ExecuteRequest struct {
	Type       OrderType       `json:"type"`
	TokenIn    string          `json:"tokenIn"`
	TokenOut   string          `json:"tokenOut"`
	AmountIn   decimal.Decimal `json:"amountIn"`
	LimitPrice decimal.Decimal `json:"limitPrice"`
}

// Validate returns every problem with the request, not just the first.
func (r *ExecuteRequest) Validate() []string {
	var errs []string

	switch r.Type {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeSniper:
	default:
		errs = append(errs, "Invalid order type. Must be one of: market, limit, sniper")
	}

	if r.TokenIn == "" {
		errs = append(errs, "tokenIn is required and must be a string")
	}
	if r.TokenOut == "" {
		errs = append(errs, "tokenOut is required and must be a string")
	}
	if !r.AmountIn.IsPositive() {
		errs = append(errs, "amountIn is required and must be a positive number")
	}
	if r.Type == OrderTypeLimit && !r.LimitPrice.IsPositive() {
		errs = append(errs, "limitPrice is required for limit orders and must be positive")
	}

	return errs
}

// NewOrder builds a pending order from a validated request.
func NewOrder(req *ExecuteRequest) *Order {
	now := time.Now()
	return &Order{
		ID:         uuid.NewString(),
		Type:       req.Type,
		TokenIn:    req.TokenIn,
		TokenOut:   req.TokenOut,
		AmountIn:   req.AmountIn,
		LimitPrice: req.LimitPrice,
		Status:     StatusPending,
		RetryCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
