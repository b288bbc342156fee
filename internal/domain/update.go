package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusUpdate is the frame pushed to a subscriber on every pipeline
// transition. Optional fields are omitted until they have a value.
type StatusUpdate struct {
	OrderID       string          `json:"orderId"`
	Status        OrderStatus     `json:"status"`
	DexProvider   Provider        `json:"dexProvider,omitempty"`
	TxHash        string          `json:"txHash,omitempty"`
	ExecutedPrice decimal.Decimal `json:"executedPrice"`
	Error         string          `json:"error,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// UpdateFromOrder derives the broadcast frame for an order's current state.
func UpdateFromOrder(o *Order) StatusUpdate {
	return StatusUpdate{
		OrderID:       o.ID,
		Status:        o.Status,
		DexProvider:   o.DexProvider,
		TxHash:        o.TxHash,
		ExecutedPrice: o.ExecutedPrice,
		Error:         o.Error,
		Timestamp:     o.UpdatedAt,
	}
}
