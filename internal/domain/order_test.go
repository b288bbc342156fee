package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validRequest() *ExecuteRequest {
	return &ExecuteRequest{
		Type:     OrderTypeMarket,
		TokenIn:  "SOL",
		TokenOut: "USDC",
		AmountIn: decimal.NewFromInt(100),
	}
}

func TestExecuteRequestValidate(t *testing.T) {
	t.Run("valid market order", func(t *testing.T) {
		if errs := validRequest().Validate(); len(errs) != 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		req := validRequest()
		req.Type = "stop"
		errs := req.Validate()
		if len(errs) != 1 {
			t.Fatalf("expected 1 error, got %v", errs)
		}
	})

	t.Run("missing tokens", func(t *testing.T) {
		req := validRequest()
		req.TokenIn = ""
		req.TokenOut = ""
		if errs := req.Validate(); len(errs) != 2 {
			t.Errorf("expected 2 errors, got %v", errs)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		req := validRequest()
		req.AmountIn = decimal.Zero
		if errs := req.Validate(); len(errs) != 1 {
			t.Errorf("expected 1 error, got %v", errs)
		}

		req.AmountIn = decimal.NewFromInt(-5)
		if errs := req.Validate(); len(errs) != 1 {
			t.Errorf("expected 1 error for negative amount, got %v", errs)
		}
	})

	t.Run("limit order requires limit price", func(t *testing.T) {
		req := validRequest()
		req.Type = OrderTypeLimit
		errs := req.Validate()
		if len(errs) != 1 {
			t.Fatalf("expected 1 error, got %v", errs)
		}

		req.LimitPrice = decimal.NewFromFloat(1.5)
		if errs := req.Validate(); len(errs) != 0 {
			t.Errorf("expected no errors with limit price set, got %v", errs)
		}
	})

	t.Run("market order ignores limit price", func(t *testing.T) {
		req := validRequest()
		req.LimitPrice = decimal.Zero
		if errs := req.Validate(); len(errs) != 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
	})
}

func TestNewOrder(t *testing.T) {
	a := NewOrder(validRequest())
	b := NewOrder(validRequest())

	if a.ID == "" || b.ID == "" {
		t.Fatal("order ids must be generated")
	}
	if a.ID == b.ID {
		t.Error("order ids must be unique")
	}
	if a.Status != StatusPending {
		t.Errorf("new order status = %s, want %s", a.Status, StatusPending)
	}
	if a.RetryCount != 0 {
		t.Errorf("new order retryCount = %d, want 0", a.RetryCount)
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}
}

func TestValidTransition(t *testing.T) {
	allowed := [][2]OrderStatus{
		{StatusPending, StatusRouting},
		{StatusRouting, StatusBuilding},
		{StatusBuilding, StatusSubmitted},
		{StatusSubmitted, StatusConfirmed},
		{StatusSubmitted, StatusFailed},
		{StatusRouting, StatusFailed},
		// retry loop-back restarts routing
		{StatusSubmitted, StatusRouting},
		{StatusBuilding, StatusRouting},
	}
	for _, tc := range allowed {
		if !ValidTransition(tc[0], tc[1]) {
			t.Errorf("%s -> %s should be allowed", tc[0], tc[1])
		}
	}

	denied := [][2]OrderStatus{
		{StatusPending, StatusConfirmed},
		{StatusRouting, StatusSubmitted},
		{StatusConfirmed, StatusRouting},
		{StatusConfirmed, StatusFailed},
		{StatusFailed, StatusRouting},
		{StatusConfirmed, StatusPending},
	}
	for _, tc := range denied {
		if ValidTransition(tc[0], tc[1]) {
			t.Errorf("%s -> %s should be denied", tc[0], tc[1])
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !StatusConfirmed.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("confirmed and failed are terminal")
	}
	for _, s := range []OrderStatus{StatusPending, StatusRouting, StatusBuilding, StatusSubmitted} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
