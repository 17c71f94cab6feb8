// Package payment simulates card authorization for checkout.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDeclined is a business rejection of the charge. It does not indicate an unhealthy gateway.
var ErrDeclined = errors.New("payment declined")

// ErrUnavailable is returned while the gateway is considered unhealthy.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Charge is a request to authorize an amount against a card.
type Charge struct {
	Reference  string
	Amount     decimal.Decimal
	CardHolder string
	CardNumber string
}

// Authorization is a successful hold on funds. It can be voided until captured.
type Authorization struct {
	ID           string
	Reference    string
	Amount       decimal.Decimal
	AuthorizedAt time.Time
}

// Gateway authorizes and voids charges.
type Gateway interface {
	// Authorize blocks until the gateway answers or ctx is done.
	// It has no side effects when it returns an error.
	Authorize(ctx context.Context, charge Charge) (Authorization, error)

	// Void releases a previous authorization.
	Void(ctx context.Context, auth Authorization) error
}

// Simulator is a Gateway that approves every non-negative charge after a fixed latency.
type Simulator struct {
	latency time.Duration
}

// NewSimulator returns a simulator answering after latency.
func NewSimulator(latency time.Duration) *Simulator {
	return &Simulator{latency: latency}
}

func (s *Simulator) Authorize(ctx context.Context, charge Charge) (Authorization, error) {
	if charge.Amount.IsNegative() {
		return Authorization{}, fmt.Errorf("%w: amount %s is negative", ErrDeclined, charge.Amount)
	}
	if err := wait(ctx, s.latency); err != nil {
		return Authorization{}, err
	}
	return Authorization{
		ID:           uuid.NewString(),
		Reference:    charge.Reference,
		Amount:       charge.Amount,
		AuthorizedAt: time.Now().UTC(),
	}, nil
}

func (s *Simulator) Void(ctx context.Context, _ Authorization) error {
	return ctx.Err()
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
