package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/storesim/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// Breaker wraps a Gateway in a circuit breaker. Authorizations fail fast with ErrUnavailable while the
// circuit is open. Declines and caller cancellation are not counted as gateway failures.
type Breaker struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[Authorization]
}

// NewBreaker returns next guarded by a breaker configured from cfg.
func NewBreaker(next Gateway, cfg config.CircuitBreakerConfig) *Breaker {
	st := gobreaker.Settings{
		Name:        "payment-gateway-cb",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(counts.Requests > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.Requests)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDeclined) || errors.Is(err, context.Canceled)
		},
	}
	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[Authorization](st),
	}
}

func (b *Breaker) Authorize(ctx context.Context, charge Charge) (Authorization, error) {
	auth, err := b.cb.Execute(func() (Authorization, error) {
		return b.next.Authorize(ctx, charge)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Authorization{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return auth, err
}

// Void is not guarded by the breaker.
func (b *Breaker) Void(ctx context.Context, auth Authorization) error {
	return b.next.Void(ctx, auth)
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
