package messaging

import (
	"context"
	"log/slog"
)

// OrdersPlacedSubject carries OrderPlaced events.
const OrdersPlacedSubject = "orders.placed"

// OrdersStream is the JetStream stream holding order events.
const OrdersStream = "ORDERS"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher is used when no broker is configured. It only records the event in the log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "publisher")}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.Payload()
	if err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "Event not sent, messaging disabled", "subject", event.Subject(), "payload", string(payload))
	return nil
}
