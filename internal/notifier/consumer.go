// Package notifier consumes OrderPlaced events and sends order confirmations.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/storesim/pkg/config"
	"github.com/abgdnv/storesim/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// Confirmation is what a customer is told about a placed order.
type Confirmation struct {
	OrderID   string
	Username  string
	Total     decimal.Decimal
	ItemCount int
	PlacedAt  time.Time
}

// Sender delivers confirmations.
type Sender interface {
	Send(ctx context.Context, c Confirmation) error
}

// LogSender writes confirmations to the log.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "notifier")}
}

func (s *LogSender) Send(ctx context.Context, c Confirmation) error {
	s.logger.InfoContext(ctx, "Order confirmation sent",
		slog.String("order_id", c.OrderID),
		slog.String("username", c.Username),
		slog.String("total", c.Total.StringFixed(2)),
		slog.Int("items", c.ItemCount),
		slog.String("placed_at", c.PlacedAt.Format(time.RFC3339)))
	return nil
}

// Start creates the durable consumer and runs cfg.Workers workers until ctx is cancelled.
func Start(ctx context.Context, js jetstream.JetStream, cfg config.SubscriberConfig, sender Sender, logger *slog.Logger) error {
	logger = logger.With("component", "notifier")
	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		FilterSubject: cfg.Subject,
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", cfg.Consumer, err)
	}
	logger.InfoContext(ctx, "Notifier started", "stream", cfg.Stream, "consumer", cfg.Consumer, "workers", cfg.Workers)

	g, gCtx := errgroup.WithContext(ctx)
	for range cfg.Workers {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg, sender, logger)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, sender Sender, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			logger.ErrorContext(ctx, "Failed to fetch messages", "error", err)
			time.Sleep(cfg.Interval)
			continue
		}
		for msg := range batch.Messages() {
			handleMessage(ctx, msg, sender, logger)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
			logger.WarnContext(ctx, "Batch finished with error", "error", err)
		}
	}
}

type ackableMsg interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// handleMessage acknowledges delivered confirmations, terminates undecodable payloads
// and asks for redelivery when the sender fails.
func handleMessage(ctx context.Context, msg ackableMsg, sender Sender, logger *slog.Logger) {
	if msg == nil {
		logger.ErrorContext(ctx, "Received nil message")
		return
	}
	var event events.OrderPlacedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil || event.OrderID == "" {
		logger.ErrorContext(ctx, "Dropping undecodable order event", "error", err)
		if err := msg.Term(); err != nil {
			logger.ErrorContext(ctx, "Failed to terminate message", "error", err)
		}
		return
	}

	msgCtx := otel.GetTextMapPropagator().Extract(ctx, event.Carrier)
	err := sender.Send(msgCtx, Confirmation{
		OrderID:   event.OrderID,
		Username:  event.Username,
		Total:     event.Total,
		ItemCount: event.ItemCount,
		PlacedAt:  event.PlacedAt,
	})
	if err != nil {
		logger.WarnContext(msgCtx, "Confirmation not sent, requesting redelivery", "order_id", event.OrderID, "error", err)
		if err := msg.Nak(); err != nil {
			logger.ErrorContext(msgCtx, "Failed to nack message", "error", err)
		}
		return
	}
	if err := msg.Ack(); err != nil {
		logger.ErrorContext(msgCtx, "Failed to ack message", "error", err)
	}
}
