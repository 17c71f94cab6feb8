package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storesim/pkg/messaging"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/propagation"
)

// OrderPlacedEvent is published once per committed checkout.
type OrderPlacedEvent struct {
	Carrier   propagation.MapCarrier `json:"carrier,omitempty"`
	OrderID   string                 `json:"order_id"`
	Username  string                 `json:"username"`
	Total     decimal.Decimal        `json:"total"`
	LineCount int                    `json:"line_count"`
	ItemCount int                    `json:"item_count"`
	PlacedAt  time.Time              `json:"placed_at"`
}

func (o OrderPlacedEvent) Subject() string {
	return messaging.OrdersPlacedSubject
}

func (o OrderPlacedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
