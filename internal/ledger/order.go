package ledger

import (
	"slices"
	"strings"
	"time"

	"github.com/abgdnv/storesim/internal/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
)

// OrderLine is a frozen product snapshot and the quantity bought.
type OrderLine struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is an immutable record of a committed checkout.
type Order struct {
	ID       string          `json:"id"`
	PlacedAt time.Time       `json:"placedAt"`
	Lines    []OrderLine     `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Status   Status          `json:"status"`
}

// NewOrder builds a Processing order from frozen lines. The lines slice is copied.
func NewOrder(lines []OrderLine, total decimal.Decimal, placedAt time.Time) Order {
	return Order{
		ID:       NewOrderID(),
		PlacedAt: placedAt.UTC(),
		Lines:    slices.Clone(lines),
		Total:    total,
		Status:   StatusProcessing,
	}
}

// NewOrderID returns an identifier of the form ORD-XXXXXXXXXXXX.
func NewOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:12])
}

// ItemCount is the number of units across all lines.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

func (o Order) clone() Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}
