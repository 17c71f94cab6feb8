// Package cart implements the in-progress cart of one session.
//
// Quantities are bounded by the stock snapshot taken when a line was last mutated;
// checkout re-validates against live stock before committing.
package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/abgdnv/storesim/internal/catalog"
	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/shopspring/decimal"
)

// Line is a product snapshot and the quantity requested. Quantity is always at least 1.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a point-in-time copy of the engine's lines with derived totals.
type Cart struct {
	Lines     []Line          `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Finder resolves live products for Reconcile.
type Finder interface {
	FindByID(ctx context.Context, id string) (catalog.Product, error)
}

// Engine owns the lines of one cart. It is safe for concurrent use.
type Engine struct {
	mu    sync.Mutex
	lines []Line
	held  bool
}

// NewEngine returns an empty cart.
func NewEngine() *Engine {
	return &Engine{}
}

// AddItem adds qty units of product, or increments an existing line.
// A qty of 0 means 1. The resulting quantity may not exceed product.Stock; on success the line's snapshot
// is refreshed to product.
func (e *Engine) AddItem(product catalog.Product, qty int) (Cart, error) {
	if qty < 0 {
		return Cart{}, shoperrors.NewValidationError("quantity", "failed on rule: min")
	}
	if qty == 0 {
		qty = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.held {
		return Cart{}, shoperrors.ErrCheckoutInProgress
	}

	i := e.indexOf(product.ID)
	requested := qty
	if i >= 0 {
		requested += e.lines[i].Quantity
	}
	if requested > product.Stock {
		return e.snapshot(), &shoperrors.StockExceededError{
			ProductID: product.ID,
			Requested: requested,
			Available: product.Stock,
		}
	}

	if i >= 0 {
		e.lines[i] = Line{Product: product, Quantity: requested}
	} else {
		e.lines = append(e.lines, Line{Product: product, Quantity: requested})
	}
	return e.snapshot(), nil
}

// SetQuantity adjusts a line by delta. A result below 1 leaves the line unchanged;
// otherwise the quantity is clamped to the line's stock snapshot.
func (e *Engine) SetQuantity(productID string, delta int) (Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.held {
		return Cart{}, shoperrors.ErrCheckoutInProgress
	}

	i := e.indexOf(productID)
	if i < 0 {
		return Cart{}, fmt.Errorf("cart line %s: %w", productID, shoperrors.ErrNotFound)
	}
	next := e.lines[i].Quantity + delta
	if next < 1 {
		return e.snapshot(), nil
	}
	e.lines[i].Quantity = max(1, min(next, e.lines[i].Product.Stock))
	return e.snapshot(), nil
}

// RemoveItem deletes a line.
func (e *Engine) RemoveItem(productID string) (Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.held {
		return Cart{}, shoperrors.ErrCheckoutInProgress
	}

	i := e.indexOf(productID)
	if i < 0 {
		return Cart{}, fmt.Errorf("cart line %s: %w", productID, shoperrors.ErrNotFound)
	}
	e.lines = slices.Delete(e.lines, i, i+1)
	return e.snapshot(), nil
}

// Clear empties the cart.
func (e *Engine) Clear() (Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.held {
		return Cart{}, shoperrors.ErrCheckoutInProgress
	}
	e.lines = nil
	return e.snapshot(), nil
}

// Cart returns a copy of the current lines with totals.
func (e *Engine) Cart() Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Total is recomputed from the lines on every call.
func (e *Engine) Total() decimal.Decimal {
	return e.Cart().Total
}

// Reconcile refreshes every line's snapshot from the live catalog without changing quantities,
// and drops lines whose product no longer exists. It returns the ids of dropped lines.
func (e *Engine) Reconcile(ctx context.Context, finder Finder) (Cart, []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.held {
		return Cart{}, nil, shoperrors.ErrCheckoutInProgress
	}

	kept := make([]Line, 0, len(e.lines))
	var dropped []string
	for _, l := range e.lines {
		live, err := finder.FindByID(ctx, l.Product.ID)
		if err != nil {
			if errors.Is(err, shoperrors.ErrNotFound) {
				dropped = append(dropped, l.Product.ID)
				continue
			}
			return Cart{}, nil, fmt.Errorf("failed to reconcile cart: %w", err)
		}
		kept = append(kept, Line{Product: live, Quantity: l.Quantity})
	}
	e.lines = kept
	return e.snapshot(), dropped, nil
}

// Hold marks the cart busy for checkout. While held every mutation returns ErrCheckoutInProgress.
func (e *Engine) Hold() (*Hold, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.held {
		return nil, shoperrors.ErrCheckoutInProgress
	}
	e.held = true
	return &Hold{engine: e}, nil
}

// Held reports whether a checkout currently holds the cart.
func (e *Engine) Held() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held
}

func (e *Engine) snapshot() Cart {
	c := Cart{Lines: slices.Clone(e.lines), Total: decimal.Zero}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	for _, l := range e.lines {
		c.Total = c.Total.Add(l.Subtotal())
		c.ItemCount += l.Quantity
	}
	return c
}

func (e *Engine) indexOf(productID string) int {
	return slices.IndexFunc(e.lines, func(l Line) bool { return l.Product.ID == productID })
}

// Hold is the exclusive right to finish a checkout on one cart.
type Hold struct {
	engine *Engine
	once   sync.Once
}

// Clear empties the cart on behalf of the holder.
func (h *Hold) Clear() {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	h.engine.lines = nil
}

// Release gives the cart back to the session. It is safe to call more than once.
func (h *Hold) Release() {
	h.once.Do(func() {
		h.engine.mu.Lock()
		defer h.engine.mu.Unlock()
		h.engine.held = false
	})
}
