// Package ledger keeps the per-user wishlist and order history.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/internal/storage"
)

// UserLedger defines the per-user persistence operations.
// Every method returns ErrNoActiveUser when username is empty.
type UserLedger interface {
	// LoadWishlist returns the user's wishlist in insertion order. Unreadable data yields an empty list.
	LoadWishlist(ctx context.Context, username string) ([]string, error)

	// SaveWishlist replaces the user's wishlist.
	SaveWishlist(ctx context.Context, username string, ids []string) error

	// ToggleWishlist adds productID if absent, otherwise removes it.
	// Returns the resulting list and whether the product was added.
	ToggleWishlist(ctx context.Context, username, productID string) ([]string, bool, error)

	// LoadOrders returns the user's order history, newest first. Unreadable data yields an empty list.
	LoadOrders(ctx context.Context, username string) ([]Order, error)

	// SaveOrders replaces the user's order history.
	SaveOrders(ctx context.Context, username string, orders []Order) error

	// PrependOrder records a new order at the head of the history.
	PrependOrder(ctx context.Context, username string, order Order) error
}

// Ledger implements UserLedger over a storage.Store.
type Ledger struct {
	// mu serializes read-modify-write cycles within the process.
	mu        sync.Mutex
	wishlists *storage.Entity[[]string]
	orders    *storage.Entity[[]Order]
	logger    *slog.Logger
}

// NewLedger creates a Ledger backed by store.
func NewLedger(store storage.Store, logger *slog.Logger) *Ledger {
	return &Ledger{
		wishlists: storage.NewEntity[[]string](store, storage.KindWishlist, migrateWishlist),
		orders:    storage.NewEntity[[]Order](store, storage.KindOrders, nil),
		logger:    logger.With("component", "ledger"),
	}
}

func requireUser(username string) error {
	if strings.TrimSpace(username) == "" {
		return shoperrors.ErrNoActiveUser
	}
	return nil
}

func (l *Ledger) LoadWishlist(ctx context.Context, username string) ([]string, error) {
	if err := requireUser(username); err != nil {
		return nil, err
	}
	return l.loadWishlist(ctx, username)
}

func (l *Ledger) loadWishlist(ctx context.Context, username string) ([]string, error) {
	ids, _, err := l.wishlists.Load(ctx, username)
	if err != nil {
		if !errors.Is(err, shoperrors.ErrCorruptState) {
			return nil, fmt.Errorf("failed to load wishlist: %w", err)
		}
		l.logger.WarnContext(ctx, "Stored wishlist is unreadable, using empty list", "username", username, "error", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (l *Ledger) SaveWishlist(ctx context.Context, username string, ids []string) error {
	if err := requireUser(username); err != nil {
		return err
	}
	if err := l.wishlists.Save(ctx, username, dedup(ids)); err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}
	return nil
}

func (l *Ledger) ToggleWishlist(ctx context.Context, username, productID string) ([]string, bool, error) {
	if err := requireUser(username); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.loadWishlist(ctx, username)
	if err != nil {
		return nil, false, err
	}
	added := false
	if i := slices.Index(ids, productID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		ids = append(ids, productID)
		added = true
	}
	if err := l.wishlists.Save(ctx, username, ids); err != nil {
		return nil, false, fmt.Errorf("failed to save wishlist: %w", err)
	}
	return ids, added, nil
}

func (l *Ledger) LoadOrders(ctx context.Context, username string) ([]Order, error) {
	if err := requireUser(username); err != nil {
		return nil, err
	}
	return l.loadOrders(ctx, username)
}

func (l *Ledger) loadOrders(ctx context.Context, username string) ([]Order, error) {
	orders, _, err := l.orders.Load(ctx, username)
	if err != nil {
		if !errors.Is(err, shoperrors.ErrCorruptState) {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
		l.logger.WarnContext(ctx, "Stored order history is unreadable, using empty list", "username", username, "error", err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func (l *Ledger) SaveOrders(ctx context.Context, username string, orders []Order) error {
	if err := requireUser(username); err != nil {
		return err
	}
	if err := l.orders.Save(ctx, username, orders); err != nil {
		return fmt.Errorf("failed to save orders: %w", err)
	}
	return nil
}

func (l *Ledger) PrependOrder(ctx context.Context, username string, order Order) error {
	if err := requireUser(username); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	orders, err := l.loadOrders(ctx, username)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(orders, func(o Order) bool { return o.ID == order.ID }) {
		return nil
	}
	next := make([]Order, 0, len(orders)+1)
	next = append(next, order.clone())
	next = append(next, orders...)
	if err := l.orders.Save(ctx, username, next); err != nil {
		return fmt.Errorf("failed to save orders: %w", err)
	}
	l.logger.InfoContext(ctx, "Order recorded", "username", username, "order_id", order.ID)
	return nil
}

// migrateWishlist turns legacy numeric ids into strings and drops duplicates.
func migrateWishlist(raw []byte) ([]byte, bool, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("wishlist is not a list: %w", err)
	}
	ids := make([]string, 0, len(entries))
	changed := false
	for _, e := range entries {
		e = bytes.TrimSpace(e)
		var id string
		if len(e) > 0 && e[0] == '"' {
			if err := json.Unmarshal(e, &id); err != nil {
				return nil, false, err
			}
		} else {
			var n json.Number
			if err := json.Unmarshal(e, &n); err != nil {
				return nil, false, fmt.Errorf("invalid wishlist entry %s: %w", e, err)
			}
			if n == "" {
				return nil, false, fmt.Errorf("invalid wishlist entry %s", e)
			}
			id = n.String()
			changed = true
		}
		if slices.Contains(ids, id) {
			changed = true
			continue
		}
		ids = append(ids, id)
	}
	if !changed {
		return raw, false, nil
	}
	out, err := json.Marshal(ids)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func dedup(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
