package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/storesim/internal/auth"
	"github.com/abgdnv/storesim/internal/catalog"
	"github.com/abgdnv/storesim/internal/checkout"
	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/internal/ledger"
	"github.com/abgdnv/storesim/internal/payment"
	"github.com/abgdnv/storesim/internal/storage"
	"github.com/abgdnv/storesim/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var alice = auth.Identity{Username: "alice", Role: auth.RoleCustomer}

type deps struct {
	catalog *catalog.Repository
	service *checkout.Service
}

func newDeps(t *testing.T) deps {
	t.Helper()
	store := storage.NewInMemoryStore()
	repo := catalog.NewRepository(store, nil, discardLogger)
	_, err := repo.LoadOrSeed(context.Background())
	require.NoError(t, err)
	svc := checkout.NewService(repo, ledger.NewLedger(store, discardLogger), payment.NewSimulator(time.Millisecond),
		messaging.NewLogPublisher(discardLogger), time.Second, discardLogger)
	return deps{catalog: repo, service: svc}
}

func Test_OpenGet(t *testing.T) {
	// given
	m := NewManager(time.Hour, discardLogger)
	// when
	s := m.Open(context.Background(), alice)
	got, ok := m.Get(s.ID)
	// then
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, alice, got.Identity)
	assert.True(t, got.Cart.Cart().IsEmpty())
	_, hasCheckout := got.Checkout()
	assert.False(t, hasCheckout)

	_, ok = m.Get("unknown")
	assert.False(t, ok)
}

func Test_SessionsHaveSeparateCarts(t *testing.T) {
	d := newDeps(t)
	m := NewManager(time.Hour, discardLogger)
	ctx := context.Background()
	p, err := d.catalog.FindByID(ctx, "1")
	require.NoError(t, err)

	first := m.Open(ctx, alice)
	second := m.Open(ctx, auth.Identity{Username: "bob", Role: auth.RoleCustomer})
	_, err = first.Cart.AddItem(p, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Cart.Cart().ItemCount)
	assert.True(t, second.Cart.Cart().IsEmpty())
}

func Test_Close_ClearsCartAndAbandonsCheckout(t *testing.T) {
	// given
	d := newDeps(t)
	m := NewManager(time.Hour, discardLogger)
	ctx := context.Background()
	s := m.Open(ctx, alice)
	p, err := d.catalog.FindByID(ctx, "1")
	require.NoError(t, err)
	_, err = s.Cart.AddItem(p, 2)
	require.NoError(t, err)
	process, err := d.service.Begin(ctx, alice.Username, s.Cart)
	require.NoError(t, err)
	require.NoError(t, s.SetCheckout(process))
	cart := s.Cart
	// when
	err = m.Close(ctx, s.ID)
	// then
	require.NoError(t, err)
	assert.True(t, cart.Cart().IsEmpty())
	_, ok := m.Get(s.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, process.Submit(checkout.Details{}), shoperrors.ErrInvalidTransition, "abandoned checkout refuses further steps")

	assert.ErrorIs(t, m.Close(ctx, s.ID), shoperrors.ErrNoActiveUser)
}

func Test_ClearCheckout_ReleasesCartForNextCheckout(t *testing.T) {
	d := newDeps(t)
	m := NewManager(time.Hour, discardLogger)
	ctx := context.Background()
	s := m.Open(ctx, alice)
	p, err := d.catalog.FindByID(ctx, "2")
	require.NoError(t, err)
	_, err = s.Cart.AddItem(p, 1)
	require.NoError(t, err)

	first, err := d.service.Begin(ctx, alice.Username, s.Cart)
	require.NoError(t, err)
	require.NoError(t, s.SetCheckout(first))
	_, err = d.service.Begin(ctx, alice.Username, s.Cart)
	require.ErrorIs(t, err, shoperrors.ErrCheckoutInProgress, "the open checkout holds the cart")
	require.NoError(t, s.ClearCheckout())
	assert.False(t, s.Cart.Held(), "abandoning gives the cart back")
	second, err := d.service.Begin(ctx, alice.Username, s.Cart)
	require.NoError(t, err)
	require.NoError(t, s.SetCheckout(second))

	current, ok := s.Checkout()
	require.True(t, ok)
	assert.Same(t, second, current)
	_, err = first.Commit(ctx)
	assert.ErrorIs(t, err, shoperrors.ErrInvalidTransition)
}

func Test_SetCheckout_KeepsCommittedProcess(t *testing.T) {
	d := newDeps(t)
	m := NewManager(time.Hour, discardLogger)
	ctx := context.Background()
	s := m.Open(ctx, alice)
	p, err := d.catalog.FindByID(ctx, "2")
	require.NoError(t, err)
	_, err = s.Cart.AddItem(p, 1)
	require.NoError(t, err)
	process, err := d.service.Begin(ctx, alice.Username, s.Cart)
	require.NoError(t, err)
	require.NoError(t, s.SetCheckout(process))
	require.NoError(t, process.Submit(checkout.Details{
		Shipping: checkout.Shipping{Name: "A", Address: "B", City: "C", Zip: "D"},
		Card:     checkout.Card{Holder: "A", Number: "4242", Expiry: "01/30", CVC: "123"},
	}))
	order, err := process.Commit(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, s.ID))

	again, err := process.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)
}

func Test_Expiry(t *testing.T) {
	// given
	m := NewManager(time.Minute, discardLogger)
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()
	s := m.Open(ctx, alice)
	// when
	now = now.Add(2 * time.Minute)
	_, ok := m.Get(s.ID)
	m.Open(ctx, alice)
	// then
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len(), "expired session is pruned on the next Open")
}
