// Package session binds an authenticated identity to its cart and current checkout.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/storesim/internal/auth"
	"github.com/abgdnv/storesim/internal/cart"
	"github.com/abgdnv/storesim/internal/checkout"
	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/google/uuid"
)

// Session is one login. It owns one cart and at most one current checkout.
type Session struct {
	ID        string
	Identity  auth.Identity
	Cart      *cart.Engine
	ExpiresAt time.Time

	mu       sync.Mutex
	checkout *checkout.Process
}

// Checkout returns the current checkout process, if any.
func (s *Session) Checkout() (*checkout.Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout, s.checkout != nil
}

// SetCheckout replaces the current checkout. A replaced process that has not committed is abandoned.
func (s *Session) SetCheckout(p *checkout.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := abandon(s.checkout); err != nil {
		return err
	}
	s.checkout = p
	return nil
}

// ClearCheckout abandons and forgets the current checkout.
func (s *Session) ClearCheckout() error {
	return s.SetCheckout(nil)
}

func abandon(p *checkout.Process) error {
	if p == nil || p.State().Terminal() {
		return nil
	}
	err := p.Abandon()
	var transitionErr *checkout.TransitionError
	if errors.As(err, &transitionErr) {
		return nil
	}
	return err
}

// Manager keeps the open sessions of the process in memory.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewManager creates a Manager whose sessions expire after ttl.
func NewManager(ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With("component", "session"),
	}
}

// Open starts a session for identity with an empty cart.
func (m *Manager) Open(ctx context.Context, identity auth.Identity) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(ctx)

	s := &Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		Cart:      cart.NewEngine(),
		ExpiresAt: m.now().Add(m.ttl),
	}
	m.sessions[s.ID] = s
	m.logger.InfoContext(ctx, "Session opened", "session_id", s.ID, "username", identity.Username, "role", identity.Role)
	return s
}

// Get returns the open session with id. Expired sessions are not returned.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil, false
	}
	return s, true
}

// Close ends the session: any open checkout is abandoned and the cart is cleared.
// Returns ErrCheckoutInProgress while a commit is running; the session stays open.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return shoperrors.ErrNoActiveUser
	}

	if err := s.ClearCheckout(); err != nil {
		return err
	}
	if _, err := s.Cart.Clear(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "Session closed", "session_id", id, "username", s.Identity.Username)
	return nil
}

// Len returns the number of sessions held, expired ones included until the next Open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) pruneLocked(ctx context.Context) {
	now := m.now()
	for id, s := range m.sessions {
		if now.Before(s.ExpiresAt) {
			continue
		}
		// a commit may still be running on an expired session; it keeps its own references
		_ = s.ClearCheckout()
		delete(m.sessions, id)
		m.logger.DebugContext(ctx, "Session expired", "session_id", id, "username", s.Identity.Username)
	}
}
