package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/storesim/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// RoleClaim is the private claim carrying the caller's role.
const RoleClaim = "role"

var ErrInvalidToken = errors.New("invalid token")

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// HMACTokens issues and verifies HS256 session tokens.
// The subject is the username and the JWT ID is the session ID.
type HMACTokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACTokens creates a token issuer from cfg.
func NewHMACTokens(cfg config.TokenConfig) (*HMACTokens, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HMACTokens{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject in session sessionID. It returns the token and its expiry.
func (t *HMACTokens) Issue(subject, role, sessionID string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	token, err := jwt.NewBuilder().
		Issuer(t.issuer).
		Subject(subject).
		JwtID(sessionID).
		IssuedAt(now).
		Expiration(expires).
		Claim(RoleClaim, role).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), t.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), expires, nil
}

func (t *HMACTokens) Verify(_ context.Context, tokenString string) (jwt.Token, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), t.key),
		// Standard validation checks - expiration, not before, etc.
		jwt.WithValidate(true),
		jwt.WithIssuer(t.issuer),
		jwt.WithClock(jwt.ClockFunc(t.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return token, nil
}
