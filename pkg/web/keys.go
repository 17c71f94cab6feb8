package web

import (
	"context"
	"log/slog"
)

type requestIDKey struct{}
type claimsKey struct{}

// Claims is the verified caller taken from the bearer token.
type Claims struct {
	Username  string
	Role      string
	SessionID string
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// GetClaims returns the claims stored by BearerAuth.
func GetClaims(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

// LogAttrs adds the caller to log records. It is meant for logger.NewContextHandler.
func LogAttrs(ctx context.Context) []slog.Attr {
	c, ok := GetClaims(ctx)
	if !ok {
		return nil
	}
	return []slog.Attr{slog.String("username", c.Username), slog.String("session_id", c.SessionID)}
}
