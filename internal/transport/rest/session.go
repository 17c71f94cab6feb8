package rest

import (
	"context"
	"net/http"

	"github.com/abgdnv/storesim/internal/auth"
	"github.com/abgdnv/storesim/internal/session"
	"github.com/abgdnv/storesim/pkg/web"
)

type sessionKey struct{}

// requireSession resolves the session named by the token. A token whose session was closed or expired is refused.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := web.GetClaims(r.Context())
		if !ok {
			web.RespondError(w, h.logger, http.StatusUnauthorized, "Unauthorized: missing claims")
			return
		}
		s, ok := h.sessions.Get(claims.SessionID)
		if !ok || s.Identity.Username != claims.Username {
			web.RespondError(w, h.logger, http.StatusUnauthorized, "Unauthorized: session is closed or expired")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := sessionFrom(r)
			if s == nil || s.Identity.Role != role {
				web.RespondError(w, h.logger, http.StatusForbidden, "Forbidden: requires role "+string(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionFrom returns the session stored by requireSession, or nil.
func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}
