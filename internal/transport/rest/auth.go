package rest

import (
	"net/http"
	"time"

	"github.com/abgdnv/storesim/internal/auth"
	"github.com/abgdnv/storesim/pkg/web"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Identity  auth.Identity `json:"identity"`
}

// Register creates a customer account. The caller logs in afterwards.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if !web.DecodeJSON(w, r, h.logger, &reg) {
		return
	}
	identity, err := h.accounts.Register(r.Context(), reg)
	if err != nil {
		h.respondErr(w, r, err, "Failed to register account")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, identity)
}

// Login authenticates the caller, opens a session and returns its bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !web.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "username and password are required")
		return
	}
	identity, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondErr(w, r, err, "Failed to log in")
		return
	}

	s := h.sessions.Open(r.Context(), identity)
	token, expires, err := h.tokens.Issue(identity.Username, string(identity.Role), s.ID)
	if err != nil {
		_ = h.sessions.Close(r.Context(), s.ID)
		h.respondErr(w, r, err, "Failed to issue token")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, Identity: identity})
}

// Logout closes the session: the cart is cleared and an open checkout is abandoned.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if err := h.sessions.Close(r.Context(), s.ID); err != nil {
		h.respondErr(w, r, err, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, sessionFrom(r).Identity)
}
