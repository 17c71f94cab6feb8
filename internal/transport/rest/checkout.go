package rest

import (
	"fmt"
	"net/http"

	"github.com/abgdnv/storesim/internal/checkout"
	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/pkg/web"
)

// currentCheckout returns the session's checkout or writes 404.
func (h *Handler) currentCheckout(w http.ResponseWriter, r *http.Request) (*checkout.Process, bool) {
	p, ok := sessionFrom(r).Checkout()
	if !ok {
		h.respondErr(w, r, fmt.Errorf("no checkout in progress: %w", shoperrors.ErrNotFound), "")
		return nil, false
	}
	return p, true
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := h.currentCheckout(w, r)
	if !ok {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, p.View())
}

// BeginCheckout freezes the cart into a new checkout, replacing any unfinished one.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if err := s.ClearCheckout(); err != nil {
		h.respondErr(w, r, err, "Failed to replace checkout")
		return
	}
	p, err := h.checkout.Begin(r.Context(), s.Identity.Username, s.Cart)
	if err != nil {
		h.respondErr(w, r, err, "Failed to begin checkout")
		return
	}
	if err := s.SetCheckout(p); err != nil {
		_ = p.Abandon()
		h.respondErr(w, r, err, "Failed to begin checkout")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, p.View())
}

func (h *Handler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if _, ok := h.currentCheckout(w, r); !ok {
		return
	}
	if err := s.ClearCheckout(); err != nil {
		h.respondErr(w, r, err, "Failed to abandon checkout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmitCheckoutDetails(w http.ResponseWriter, r *http.Request) {
	p, ok := h.currentCheckout(w, r)
	if !ok {
		return
	}
	var details checkout.Details
	if !web.DecodeJSON(w, r, h.logger, &details) {
		return
	}
	if err := p.Submit(details); err != nil {
		h.respondErr(w, r, err, "Failed to submit checkout details")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, p.View())
}

// CommitCheckout places the order. A rejected checkout answers 409 with its view.
func (h *Handler) CommitCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := h.currentCheckout(w, r)
	if !ok {
		return
	}
	order, err := p.Commit(r.Context())
	if err != nil {
		h.respondErr(w, r, err, "Failed to place order")
		return
	}
	h.logger.InfoContext(r.Context(), "Order placed", "order_id", order.ID, "checkout_id", p.ID())
	web.RespondJSON(w, h.logger, http.StatusCreated, p.View())
}
