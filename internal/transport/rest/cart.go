package rest

import (
	"net/http"

	"github.com/abgdnv/storesim/internal/cart"
	"github.com/abgdnv/storesim/pkg/web"
	"github.com/go-chi/chi/v5"
)

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type cartResponse struct {
	cart.Cart
	// Dropped lists lines removed because their product no longer exists.
	Dropped []string `json:"dropped,omitempty"`
}

// GetCart reconciles the cart with the live catalog and returns it.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if s.Cart.Held() {
		web.RespondJSON(w, h.logger, http.StatusOK, cartResponse{Cart: s.Cart.Cart()})
		return
	}
	c, dropped, err := s.Cart.Reconcile(r.Context(), h.catalog)
	if err != nil {
		h.respondErr(w, r, err, "Failed to load cart")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, cartResponse{Cart: c, Dropped: dropped})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := sessionFrom(r).Cart.Clear()
	if err != nil {
		h.respondErr(w, r, err, "Failed to clear cart")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, cartResponse{Cart: c})
}

// AddCartItem adds quantity units (default 1) of a product, bounded by its current stock.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !web.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidation(w, h.logger, map[string]string{"productId": "failed on rule: required"})
		return
	}
	product, err := h.catalog.FindByID(r.Context(), req.ProductID)
	if err != nil {
		h.respondErr(w, r, err, "Failed to add item")
		return
	}
	c, err := sessionFrom(r).Cart.AddItem(product, req.Quantity)
	if err != nil {
		h.respondErr(w, r, err, "Failed to add item")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, cartResponse{Cart: c})
}

// ChangeCartQuantity applies a signed delta to a line.
func (h *Handler) ChangeCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !web.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidation(w, h.logger, map[string]string{"delta": "failed on rule: required"})
		return
	}
	c, err := sessionFrom(r).Cart.SetQuantity(chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		h.respondErr(w, r, err, "Failed to change quantity")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, cartResponse{Cart: c})
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := sessionFrom(r).Cart.RemoveItem(chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err, "Failed to remove item")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, cartResponse{Cart: c})
}
