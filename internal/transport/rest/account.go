package rest

import (
	"net/http"

	"github.com/abgdnv/storesim/pkg/web"
	"github.com/go-chi/chi/v5"
)

type wishlistResponse struct {
	ProductIDs []string `json:"productIds"`
	Added      *bool    `json:"added,omitempty"`
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.LoadOrders(r.Context(), sessionFrom(r).Identity.Username)
	if err != nil {
		h.respondErr(w, r, err, "Failed to fetch orders")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.ledger.LoadWishlist(r.Context(), sessionFrom(r).Identity.Username)
	if err != nil {
		h.respondErr(w, r, err, "Failed to fetch wishlist")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, wishlistResponse{ProductIDs: ids})
}

// ToggleWishlist adds the product to the wishlist, or removes it if already present.
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.catalog.FindByID(r.Context(), id); err != nil {
		h.respondErr(w, r, err, "Failed to update wishlist")
		return
	}
	ids, added, err := h.ledger.ToggleWishlist(r.Context(), sessionFrom(r).Identity.Username, id)
	if err != nil {
		h.respondErr(w, r, err, "Failed to update wishlist")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, wishlistResponse{ProductIDs: ids, Added: &added})
}
