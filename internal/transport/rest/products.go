package rest

import (
	"net/http"

	"github.com/abgdnv/storesim/internal/catalog"
	"github.com/abgdnv/storesim/pkg/web"
	"github.com/go-chi/chi/v5"
)

const (
	defaultRelatedLimit = 4
	maxRelatedLimit     = 50
)

// ListProducts returns the catalog, optionally filtered by q, category, inStock and expr.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	inStock, ok := web.ParseBoolParam(r, w, h.logger, "inStock")
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := catalog.Filter{
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		InStockOnly: inStock,
		Expr:        q.Get("expr"),
	}
	products, err := h.catalog.Search(r.Context(), filter)
	if err != nil {
		h.respondErr(w, r, err, "Failed to fetch products")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, products)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.respondErr(w, r, err, "Failed to fetch categories")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, categories)
}

func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err, "Failed to fetch product")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

// RelatedProducts returns other products of the same category, at most limit (default 4).
func (h *Handler) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	limit, ok := web.ParseIntParam(r, w, h.logger, "limit", defaultRelatedLimit, web.Gt(0), web.Lte(maxRelatedLimit))
	if !ok {
		return
	}
	related, err := h.catalog.Related(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.respondErr(w, r, err, "Failed to fetch related products")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, related)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var draft catalog.Draft
	if !web.DecodeJSON(w, r, h.logger, &draft) {
		return
	}
	created, err := h.catalog.Create(r.Context(), draft)
	if err != nil {
		h.respondErr(w, r, err, "Failed to create product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created", "product_id", created.ID)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch catalog.Patch
	if !web.DecodeJSON(w, r, h.logger, &patch) {
		return
	}
	updated, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err, "Failed to update product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated", "product_id", updated.ID)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.respondErr(w, r, err, "Failed to delete product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}
