// Package rest exposes the store over a JSON HTTP API.
package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/storesim/internal/auth"
	"github.com/abgdnv/storesim/internal/cart"
	"github.com/abgdnv/storesim/internal/catalog"
	"github.com/abgdnv/storesim/internal/checkout"
	"github.com/abgdnv/storesim/internal/ledger"
	"github.com/abgdnv/storesim/internal/session"
	pkgauth "github.com/abgdnv/storesim/pkg/auth"
	"github.com/abgdnv/storesim/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(subject, role, sessionID string) (string, time.Time, error)
}

// CheckoutStarter begins checkout processes.
type CheckoutStarter interface {
	Begin(ctx context.Context, username string, engine *cart.Engine) (*checkout.Process, error)
}

type Handler struct {
	catalog  catalog.ProductCatalog
	ledger   ledger.UserLedger
	accounts auth.Authenticator
	tokens   TokenIssuer
	verifier pkgauth.Verifier
	sessions *session.Manager
	checkout CheckoutStarter
	validate *validator.Validate
	logger   *slog.Logger
}

// Deps groups the collaborators of a Handler.
type Deps struct {
	Catalog  catalog.ProductCatalog
	Ledger   ledger.UserLedger
	Accounts auth.Authenticator
	Tokens   TokenIssuer
	Verifier pkgauth.Verifier
	Sessions *session.Manager
	Checkout CheckoutStarter
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  deps.Catalog,
		ledger:   deps.Ledger,
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		verifier: deps.Verifier,
		sessions: deps.Sessions,
		checkout: deps.Checkout,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the store.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/categories", h.Categories)
			r.Get("/{id}", h.FindProduct)
			r.Get("/{id}/related", h.RelatedProducts)

			r.Group(func(r chi.Router) {
				r.Use(web.BearerAuth(h.verifier, h.logger), h.requireSession, h.requireRole(auth.RoleAdmin))
				r.Post("/", h.CreateProduct)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeleteProduct)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(web.BearerAuth(h.verifier, h.logger), h.requireSession)
			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)

			r.Group(func(r chi.Router) {
				r.Use(h.requireRole(auth.RoleCustomer))
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", h.GetCart)
					r.Delete("/", h.ClearCart)
					r.Post("/items", h.AddCartItem)
					r.Patch("/items/{id}", h.ChangeCartQuantity)
					r.Delete("/items/{id}", h.RemoveCartItem)
				})
				r.Route("/checkout", func(r chi.Router) {
					r.Get("/", h.GetCheckout)
					r.Post("/", h.BeginCheckout)
					r.Delete("/", h.AbandonCheckout)
					r.Put("/details", h.SubmitCheckoutDetails)
					r.Post("/commit", h.CommitCheckout)
				})
				r.Get("/orders", h.ListOrders)
				r.Get("/wishlist", h.GetWishlist)
				r.Post("/wishlist/{id}", h.ToggleWishlist)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
