// Package app contains the application setup for storesim.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storesim/internal/auth"
	"github.com/abgdnv/storesim/internal/catalog"
	"github.com/abgdnv/storesim/internal/checkout"
	"github.com/abgdnv/storesim/internal/config"
	"github.com/abgdnv/storesim/internal/ledger"
	"github.com/abgdnv/storesim/internal/payment"
	"github.com/abgdnv/storesim/internal/session"
	"github.com/abgdnv/storesim/internal/storage"
	"github.com/abgdnv/storesim/internal/transport/rest"
	pkgauth "github.com/abgdnv/storesim/pkg/auth"
	"github.com/abgdnv/storesim/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/storesim/pkg/config"
	"github.com/abgdnv/storesim/pkg/messaging"
	"github.com/abgdnv/storesim/pkg/server"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

const serviceName = "storesim"

type Dependencies struct {
	Store     storage.Store
	Catalog   *catalog.Repository
	Ledger    *ledger.Ledger
	Accounts  *auth.Gateway
	Tokens    *pkgauth.HMACTokens
	Sessions  *session.Manager
	Checkout  *checkout.Service
	Publisher messaging.Publisher
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// OpenStore returns the key-value backend selected by cfg.Driver.
// For postgres the schema is migrated first; the returned store owns the pool.
func OpenStore(ctx context.Context, cfg pkgconfig.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case pkgconfig.StorageMemory:
		logger.Warn("Using in-memory storage, state is lost on restart")
		return storage.NewInMemoryStore(), nil
	case pkgconfig.StorageFile:
		return storage.NewFileStore(cfg.Dir)
	case pkgconfig.StoragePostgres:
		if err := storage.Migrate(cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("Successfully connected to the database!")
		return storage.NewPgStore(dbPool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// SetupDependencies wires the domain services on top of store.
// The catalog is loaded, migrated or seeded before anything is served.
func SetupDependencies(ctx context.Context, store storage.Store, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	repo := catalog.NewRepository(store, nil, logger)
	products, err := repo.LoadOrSeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("Catalog loaded", "products", len(products))

	tokens, err := pkgauth.NewHMACTokens(cfg.Auth.Token)
	if err != nil {
		return nil, err
	}

	ldg := ledger.NewLedger(store, logger)
	gateway := payment.NewBreaker(payment.NewSimulator(cfg.Checkout.PaymentLatency), cfg.Resilience.CircuitBreaker)

	return &Dependencies{
		Store:     store,
		Catalog:   repo,
		Ledger:    ldg,
		Accounts:  auth.NewGateway(store, cfg.Auth.Admin, auth.NewBcryptHasher(bcrypt.DefaultCost), logger),
		Tokens:    tokens,
		Sessions:  session.NewManager(cfg.Auth.Token.TTL, logger),
		Checkout:  checkout.NewService(repo, ldg, gateway, publisher, cfg.Checkout.PaymentTimeout, logger),
		Publisher: publisher,
		Logger:    logger,
	}, nil
}

// SetupHttpHandler builds the router with middleware and every route.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes of the store.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(rest.Deps{
		Catalog:  deps.Catalog,
		Ledger:   deps.Ledger,
		Accounts: deps.Accounts,
		Tokens:   deps.Tokens,
		Verifier: deps.Tokens,
		Sessions: deps.Sessions,
		Checkout: deps.Checkout,
	}, deps.Logger)
	handler.RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates and configures the HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, serviceName, SetupHttpHandler(deps))
}
