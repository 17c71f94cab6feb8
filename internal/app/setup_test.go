package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/storesim/internal/config"
	"github.com/abgdnv/storesim/internal/storage"
	pkgconfig "github.com/abgdnv/storesim/pkg/config"
	"github.com/abgdnv/storesim/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() *config.Config {
	return &config.Config{
		Storage:  pkgconfig.StorageConfig{Driver: pkgconfig.StorageMemory},
		Checkout: pkgconfig.CheckoutConfig{PaymentLatency: time.Millisecond, PaymentTimeout: time.Second},
		Auth: pkgconfig.AuthConfig{
			Admin: pkgconfig.AdminConfig{Username: "admin", Password: "admin123"},
			Token: pkgconfig.TokenConfig{Secret: strings.Repeat("k", 32), Issuer: "storesim", TTL: time.Hour},
		},
		Resilience: pkgconfig.ResilienceConfig{CircuitBreaker: pkgconfig.CircuitBreakerConfig{
			ConsecutiveFailures: 5,
			ErrorRatePercent:    60,
			OpenTimeout:         time.Second,
		}},
	}
}

func Test_OpenStore(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         pkgconfig.StorageConfig
		expectError bool
	}{
		{name: "Success - memory", cfg: pkgconfig.StorageConfig{Driver: pkgconfig.StorageMemory}},
		{name: "Success - file", cfg: pkgconfig.StorageConfig{Driver: pkgconfig.StorageFile, Dir: t.TempDir()}},
		{name: "Error - unknown driver", cfg: pkgconfig.StorageConfig{Driver: "redis"}, expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			store, err := OpenStore(context.Background(), tc.cfg, discardLogger)
			// then
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, store.Close())
		})
	}
}

func Test_SetupHttpHandler(t *testing.T) {
	// given
	deps, err := SetupDependencies(context.Background(), storage.NewInMemoryStore(),
		messaging.NewLogPublisher(discardLogger), testConfig(), discardLogger)
	require.NoError(t, err)
	deps.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("orders_placed_total 0"))
	})
	handler := SetupHttpHandler(deps)
	testCases := []struct {
		name         string
		path         string
		expectedCode int
	}{
		{name: "health", path: "/healthz", expectedCode: http.StatusOK},
		{name: "seeded products", path: "/api/v1/products/1", expectedCode: http.StatusOK},
		{name: "metrics", path: "/metrics", expectedCode: http.StatusOK},
		{name: "protected cart", path: "/api/v1/cart", expectedCode: http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}
}

func Test_SetupDependencies_InvalidTokenConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Token.Secret = "short"

	_, err := SetupDependencies(context.Background(), storage.NewInMemoryStore(),
		messaging.NewLogPublisher(discardLogger), cfg, discardLogger)

	assert.Error(t, err)
}
