// Package main runs the storesim HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/storesim/internal/app"
	"github.com/abgdnv/storesim/internal/config"
	"github.com/abgdnv/storesim/internal/notifier"
	"github.com/abgdnv/storesim/pkg/bootstrap"
	"github.com/abgdnv/storesim/pkg/config/configloader"
	"github.com/abgdnv/storesim/pkg/messaging"
	"github.com/abgdnv/storesim/pkg/nats"
	"github.com/abgdnv/storesim/pkg/probes"
	"github.com/abgdnv/storesim/pkg/telemetry"
	"github.com/abgdnv/storesim/pkg/web"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storesim"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, wires the store and starts the HTTP, pprof, notifier and probe loops.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level, web.LogAttrs)
	slog.SetDefault(logger)

	telemetry.SetPropagator()
	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	}
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		mp, handler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return err
		}
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown meter provider", "error", err)
			}
		}()
		metricsHandler = handler
	}

	var publisher messaging.Publisher = messaging.NewLogPublisher(logger)
	var js jetstream.JetStream
	if cfg.Nats.Enabled {
		natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return fmt.Errorf("failed to create NATS connection: %w", err)
		}
		defer natsConn.Close()
		if js, err = nats.NewJetStreamContext(natsConn); err != nil {
			return fmt.Errorf("failed to get JetStream context: %w", err)
		}
		if _, err = nats.EnsureStream(ctx, js, messaging.OrdersStream, messaging.OrdersPlacedSubject); err != nil {
			return err
		}
		publisher = nats.NewJetStreamPublisher(js)
		logger.Info("Publishing order events to NATS", slog.String("url", cfg.Nats.Url))
	}

	store, err := app.OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	deps, err := app.SetupDependencies(ctx, store, publisher, cfg, logger)
	if err != nil {
		return err
	}
	deps.Metrics = metricsHandler
	httpServer := app.SetupHttpServer(deps, cfg)

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr: cfg.PProf.Addr,
		}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.Subscriber.Enabled {
		g.Go(func() error {
			err := notifier.Start(gCtx, js, cfg.Subscriber, notifier.NewLogSender(logger), logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notifier failed", "error", err)
				return err
			}
			logger.Info("notifier stopped gracefully.")
			return nil
		})
	}

	g.Go(func() error {
		if err := probes.MarkReady(cfg.Probes); err != nil {
			return err
		}
		return probes.RunLiveness(gCtx, cfg.Probes, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
