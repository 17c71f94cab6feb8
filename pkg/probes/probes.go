// Package probes signals readiness and liveness through files, for exec-style container probes.
package probes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abgdnv/storesim/pkg/config"
)

// MarkReady creates the readiness file.
func MarkReady(cfg config.ProbesConfig) error {
	if err := touch(cfg.ReadinessFileName); err != nil {
		return fmt.Errorf("failed to write readiness file: %w", err)
	}
	return nil
}

// RunLiveness touches the liveness file every interval until ctx is done, then removes both probe files.
func RunLiveness(ctx context.Context, cfg config.ProbesConfig, logger *slog.Logger) error {
	ticker := time.NewTicker(cfg.LivenessInterval)
	defer ticker.Stop()
	defer cleanup(cfg, logger)

	if err := touch(cfg.LivenessFileName); err != nil {
		return fmt.Errorf("failed to write liveness file: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := touch(cfg.LivenessFileName); err != nil {
				logger.WarnContext(ctx, "Failed to refresh liveness file", "error", err)
			}
		}
	}
}

func touch(name string) error {
	now := time.Now()
	if err := os.Chtimes(name, now, now); err == nil {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	return f.Close()
}

func cleanup(cfg config.ProbesConfig, logger *slog.Logger) {
	for _, name := range []string{cfg.ReadinessFileName, cfg.LivenessFileName} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove probe file", "file", name, "error", err)
		}
	}
}
