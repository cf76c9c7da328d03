// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/metrics"
	"github.com/tomtom215/hexpulse/internal/supervisor"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("hexpulse exited")
	}
	logging.Info().Msg("hexpulse stopped")
}

// run serves until SIGINT or SIGTERM. Deferred cleanup runs before main
// decides the exit status.
func run(cfg *config.Config) error {
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
	logging.Info().Str("version", version).Str("addr", cfg.Server.Addr()).Msg("starting hexpulse")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.close()

	if cfg.Server.CORSAllowsAny() {
		logging.Warn().Msg("CORS_ORIGINS=* lets any site read the overlay and change the relay address")
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	a.supervise(tree)

	for err := range tree.ServeBackground(ctx) {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree stopped with error")
		}
	}
	
	if unstopped, err := tree.UnstoppedServiceReport(); err == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service missed the shutdown deadline")
		}
	}
	return nil
}
