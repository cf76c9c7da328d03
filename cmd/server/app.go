// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/hexpulse/internal/api"
	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/drilldown"
	"github.com/tomtom215/hexpulse/internal/geocell"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/overlay"
	"github.com/tomtom215/hexpulse/internal/prefs"
	"github.com/tomtom215/hexpulse/internal/refresh"
	"github.com/tomtom215/hexpulse/internal/relay"
	"github.com/tomtom215/hexpulse/internal/render"
	"github.com/tomtom215/hexpulse/internal/supervisor"
	"github.com/tomtom215/hexpulse/internal/supervisor/services"
	ws "github.com/tomtom215/hexpulse/internal/websocket"
)

// app holds the wired components of one server process.
type app struct {
	cfg        *config.Config
	store      *prefs.BadgerStore
	relay      relay.API
	hub        *ws.Hub
	surface    *overlay.Surface
	scheduler  *render.Scheduler
	controller *refresh.Controller
	fetcher    *drilldown.Fetcher
	server     *http.Server
}

// newApp opens the preference store and wires every component. The caller
// owns the returned app and must call close.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return nil, err
	}

	base := prefs.ResolveRelayBaseURL(ctx, store, cfg.Relay.BaseURL)
	client := relay.NewClient(base, relay.OptionsFromConfig(&cfg.Relay))
	relayAPI := relay.NewCircuitBreakerClient(client, relay.BreakerSettingsFromConfig(&cfg.Relay))

	hub := ws.NewHub()
	surface := overlay.NewSurface(overlay.StyleFromConfig(cfg), hub)
	scheduler := render.NewScheduler(geocell.NewH3Codec(), surface, render.Config{
		ChunkSize: cfg.Render.ChunkSize,
		Yield:     render.FrameYielder(cfg.Render.FrameInterval),
		AutoFit:   !cfg.Render.EmbedMode,
	})
	controller := refresh.NewController(relayAPI, scheduler, hub, cfg.Refresh, refresh.OptionsFromConfig(cfg))
	fetcher := drilldown.NewFetcher(relayAPI, hub, drilldown.Options{
		Limit:    cfg.Relay.EventsLimit,
		Disabled: cfg.Render.EmbedMode,
	}, controller.Config)

	// A viewer that connects mid-session starts from the drawn overlay,
	// then the stats panel, then any open selection.
	hub.SetWelcome(func() []ws.Message {
		msgs := surface.WelcomeMessages()
		msgs = append(msgs, controller.WelcomeMessages()...)
		return append(msgs, fetcher.WelcomeMessages()...)
	})

	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(&cfg.Server))
	handler := api.NewHandler(cfg, api.Deps{
		Scheduler:  scheduler,
		Surface:    surface,
		Controller: controller,
		Fetcher:    fetcher,
		Relay:      relayAPI,
		Prefs:      store,
		Hub:        hub,
	}, mw.AllowsOrigin)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mw).SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	logging.Info().
		Str("relay", base).
		Int("resolution", cfg.Refresh.Resolution).
		Float64("hours", cfg.Refresh.Hours).
		Bool("embed", cfg.Render.EmbedMode).
		Bool("mini", cfg.Render.MiniMode).
		Str("prefs_path", cfg.Prefs.Path).
		Msg("Configuration loaded")

	return &app{
		cfg:        cfg,
		store:      store,
		relay:      relayAPI,
		hub:        hub,
		surface:    surface,
		scheduler:  scheduler,
		controller: controller,
		fetcher:    fetcher,
		server:     server,
	}, nil
}

// supervise adds every long-running component to tree.
func (a *app) supervise(tree *supervisor.SupervisorTree) {
	tree.Add(supervisor.LayerData, services.NewPrefsGCService(a.store, a.cfg.Prefs.GCInterval, a.cfg.Prefs.GCRatio))
	tree.Add(supervisor.LayerRefresh, a.controller)
	tree.Add(supervisor.LayerMessaging, services.NewWebSocketHubService(a.hub))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(a.server, a.server.Addr, a.cfg.Server.ShutdownTimeout))
}

// close releases what the supervisor does not own.
func (a *app) close() {
	a.fetcher.Close()
	if err := a.store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing preference store")
	}
}
