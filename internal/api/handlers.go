// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/drilldown"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/overlay"
	"github.com/tomtom215/hexpulse/internal/prefs"
	"github.com/tomtom215/hexpulse/internal/refresh"
	"github.com/tomtom215/hexpulse/internal/relay"
	"github.com/tomtom215/hexpulse/internal/render"
	ws "github.com/tomtom215/hexpulse/internal/websocket"
)

// Deps are the components the viewer API drives.
type Deps struct {
	Scheduler  *render.Scheduler
	Surface    *overlay.Surface
	Controller *refresh.Controller
	Fetcher    *drilldown.Fetcher
	Relay      relay.API
	Prefs      prefs.Store
	Hub        *ws.Hub
}

// Handler serves the viewer API.
type Handler struct {
	config     *config.Config
	scheduler  *render.Scheduler
	surface    *overlay.Surface
	controller *refresh.Controller
	fetcher    *drilldown.Fetcher
	relay      relay.API
	prefs      prefs.Store
	wsHub      *ws.Hub
	origins    func(origin string) bool
	startTime  time.Time
}

// NewHandler creates a handler. allowOrigin decides WebSocket origins;
// nil allows any origin that is present.
func NewHandler(cfg *config.Config, d Deps, allowOrigin func(origin string) bool) *Handler {
	return &Handler{
		config:     cfg,
		scheduler:  d.Scheduler,
		surface:    d.Surface,
		controller: d.Controller,
		fetcher:    d.Fetcher,
		relay:      d.Relay,
		prefs:      d.Prefs,
		wsHub:      d.Hub,
		origins:    allowOrigin,
		startTime:  time.Now(),
	}
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin rejects upgrades without an Origin header (browsers
// always send one) and origins outside the CORS allow list.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	if h.origins == nil || h.origins(origin) {
		return true
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
