// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/models"
)

// breakerState is implemented by relay.CircuitBreakerClient.
type breakerState interface {
	State() string
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady reports 503 while the relay circuit is open. Stale geometry
// still renders then, but no refresh can succeed.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	circuit := "none"
	if b, ok := h.relay.(breakerState); ok {
		circuit = b.State()
	}
	ready := circuit != "open"

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	data := map[string]interface{}{
		"relay_base_url": h.relay.BaseURL(),
		"relay_circuit":  circuit,
		"ready_to_serve": ready,
		"uptime":         time.Since(h.startTime).Seconds(),
	}
	if last := h.scheduler.LastResult(); last != nil {
		data["last_render"] = last.Completed
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status:   status,
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// WebSocket upgrades the connection and registers a client with the hub.
// The hub queues the current overlay, stats and selection before any
// broadcast reaches the new client.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	h.wsHub.Attach(conn)
}
