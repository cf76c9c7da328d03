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

// geoJSONContentType is the registered GeoJSON media type (RFC 7946).
const geoJSONContentType = "application/geo+json"

// Overlay returns the drawn cells as a bare GeoJSON FeatureCollection.
// A matching If-None-Match answers 304.
func (h *Handler) Overlay(w http.ResponseWriter, r *http.Request) {
	data, err := h.surface.GeoJSON()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "OVERLAY_ERROR", "Failed to encode overlay", err)
		return
	}

	etag := generateETag(data)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeBody(w, http.StatusOK, geoJSONContentType, data)
}

// State returns everything a viewer needs to draw the chrome around the map.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	state := models.ViewerState{
		State:     h.controller.State(),
		Bounds:    h.scheduler.Bounds(),
		Viewport:  h.surface.Viewport(),
		LastRun:   h.scheduler.LastResult(),
		Cells:     h.scheduler.IndexSize(),
		Embed:     h.config.Render.EmbedMode,
		Mini:      h.config.Render.MiniMode,
		RelayBase: h.relay.BaseURL(),
	}
	if h.wsHub != nil {
		state.Clients = h.wsHub.ClientCount()
	}

	respondSuccess(w, http.StatusOK, state, start)
}

// Reload queues a manual refresh cycle. Triggers arriving while one is
// queued collapse into it.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.controller.Reload()
	logging.Ctx(r.Context()).Debug().Msg("Manual reload requested")
	respondSuccess(w, http.StatusAccepted, map[string]interface{}{"queued": true}, start)
}

// Fit moves the viewport to the bounds of the last completed run.
func (h *Handler) Fit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	fitted := h.scheduler.Fit()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"fitted":   fitted,
		"viewport": h.surface.Viewport(),
	}, start)
}

// Clear wipes the overlay and the cell index, aborts any run in progress
// and closes the selection panel.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.scheduler.Clear()
	if h.fetcher != nil {
		h.fetcher.Close()
	}
	logging.Ctx(r.Context()).Info().Msg("Map cleared")
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"cleared":    true,
		"generation": h.scheduler.Generation(),
	}, start)
}
