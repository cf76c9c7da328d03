// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/models"
	"github.com/tomtom215/hexpulse/internal/prefs"
)

// UpdateConfig applies a partial refresh settings update. Drawn geometry
// is untouched; the new settings take effect on the next cycle, and a
// changed interval re-arms the timer immediately.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ConfigUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	next := req.Apply(h.controller.Config())
	if err := h.controller.UpdateConfig(next); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	next = h.controller.Config()

	logging.Ctx(r.Context()).Info().
		Int("resolution", next.Resolution).
		Float64("hours", next.Hours).
		Int64("min_count", next.MinCount).
		Str("scale", next.Scale).
		Int("auto_refresh_seconds", next.AutoRefreshSeconds).
		Str("fit_mode", next.FitMode).
		Msg("Refresh settings updated")

	respondSuccess(w, http.StatusOK, next, start)
}

type relayView struct {
	BaseURL string                 `json:"base_url"`
	Stored  *prefs.RelayPreference `json:"stored,omitempty"`
}

// Relay returns the relay base URL in use and the stored preference, if any.
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	view := relayView{BaseURL: h.relay.BaseURL()}

	if h.prefs != nil {
		pref, err := h.prefs.RelayBaseURL(r.Context())
		switch {
		case err == nil:
			view.Stored = pref
		case errors.Is(err, prefs.ErrNotFound):
		default:
			respondError(w, http.StatusInternalServerError, "PREFS_ERROR", "Failed to read relay preference", err)
			return
		}
	}

	respondSuccess(w, http.StatusOK, view, start)
}

// UpdateRelay persists a new relay base URL, points the client at it and
// queues a reload.
func (h *Handler) UpdateRelay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RelayUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if h.prefs == nil {
		respondError(w, http.StatusServiceUnavailable, "PREFS_ERROR", "Preference store unavailable", nil)
		return
	}

	pref, err := h.prefs.SetRelayBaseURL(r.Context(), req.BaseURL)
	if err != nil {
		if errors.Is(err, prefs.ErrInvalidURL) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "PREFS_ERROR", "Failed to store relay preference", err)
		return
	}

	h.relay.SetBaseURL(pref.BaseURL)
	h.controller.Reload()

	logging.Ctx(r.Context()).Info().Str("base_url", pref.BaseURL).Msg("Relay base URL updated")
	respondSuccess(w, http.StatusOK, relayView{BaseURL: h.relay.BaseURL(), Stored: pref}, start)
}
