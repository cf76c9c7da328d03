// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/hexpulse/internal/drilldown"
	"github.com/tomtom215/hexpulse/internal/models"
	"github.com/tomtom215/hexpulse/internal/validation"
)

// SelectCell opens the drill-down panel for a drawn cell and waits for
// its events. The displayed count comes from the rendered cell index, so
// only cells on the map can be selected.
func (h *Handler) SelectCell(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := models.SelectRequest{Cell: strings.TrimSpace(chi.URLParam(r, "cell"))}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
		return
	}

	count, ok := h.scheduler.Lookup(req.Cell)
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Cell is not on the map", nil)
		return
	}

	// The panel is shared by every viewer, so a caller hanging up must not
	// turn the selection into an error.
	panel, err := h.fetcher.Select(context.WithoutCancel(r.Context()), req.Cell, count)
	if err != nil {
		if errors.Is(err, drilldown.ErrDisabled) {
			respondError(w, http.StatusForbidden, "FEATURE_DISABLED", "Drill-down is disabled in embed mode", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "SELECTION_ERROR", "Failed to open selection", err)
		return
	}

	respondSuccess(w, http.StatusOK, panel, start)
}

// Selection returns the current panel.
func (h *Handler) Selection(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.fetcher.Panel(), time.Now())
}

// CloseSelection closes the panel and abandons any fetch in flight.
func (h *Handler) CloseSelection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.fetcher.Close()
	respondSuccess(w, http.StatusOK, h.fetcher.Panel(), start)
}
