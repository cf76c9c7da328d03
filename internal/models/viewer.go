// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package models

import (
	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/geocell"
	"github.com/tomtom215/hexpulse/internal/overlay"
	"github.com/tomtom215/hexpulse/internal/refresh"
	"github.com/tomtom215/hexpulse/internal/render"
)

// ViewerState is the payload of GET /api/v1/state.
type ViewerState struct {
	refresh.State

	Bounds    *geocell.Bounds   `json:"bounds,omitempty"`
	Viewport  *overlay.Viewport `json:"viewport,omitempty"`
	LastRun   *render.Result    `json:"last_run,omitempty"`
	Cells     int               `json:"cells"`
	Embed     bool              `json:"embed"`
	Mini      bool              `json:"mini"`
	RelayBase string            `json:"relay_base_url"`
	Clients   int               `json:"clients"`
}

// ConfigUpdateRequest is the body of PUT /api/v1/config. Absent fields
// keep their current value.
type ConfigUpdateRequest struct {
	Resolution         *int     `json:"resolution" validate:"omitempty,min=0,max=15"`
	Hours              *float64 `json:"hours" validate:"omitempty,gt=0,lte=8760"`
	MinCount           *int64   `json:"min_count" validate:"omitempty,min=0"`
	Scale              *string  `json:"scale" validate:"omitempty,oneof=linear log"`
	AutoRefreshSeconds *int     `json:"auto_refresh_seconds" validate:"omitempty,max=86400"`
	FitMode            *string  `json:"fit_mode" validate:"omitempty,oneof=first always never"`
}

// Apply returns cur with the fields present in r replaced.
func (r *ConfigUpdateRequest) Apply(cur config.RefreshConfig) config.RefreshConfig {
	if r.Resolution != nil {
		cur.Resolution = *r.Resolution
	}
	if r.Hours != nil {
		cur.Hours = *r.Hours
	}
	if r.MinCount != nil {
		cur.MinCount = *r.MinCount
	}
	if r.Scale != nil {
		cur.Scale = *r.Scale
	}
	if r.AutoRefreshSeconds != nil {
		cur.AutoRefreshSeconds = *r.AutoRefreshSeconds
	}
	if r.FitMode != nil {
		cur.FitMode = *r.FitMode
	}
	return cur
}

// RelayUpdateRequest is the body of PUT /api/v1/relay.
type RelayUpdateRequest struct {
	BaseURL string `json:"base_url" validate:"required,relayurl"`
}

// SelectRequest is the path input of POST /api/v1/cells/{cell}/select.
type SelectRequest struct {
	Cell string `json:"cell" validate:"required,h3cell"`
}
