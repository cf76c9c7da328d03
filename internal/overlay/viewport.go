// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package overlay

import (
	"math"

	"github.com/tomtom215/hexpulse/internal/geocell"
)

// Reference map size used to turn fitted bounds into a zoom level. Viewers
// with another size recompute from Bounds, Padding and MaxZoom.
const (
	ReferenceWidth  = 1280
	ReferenceHeight = 800

	tileSize = 256
	maxLat   = 85.05112878
)

// Viewport is where the map should move after a fit.
type Viewport struct {
	Center  geocell.LatLng `json:"center"`
	Zoom    float64        `json:"zoom"`
	Bounds  geocell.Bounds `json:"bounds"`
	Padding int            `json:"padding"`
	MaxZoom float64        `json:"max_zoom"`
}

// FitViewport returns the web-mercator viewport that shows b inside a
// width x height map with padding pixels on every side, capped at maxZoom.
// A degenerate box zooms straight to maxZoom.
func FitViewport(b geocell.Bounds, width, height, padding int, maxZoom float64) Viewport {
	v := Viewport{Center: b.Center(), Bounds: b, Padding: padding, MaxZoom: maxZoom, Zoom: maxZoom}

	w := float64(width - 2*padding)
	h := float64(height - 2*padding)
	if w <= 0 || h <= 0 {
		v.Zoom = 0
		return v
	}

	lngFrac := (b.East - b.West) / 360
	latFrac := (mercatorY(b.North) - mercatorY(b.South)) / (2 * math.Pi)

	zoom := maxZoom
	if lngFrac > 0 {
		zoom = math.Min(zoom, math.Log2(w/tileSize/lngFrac))
	}
	if latFrac > 0 {
		zoom = math.Min(zoom, math.Log2(h/tileSize/latFrac))
	}
	v.Zoom = math.Max(0, math.Floor(zoom*100)/100)
	return v
}

func mercatorY(lat float64) float64 {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	phi := lat * math.Pi / 180
	return math.Log(math.Tan(math.Pi/4 + phi/2))
}
