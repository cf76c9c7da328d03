// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package geocell decodes hexagonal cell ids into boundary polygons and
// accumulates the geographic envelope of everything drawn.
package geocell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/uber/h3-go/v4"
)

// ErrInvalidCell is returned for ids that do not name a valid cell.
var ErrInvalidCell = errors.New("invalid cell id")

// LatLng is a vertex in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Codec turns a cell id into its boundary ring. Implementations must be
// safe for concurrent use.
type Codec interface {
	Boundary(cell string) ([]LatLng, error)
}

// H3Codec decodes H3 index strings such as "8928308280fffff".
type H3Codec struct{}

// NewH3Codec returns the H3 codec.
func NewH3Codec() H3Codec {
	return H3Codec{}
}

// Boundary returns the cell's vertices in order, without repeating the
// first vertex.
func (H3Codec) Boundary(cell string) ([]LatLng, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil, ErrInvalidCell
	}
	c := h3.Cell(h3.IndexFromString(s))
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCell, cell)
	}

	boundary := c.Boundary()
	if len(boundary) < 3 {
		return nil, fmt.Errorf("%w: %q has a degenerate boundary", ErrInvalidCell, cell)
	}
	out := make([]LatLng, len(boundary))
	for i, v := range boundary {
		out[i] = LatLng{Lat: v.Lat, Lng: v.Lng}
	}
	return out, nil
}

// Resolution reports the H3 resolution encoded in cell.
func (H3Codec) Resolution(cell string) (int, error) {
	c := h3.Cell(h3.IndexFromString(strings.TrimSpace(cell)))
	if !c.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCell, cell)
	}
	return c.Resolution(), nil
}
