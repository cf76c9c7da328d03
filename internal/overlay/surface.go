// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package overlay is the map surface: it holds the drawn cells as a GeoJSON
// feature collection and streams every change to viewers.
package overlay

import (
	"fmt"
	"math"
	"sync"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/geocell"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/render"
	"github.com/tomtom215/hexpulse/internal/websocket"
)

// Style is the polygon styling attached to every feature.
type Style struct {
	FillOpacity  float64
	StrokeColor  string
	StrokeWeight float64
	FitPadding   int
	FitMaxZoom   float64
}

// StyleFromConfig picks the embed or regular fill opacity.
func StyleFromConfig(cfg *config.Config) Style {
	return Style{
		FillOpacity:  cfg.EffectiveFillOpacity(),
		StrokeColor:  cfg.Render.StrokeColor,
		StrokeWeight: cfg.Render.StrokeWeight,
		FitPadding:   cfg.Render.FitPadding,
		FitMaxZoom:   float64(cfg.Render.FitMaxZoom),
	}
}

// ClearData is the overlay_clear payload.
type ClearData struct {
	Generation uint64 `json:"generation"`
}

// ChunkData is the overlay_chunk payload.
type ChunkData struct {
	Generation uint64                     `json:"generation"`
	Features   *geojson.FeatureCollection `json:"features"`
}

// DoneData is the overlay_done payload.
type DoneData struct {
	Generation uint64          `json:"generation"`
	Drawn      int             `json:"drawn"`
	Skipped    int             `json:"skipped"`
	Min        int64           `json:"min"`
	Max        int64           `json:"max"`
	Bounds     *geocell.Bounds `json:"bounds,omitempty"`
	SpanMeters float64         `json:"span_m,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Completed  time.Time       `json:"completed"`
}

// SnapshotData is the full overlay state sent to a viewer on connect.
type SnapshotData struct {
	Generation uint64                     `json:"generation"`
	Overlay    *geojson.FeatureCollection `json:"overlay"`
	Viewport   *Viewport                  `json:"viewport,omitempty"`
	LastDone   *DoneData                  `json:"last_done,omitempty"`
}

// Surface implements render.Surface over a GeoJSON feature collection.
type Surface struct {
	style Style
	pub   websocket.Broadcaster

	mu         sync.RWMutex
	generation uint64
	features   []*geojson.Feature
	byCell     map[string]int
	viewport   *Viewport
	lastDone   *DoneData
}

var _ render.Surface = (*Surface)(nil)

// NewSurface creates an empty surface. pub may be nil.
func NewSurface(style Style, pub websocket.Broadcaster) *Surface {
	return &Surface{
		style:  style,
		pub:    pub,
		byCell: make(map[string]int),
	}
}

// Clear drops every feature and starts a new generation.
func (s *Surface) Clear(generation uint64) {
	s.mu.Lock()
	s.generation = generation
	s.features = nil
	s.byCell = make(map[string]int)
	s.mu.Unlock()

	s.publish(websocket.MessageTypeOverlayClear, ClearData{Generation: generation})
}

// DrawChunk appends polygons as features. A chunk from an older generation
// is ignored.
func (s *Surface) DrawChunk(generation uint64, polys []render.Polygon) {
	chunk := make([]*geojson.Feature, 0, len(polys))
	for i := range polys {
		chunk = append(chunk, s.feature(&polys[i]))
	}

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		logging.Debug().Uint64("generation", generation).Uint64("current", s.generation).Msg("Ignoring stale overlay chunk")
		return
	}
	for _, f := range chunk {
		cell, _ := f.ID.(string)
		if i, ok := s.byCell[cell]; ok {
			s.features[i] = f
			continue
		}
		s.byCell[cell] = len(s.features)
		s.features = append(s.features, f)
	}
	s.mu.Unlock()

	s.publish(websocket.MessageTypeOverlayChunk, ChunkData{Generation: generation, Features: collection(chunk)})
}

// FitBounds computes the viewport for b and publishes it.
func (s *Surface) FitBounds(b geocell.Bounds) {
	v := FitViewport(b, ReferenceWidth, ReferenceHeight, s.style.FitPadding, s.style.FitMaxZoom)

	s.mu.Lock()
	s.viewport = &v
	s.mu.Unlock()

	s.publish(websocket.MessageTypeViewport, v)
}

// Done records the completed run.
func (s *Surface) Done(res render.Result) {
	d := DoneData{
		Generation: res.Generation,
		Drawn:      res.Drawn,
		Skipped:    res.Skipped,
		Min:        res.Min,
		Max:        res.Max,
		Bounds:     res.Bounds,
		DurationMS: res.Duration.Milliseconds(),
		Completed:  res.Completed.UTC(),
	}
	if res.Bounds != nil {
		d.SpanMeters = math.Round(res.Bounds.DiagonalMeters())
	}

	s.mu.Lock()
	s.lastDone = &d
	s.mu.Unlock()

	s.publish(websocket.MessageTypeOverlayDone, d)
}

func (s *Surface) feature(p *render.Polygon) *geojson.Feature {
	ring := make([][]float64, 0, len(p.Ring)+1)
	for _, v := range p.Ring {
		ring = append(ring, []float64{v.Lng, v.Lat})
	}
	if len(p.Ring) > 0 {
		ring = append(ring, []float64{p.Ring[0].Lng, p.Ring[0].Lat})
	}

	f := geojson.NewPolygonFeature([][][]float64{ring})
	f.ID = p.Cell
	f.SetProperty("cell", p.Cell)
	f.SetProperty("count", p.Count)
	f.SetProperty("t", p.T)
	f.SetProperty("fill", p.Fill.CSS())
	f.SetProperty("fill-hex", p.Fill.Hex())
	f.SetProperty("fill-opacity", s.style.FillOpacity)
	f.SetProperty("stroke", s.style.StrokeColor)
	f.SetProperty("stroke-width", s.style.StrokeWeight)
	return f
}

func collection(features []*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.AddFeature(f)
	}
	return fc
}

func (s *Surface) publish(messageType string, data interface{}) {
	if s.pub != nil {
		s.pub.BroadcastJSON(messageType, data)
	}
}

// Collection returns a copy of the current overlay.
func (s *Surface) Collection() *geojson.FeatureCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collection(s.features)
}

// GeoJSON encodes the current overlay.
func (s *Surface) GeoJSON() ([]byte, error) {
	data, err := s.Collection().MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return data, nil
}

// FeatureCount returns the number of drawn features.
func (s *Surface) FeatureCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.features)
}

// Viewport returns the last fitted viewport, or nil.
func (s *Surface) Viewport() *Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.viewport == nil {
		return nil
	}
	v := *s.viewport
	return &v
}

// Snapshot returns the full overlay state.
func (s *Surface) Snapshot() SnapshotData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := SnapshotData{Generation: s.generation, Overlay: collection(s.features)}
	if s.viewport != nil {
		v := *s.viewport
		snap.Viewport = &v
	}
	if s.lastDone != nil {
		d := *s.lastDone
		snap.LastDone = &d
	}
	return snap
}

// WelcomeMessages is the hub welcome hook for the overlay.
func (s *Surface) WelcomeMessages() []websocket.Message {
	return []websocket.Message{{Type: websocket.MessageTypeSnapshot, Data: s.Snapshot()}}
}
