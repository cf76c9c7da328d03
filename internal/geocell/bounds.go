// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package geocell

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371000.0

// Bounds is an axis-aligned lat/lng box in degrees. Longitudes are plain
// min/max values and never wrap the antimeridian.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Rect converts the box into an s2.Rect.
func (b Bounds) Rect() s2.Rect {
	return s2.Rect{
		Lat: r1.Interval{Lo: (s1.Angle(b.South) * s1.Degree).Radians(), Hi: (s1.Angle(b.North) * s1.Degree).Radians()},
		Lng: s1.Interval{Lo: (s1.Angle(b.West) * s1.Degree).Radians(), Hi: (s1.Angle(b.East) * s1.Degree).Radians()},
	}
}

// Center returns the midpoint of the box.
func (b Bounds) Center() LatLng {
	c := b.Rect().Center()
	return LatLng{Lat: c.Lat.Degrees(), Lng: c.Lng.Degrees()}
}

// DiagonalMeters is the great-circle distance between the south-west and
// north-east corners.
func (b Bounds) DiagonalMeters() float64 {
	sw := s2.LatLngFromDegrees(b.South, b.West)
	ne := s2.LatLngFromDegrees(b.North, b.East)
	return sw.Distance(ne).Radians() * EarthRadiusMeters
}

// Envelope accumulates the bounds of drawn vertices. The zero value is
// not usable; call NewEnvelope.
type Envelope struct {
	lat r1.Interval
	lng r1.Interval
}

// NewEnvelope returns an empty envelope.
func NewEnvelope() *Envelope {
	return &Envelope{lat: r1.EmptyInterval(), lng: r1.EmptyInterval()}
}

// Add extends the envelope with every vertex of ring.
func (e *Envelope) Add(ring []LatLng) {
	for _, v := range ring {
		e.lat = e.lat.AddPoint(v.Lat)
		e.lng = e.lng.AddPoint(v.Lng)
	}
}

// Empty reports whether nothing has been added.
func (e *Envelope) Empty() bool {
	return e.lat.IsEmpty() || e.lng.IsEmpty()
}

// Bounds returns the accumulated box, or nil when the envelope is empty.
func (e *Envelope) Bounds() *Bounds {
	if e.Empty() {
		return nil
	}
	return &Bounds{South: e.lat.Lo, West: e.lng.Lo, North: e.lat.Hi, East: e.lng.Hi}
}
