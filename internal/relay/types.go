// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package relay

import (
	"context"
	"errors"
)

// Error classes. Every error returned by the client wraps exactly one.
var (
	// ErrTransport covers connection failures, timeouts and non-2xx statuses.
	ErrTransport = errors.New("relay transport failure")

	// ErrMalformed means the body was not the expected JSON shape.
	ErrMalformed = errors.New("malformed relay response")

	// ErrNotOK means the body decoded but its ok flag was missing or false.
	ErrNotOK = errors.New("relay response not ok")

	// ErrCircuitOpen means the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("relay circuit open")
)

// CellCount is one aggregated (cell, count) pair.
type CellCount struct {
	Cell  string `json:"cell"`
	Count int64  `json:"count"`
}

// CellsQuery parameterizes /v1/world/cells.
type CellsQuery struct {
	Resolution int
	Hours      float64
	Limit      int
}

// CellsResult is a decoded cells response. Dropped counts records that
// failed per-record validation.
type CellsResult struct {
	Cells       []CellCount
	UniqueCells *int64
	Dropped     int
}

// StatsQuery parameterizes /v1/world/stats.
type StatsQuery struct {
	Resolution int
	Hours      float64
}

// LastEvent identifies the newest event seen by the relay.
type LastEvent struct {
	TS string `json:"ts"`
	ID string `json:"id"`
}

// Stats is a decoded stats response. Absent numeric fields stay nil.
type Stats struct {
	ActiveNodes *int64     `json:"active_nodes"`
	NodesTotal  *int64     `json:"nodes_total"`
	EventsTotal *int64     `json:"events_total"`
	UniqueCells *int64     `json:"unique_cells"`
	Res         *int       `json:"res"`
	LastEvent   *LastEvent `json:"last_event"`
}

// EventsQuery parameterizes /v1/world/events.
type EventsQuery struct {
	Cell       string
	Limit      int
	Resolution int
}

// Event is one recent event in a cell, newest first.
type Event struct {
	TS         string `json:"ts"`
	ID         string `json:"id"`
	PreviewURL string `json:"preview_url"`
}

// API is the relay surface used by the refresh controller and the
// drill-down fetcher. Client and CircuitBreakerClient implement it.
type API interface {
	Cells(ctx context.Context, q CellsQuery) (*CellsResult, error)
	Stats(ctx context.Context, q StatsQuery) (*Stats, error)
	Events(ctx context.Context, q EventsQuery) ([]Event, error)
	BaseURL() string
	SetBaseURL(base string)
}
