// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package relaytest provides a programmable in-memory relay.API for tests.
package relaytest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/relay"
)

// Fake implements relay.API with per-endpoint hooks. A nil hook answers
// with an empty successful response.
type Fake struct {
	CellsFunc  func(ctx context.Context, q relay.CellsQuery) (*relay.CellsResult, error)
	StatsFunc  func(ctx context.Context, q relay.StatsQuery) (*relay.Stats, error)
	EventsFunc func(ctx context.Context, q relay.EventsQuery) ([]relay.Event, error)

	CellsCalls  atomic.Int32
	StatsCalls  atomic.Int32
	EventsCalls atomic.Int32

	mu   sync.RWMutex
	base string
}

var _ relay.API = (*Fake)(nil)

// NewFake returns a fake pointed at base.
func NewFake(base string) *Fake {
	return &Fake{base: config.NormalizeBaseURL(base)}
}

func (f *Fake) Cells(ctx context.Context, q relay.CellsQuery) (*relay.CellsResult, error) {
	f.CellsCalls.Add(1)
	if f.CellsFunc == nil {
		return &relay.CellsResult{Cells: []relay.CellCount{}}, nil
	}
	return f.CellsFunc(ctx, q)
}

func (f *Fake) Stats(ctx context.Context, q relay.StatsQuery) (*relay.Stats, error) {
	f.StatsCalls.Add(1)
	if f.StatsFunc == nil {
		return &relay.Stats{}, nil
	}
	return f.StatsFunc(ctx, q)
}

func (f *Fake) Events(ctx context.Context, q relay.EventsQuery) ([]relay.Event, error) {
	f.EventsCalls.Add(1)
	if f.EventsFunc == nil {
		return []relay.Event{}, nil
	}
	return f.EventsFunc(ctx, q)
}

func (f *Fake) BaseURL() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.base
}

func (f *Fake) SetBaseURL(base string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.base = config.NormalizeBaseURL(base)
}

// Int64 returns a pointer to n.
func Int64(n int64) *int64 { return &n }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
