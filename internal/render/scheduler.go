// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package render

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/hexpulse/internal/geocell"
	"github.com/tomtom215/hexpulse/internal/heatmap"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/metrics"
)

// DefaultChunkSize is the number of cells drawn between yields.
const DefaultChunkSize = 220

// FitMode decides when a completed run moves the viewport to its bounds.
type FitMode string

const (
	FitFirst  FitMode = "first"
	FitAlways FitMode = "always"
	FitNever  FitMode = "never"
)

// ParseFitMode maps a name onto a FitMode, defaulting to FitFirst.
func ParseFitMode(s string) FitMode {
	switch FitMode(strings.ToLower(strings.TrimSpace(s))) {
	case FitAlways:
		return FitAlways
	case FitNever:
		return FitNever
	default:
		return FitFirst
	}
}

// Polygon is one drawn cell.
type Polygon struct {
	Cell  string           `json:"cell"`
	Count int64            `json:"count"`
	T     float64          `json:"t"`
	Fill  heatmap.Color    `json:"fill"`
	Ring  []geocell.LatLng `json:"ring"`
}

// Surface receives the output of render runs. The Scheduler serializes
// all calls, so implementations need no locking of their own against it.
type Surface interface {
	// Clear removes every drawn polygon.
	Clear(generation uint64)
	// DrawChunk appends polygons to the current drawing.
	DrawChunk(generation uint64, polys []Polygon)
	// FitBounds moves the viewport to b.
	FitBounds(b geocell.Bounds)
	// Done reports a completed run.
	Done(res Result)
}

// Yielder suspends a run between chunks. It returns ctx.Err() when the
// context ends while waiting.
type Yielder func(ctx context.Context) error

// FrameYielder waits one frame interval between chunks. A non-positive
// interval only yields the processor.
func FrameYielder(interval time.Duration) Yielder {
	return func(ctx context.Context) error {
		if interval <= 0 {
			runtime.Gosched()
			return ctx.Err()
		}
		t := time.NewTimer(interval)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Config configures a Scheduler.
type Config struct {
	ChunkSize int
	Yield     Yielder

	// AutoFit enables fit-to-bounds on completion. Embedded views leave
	// the viewport alone regardless of the fit mode.
	AutoFit bool
}

// Options are per-run settings taken from the refresh configuration.
type Options struct {
	Scale heatmap.Scale
	Fit   FitMode
}

// Result describes one run.
type Result struct {
	Generation uint64          `json:"generation"`
	Total      int             `json:"total"`
	Drawn      int             `json:"drawn"`
	Skipped    int             `json:"skipped"`
	Min        int64           `json:"min"`
	Max        int64           `json:"max"`
	Bounds     *geocell.Bounds `json:"bounds,omitempty"`
	Fitted     bool            `json:"fitted"`
	Superseded bool            `json:"superseded"`
	Started    time.Time       `json:"started"`
	Completed  time.Time       `json:"completed"`
	Duration   time.Duration   `json:"duration"`
}

// Scheduler owns the overlay, the rendered cell index and the bounds of
// the last run. Only the newest run may write to any of them: every run
// takes a generation number and every write re-checks it under mu, so a
// superseded run stops at its next chunk and never lands geometry after a
// newer run has cleared the surface. Generations are only taken under mu.
type Scheduler struct {
	codec   geocell.Codec
	surface Surface
	cfg     Config

	gen atomic.Uint64

	mu         sync.Mutex
	index      map[string]int64
	bounds     *geocell.Bounds
	loadedOnce bool
	last       *Result

	now func() time.Time
}

// NewScheduler wires a scheduler to its codec and surface.
func NewScheduler(codec geocell.Codec, surface Surface, cfg Config) *Scheduler {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Yield == nil {
		cfg.Yield = FrameYielder(16 * time.Millisecond)
	}
	return &Scheduler{
		codec:   codec,
		surface: surface,
		cfg:     cfg,
		index:   make(map[string]int64),
		now:     time.Now,
	}
}

// Render draws batch progressively and blocks until the run completes or
// is superseded by a newer Render or Clear, or ctx ends.
func (s *Scheduler) Render(ctx context.Context, batch Batch, opts Options) Result {
	res := Result{Total: batch.Len(), Min: batch.Min, Max: batch.Max, Started: s.now()}
	log := logging.Ctx(ctx)

	// A canceled caller never takes a generation, so it cannot abort the
	// run in progress or wipe the current overlay.
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return s.superseded(res)
	}
	gen := s.gen.Add(1)
	res.Generation = gen
	s.surface.Clear(gen)
	s.index = make(map[string]int64, batch.Len())
	s.bounds = nil
	s.mu.Unlock()

	env := geocell.NewEnvelope()
	minV, maxV := float64(batch.Min), float64(batch.Max)
	chunk := make([]Polygon, 0, s.cfg.ChunkSize)

	for start := 0; start < batch.Len(); start += s.cfg.ChunkSize {
		if start > 0 {
			if err := s.cfg.Yield(ctx); err != nil {
				return s.superseded(res)
			}
		}
		if ctx.Err() != nil || s.gen.Load() != gen {
			return s.superseded(res)
		}

		end := min(start+s.cfg.ChunkSize, batch.Len())
		cells := batch.Cells[start:end]
		chunk = chunk[:0]
		for _, c := range cells {
			ring, err := s.codec.Boundary(c.Cell)
			if err != nil {
				res.Skipped++
				continue
			}
			env.Add(ring)
			t := heatmap.Normalize(float64(c.Count), minV, maxV, opts.Scale)
			chunk = append(chunk, Polygon{Cell: c.Cell, Count: c.Count, T: t, Fill: heatmap.Ramp(t), Ring: ring})
		}

		s.mu.Lock()
		if s.gen.Load() != gen {
			s.mu.Unlock()
			return s.superseded(res)
		}
		for _, c := range cells {
			s.index[c.Cell] = c.Count
		}
		if len(chunk) > 0 {
			drawn := make([]Polygon, len(chunk))
			copy(drawn, chunk)
			s.surface.DrawChunk(gen, drawn)
			metrics.RenderChunksTotal.Inc()
		}
		s.mu.Unlock()
		res.Drawn += len(chunk)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || s.gen.Load() != gen {
		return s.superseded(res)
	}

	res.Bounds = env.Bounds()
	s.bounds = res.Bounds

	shouldFit := opts.Fit == FitAlways || (opts.Fit == FitFirst && !s.loadedOnce)
	s.loadedOnce = true
	if shouldFit && s.cfg.AutoFit && res.Bounds != nil {
		s.surface.FitBounds(*res.Bounds)
		res.Fitted = true
	}

	res.Completed = s.now()
	res.Duration = res.Completed.Sub(res.Started)
	last := res
	s.last = &last
	s.surface.Done(res)

	if res.Skipped > 0 {
		metrics.RenderCellsSkipped.Add(float64(res.Skipped))
	}
	metrics.RecordRender(true, res.Duration, res.Drawn)
	log.Debug().
		Uint64("generation", gen).
		Int("drawn", res.Drawn).
		Int("skipped", res.Skipped).
		Bool("fitted", res.Fitted).
		Dur("took", res.Duration).
		Msg("Render complete")
	return res
}

func (s *Scheduler) superseded(res Result) Result {
	res.Superseded = true
	metrics.RecordRender(false, 0, 0)
	return res
}

// Clear aborts any run in progress and wipes the surface, the index and
// the bounds.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.gen.Add(1)
	s.surface.Clear(gen)
	s.index = make(map[string]int64)
	s.bounds = nil
}

// Fit moves the viewport to the bounds of the last completed run. It
// reports false when there is nothing to fit.
func (s *Scheduler) Fit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bounds == nil {
		return false
	}
	s.surface.FitBounds(*s.bounds)
	return true
}

// Lookup returns the count recorded for cell by the current run.
func (s *Scheduler) Lookup(cell string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[cell]
	return n, ok
}

// IndexSize returns the number of cells in the rendered cell index.
func (s *Scheduler) IndexSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Bounds returns the bounds of the last completed run, or nil.
func (s *Scheduler) Bounds() *geocell.Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bounds == nil {
		return nil
	}
	b := *s.bounds
	return &b
}

// LastResult returns the last completed run, or nil before the first.
func (s *Scheduler) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// Generation returns the generation of the newest run or clear.
func (s *Scheduler) Generation() uint64 {
	return s.gen.Load()
}
