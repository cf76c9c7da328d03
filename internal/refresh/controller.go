// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package refresh drives reload cycles: each cycle fetches cells and stats
// from the relay, re-renders the overlay and updates the stats panel.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/display"
	"github.com/tomtom215/hexpulse/internal/heatmap"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/metrics"
	"github.com/tomtom215/hexpulse/internal/relay"
	"github.com/tomtom215/hexpulse/internal/render"
	"github.com/tomtom215/hexpulse/internal/websocket"
)

// Trigger names why a cycle ran.
type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerManual  Trigger = "manual"
	TriggerTimer   Trigger = "timer"
)

// Renderer is the part of render.Scheduler a cycle drives.
type Renderer interface {
	Render(ctx context.Context, batch render.Batch, opts render.Options) render.Result
}

// Options are the fixed settings of a controller.
type Options struct {
	// CellsLimit is the cells request limit (larger in mini mode).
	CellsLimit int

	// Embed skips the stats request and the as-of label.
	Embed bool
}

// OptionsFromConfig derives controller options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{CellsLimit: cfg.CellsLimitFor(), Embed: cfg.Render.EmbedMode}
}

// State is what viewers see of the controller.
type State struct {
	AsOf      string               `json:"as_of"`
	Stats     *StatsPanel          `json:"stats,omitempty"`
	Config    config.RefreshConfig `json:"config"`
	Cycles    uint64               `json:"cycles"`
	CycleID   string               `json:"cycle_id,omitempty"`
	Trigger   Trigger              `json:"trigger,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Controller owns the auto-refresh timer and runs reload cycles. A new
// cycle cancels the one before it; a canceled cycle publishes nothing.
type Controller struct {
	api      relay.API
	renderer Renderer
	pub      websocket.Broadcaster
	opts     Options

	reload chan Trigger
	rearm  chan struct{}

	mu       sync.RWMutex
	cfg      config.RefreshConfig
	interval time.Duration
	state    State

	cycleMu     sync.Mutex
	cycleSeq    uint64
	cancelCycle context.CancelFunc
	cycles      sync.WaitGroup

	now func() time.Time
}

// NewController creates a controller. pub may be nil.
func NewController(api relay.API, renderer Renderer, pub websocket.Broadcaster, cfg config.RefreshConfig, opts Options) *Controller {
	c := &Controller{
		api:      api,
		renderer: renderer,
		pub:      pub,
		opts:     opts,
		reload:   make(chan Trigger, 1),
		rearm:    make(chan struct{}, 1),
		cfg:      cfg,
		interval: cfg.AutoRefresh(),
		now:      time.Now,
	}
	if !opts.Embed {
		p := InitialStatsPanel(cfg.Resolution, cfg.Hours)
		c.state.Stats = &p
	}
	c.state.Config = cfg
	return c
}

// Serve runs the controller until ctx ends. It starts with one cycle.
func (c *Controller) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", c.Interval()).Int("cells_limit", c.opts.CellsLimit).Bool("embed", c.opts.Embed).
		Msg("Refresh controller started")

	c.trigger(TriggerInitial)

	var (
		ticker  *time.Ticker
		tickC   <-chan time.Time
		current time.Duration
	)
	arm := func() {
		d := c.Interval()
		if ticker != nil && d == current {
			return
		}
		if ticker != nil {
			ticker.Stop()
			ticker, tickC = nil, nil
		}
		current = d
		if d > 0 {
			ticker = time.NewTicker(d)
			tickC = ticker.C
		}
		logging.Debug().Dur("interval", d).Msg("Auto-refresh timer armed")
	}
	arm()
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
		c.cancelCurrent()
		c.cycles.Wait()
		logging.Info().Msg("Refresh controller stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.rearm:
			arm()
		case t := <-c.reload:
			c.startCycle(ctx, t)
		case <-tickC:
			c.startCycle(ctx, TriggerTimer)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (c *Controller) String() string {
	return "refresh-controller"
}

// Reload requests a cycle. Requests made while one is pending coalesce.
func (c *Controller) Reload() {
	c.trigger(TriggerManual)
}

func (c *Controller) trigger(t Trigger) {
	select {
	case c.reload <- t:
	default:
	}
}

// SetInterval replaces the auto-refresh timer. Zero or less disables it.
func (c *Controller) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
	c.poke()
}

// Interval returns the auto-refresh interval.
func (c *Controller) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

// UpdateConfig swaps the settings used by the next cycle. Drawn geometry
// is not touched until then. The timer is re-armed when the interval
// changed.
func (c *Controller) UpdateConfig(cfg config.RefreshConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid refresh config: %w", err)
	}
	c.mu.Lock()
	c.cfg = cfg
	c.interval = cfg.AutoRefresh()
	c.state.Config = cfg
	c.mu.Unlock()
	c.poke()
	return nil
}

func (c *Controller) poke() {
	select {
	case c.rearm <- struct{}{}:
	default:
	}
}

// Config returns the current refresh settings.
func (c *Controller) Config() config.RefreshConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// State returns a copy of the viewer state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	if s.Stats != nil {
		p := *s.Stats
		s.Stats = &p
	}
	return s
}

// WelcomeMessages is the hub welcome hook for the stats panel.
func (c *Controller) WelcomeMessages() []websocket.Message {
	return []websocket.Message{{Type: websocket.MessageTypeStatsUpdate, Data: c.State()}}
}

func (c *Controller) cancelCurrent() {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	if c.cancelCycle != nil {
		c.cancelCycle()
		c.cancelCycle = nil
	}
}

// startCycle cancels the running cycle and starts a new one.
func (c *Controller) startCycle(parent context.Context, t Trigger) {
	ctx, cancel := context.WithCancel(logging.ContextWithNewCorrelationID(parent))

	c.cycleMu.Lock()
	if c.cancelCycle != nil {
		c.cancelCycle()
	}
	c.cancelCycle = cancel
	c.cycleSeq++
	seq := c.cycleSeq
	c.cycleMu.Unlock()

	cfg := c.Config()
	metrics.RefreshCyclesTotal.WithLabelValues(string(t)).Inc()

	c.mu.Lock()
	c.state.Cycles++
	c.state.CycleID = logging.CorrelationIDFromContext(ctx)
	c.state.Trigger = t
	c.mu.Unlock()

	c.cycles.Add(1)
	go func() {
		defer c.cycles.Done()
		defer c.finishCycle(seq, cancel)
		c.runCycle(ctx, seq, cfg, t)
	}()
}

func (c *Controller) finishCycle(seq uint64, cancel context.CancelFunc) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	cancel()
	if c.cycleSeq == seq {
		c.cancelCycle = nil
	}
}

// runCycle fetches cells and stats concurrently.
func (c *Controller) runCycle(ctx context.Context, seq uint64, cfg config.RefreshConfig, t Trigger) {
	log := logging.Ctx(ctx)
	log.Debug().Str("trigger", string(t)).Int("res", cfg.Resolution).Float64("hours", cfg.Hours).Msg("Refresh cycle started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.loadCells(ctx, seq, cfg)
	}()
	if !c.opts.Embed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.loadStats(ctx, seq, cfg)
		}()
	}
	wg.Wait()
}

func (c *Controller) loadCells(ctx context.Context, seq uint64, cfg config.RefreshConfig) {
	log := logging.Ctx(ctx)
	started := c.now()

	res, err := c.api.Cells(ctx, relay.CellsQuery{Resolution: cfg.Resolution, Hours: cfg.Hours, Limit: c.opts.CellsLimit})
	if err != nil {
		if superseded(ctx, err) {
			return
		}
		metrics.RefreshFailuresTotal.WithLabelValues("cells").Inc()
		log.Warn().Err(err).Msg("Failed to fetch cells")
		if !c.opts.Embed {
			c.publishState(seq, func(s *State) { s.AsOf = display.AsOfError })
		}
		return
	}
	if ctx.Err() != nil {
		// answered after a newer cycle took over
		return
	}

	batch := render.NewBatch(res.Cells, cfg.MinCount)
	result := c.renderer.Render(ctx, batch, render.Options{
		Scale: heatmap.ParseScale(cfg.Scale),
		Fit:   render.ParseFitMode(cfg.FitMode),
	})
	if result.Superseded {
		return
	}

	metrics.RefreshLastSuccess.SetToCurrentTime()
	log.Info().
		Int("cells", batch.Len()).
		Int("filtered", batch.Filtered+res.Dropped).
		Int("drawn", result.Drawn).
		Dur("took", result.Completed.Sub(started)).
		Msg("Overlay refreshed")

	if !c.opts.Embed {
		label := display.AsOf(result.Completed, result.Completed.Sub(started))
		c.publishState(seq, func(s *State) { s.AsOf = label })
	}
}

func (c *Controller) loadStats(ctx context.Context, seq uint64, cfg config.RefreshConfig) {
	st, err := c.api.Stats(ctx, relay.StatsQuery{Resolution: cfg.Resolution, Hours: cfg.Hours})
	if err != nil {
		if superseded(ctx, err) {
			return
		}
		metrics.RefreshFailuresTotal.WithLabelValues("stats").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to fetch stats, showing fallback")
		c.publishState(seq, func(s *State) {
			prev := InitialStatsPanel(cfg.Resolution, cfg.Hours)
			if s.Stats != nil {
				prev = *s.Stats
			}
			p := FallbackStatsPanel(prev)
			s.Stats = &p
		})
		return
	}

	p := BuildStatsPanel(st, cfg.Resolution, cfg.Hours, c.now())
	c.publishState(seq, func(s *State) { s.Stats = &p })
}

// publishState applies update and broadcasts the new state, unless cycle
// seq has been superseded.
func (c *Controller) publishState(seq uint64, update func(*State)) {
	c.cycleMu.Lock()
	if c.cycleSeq != seq {
		c.cycleMu.Unlock()
		return
	}
	c.mu.Lock()
	update(&c.state)
	c.state.UpdatedAt = c.now().UTC()
	s := c.state
	if s.Stats != nil {
		p := *s.Stats
		s.Stats = &p
	}
	c.mu.Unlock()
	c.cycleMu.Unlock()

	if c.pub != nil {
		c.pub.BroadcastJSON(websocket.MessageTypeStatsUpdate, s)
	}
}

func superseded(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
