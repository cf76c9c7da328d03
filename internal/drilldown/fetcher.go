// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package drilldown fetches recent events for a selected cell and keeps the
// selection panel.
package drilldown

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/display"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/metrics"
	"github.com/tomtom215/hexpulse/internal/relay"
	"github.com/tomtom215/hexpulse/internal/websocket"
)

// DefaultEventsLimit is the number of events requested per selection.
const DefaultEventsLimit = 10

// ErrDisabled is returned by Select in embed mode.
var ErrDisabled = errors.New("drill-down disabled in embed mode")

// Panel is the selection panel. At most one is open.
type Panel struct {
	Open       bool   `json:"open"`
	Token      uint64 `json:"token"`
	Cell       string `json:"cell,omitempty"`
	Count      int64  `json:"count"`
	Title      string `json:"title,omitempty"`
	Meta       string `json:"meta,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	EventsURL  string `json:"events_url,omitempty"`
	QueryLink  string `json:"query_link,omitempty"`
	Loading    bool   `json:"loading"`
	Error      bool   `json:"error"`
}

// Options configures a Fetcher.
type Options struct {
	Limit    int
	Disabled bool
}

// Fetcher serves cell selections. A newer selection supersedes an older
// one: its request is canceled and its result never reaches the panel.
type Fetcher struct {
	api      relay.API
	pub      websocket.Broadcaster
	opts     Options
	settings func() config.RefreshConfig

	mu     sync.Mutex
	token  uint64
	panel  Panel
	cancel context.CancelFunc

	now func() time.Time
}

// NewFetcher wires a fetcher. settings supplies the current resolution and
// lookback; pub may be nil.
func NewFetcher(api relay.API, pub websocket.Broadcaster, opts Options, settings func() config.RefreshConfig) *Fetcher {
	if opts.Limit <= 0 {
		opts.Limit = DefaultEventsLimit
	}
	return &Fetcher{api: api, pub: pub, opts: opts, settings: settings, now: time.Now}
}

// Select opens the panel for cell, fetches its recent events and returns
// the resulting panel. When a newer selection or Close arrives first, the
// returned panel is the current one and this fetch changes nothing.
func (f *Fetcher) Select(ctx context.Context, cell string, count int64) (Panel, error) {
	if f.opts.Disabled {
		return Panel{}, ErrDisabled
	}

	s := f.settings()
	base := f.api.BaseURL()
	q := relay.EventsQuery{Cell: cell, Limit: f.opts.Limit, Resolution: s.Resolution}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.token++
	token := f.token
	f.cancel = cancel
	f.panel = Panel{
		Open:      true,
		Token:     token,
		Cell:      cell,
		Count:     count,
		Title:     "H3 " + cell,
		Meta:      "count: " + display.Int(count) + "\nloading events...",
		EventsURL: relay.EventsURL(base, q),
		QueryLink: QueryLink(cell, s.Resolution, s.Hours),
		Loading:   true,
	}
	opened := f.panel
	f.publish(opened)
	f.mu.Unlock()

	log := logging.Ctx(ctx).With().Str("cell", cell).Uint64("token", token).Logger()
	events, err := f.api.Events(ctx, q)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token != token {
		metrics.DrilldownRequestsTotal.WithLabelValues("superseded").Inc()
		log.Debug().Msg("Selection superseded")
		return f.panel, nil
	}
	f.cancel = nil

	p := opened
	p.Loading = false
	if err != nil {
		metrics.DrilldownRequestsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("Failed to fetch cell events")
		p.Error = true
		p.Meta = "count: " + display.Int(count) + "\nERROR: failed to fetch events"
	} else {
		metrics.DrilldownRequestsTotal.WithLabelValues("success").Inc()
		p.Meta = Summary(count, events, f.now())
		if len(events) > 0 && events[0].PreviewURL != "" {
			p.PreviewURL = PreviewURL(base, events[0].PreviewURL)
		}
	}
	f.panel = p
	f.publish(p)
	return p, nil
}

// Close closes the panel and abandons any fetch in flight.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.token++
	f.panel = Panel{Token: f.token}
	f.publish(f.panel)
}

// Panel returns the current panel.
func (f *Fetcher) Panel() Panel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.panel
}

// WelcomeMessages is the hub welcome hook for the selection panel.
func (f *Fetcher) WelcomeMessages() []websocket.Message {
	return []websocket.Message{{Type: websocket.MessageTypeSelection, Data: f.Panel()}}
}

// publish is called with f.mu held so panel updates leave in token order.
func (f *Fetcher) publish(p Panel) {
	if f.pub != nil {
		f.pub.BroadcastJSON(websocket.MessageTypeSelection, p)
	}
}

// Summary renders the panel text for a successful fetch. events[0] is the
// latest event.
func Summary(count int64, events []relay.Event, now time.Time) string {
	lines := []string{"count: " + display.Int(count) + " (events returned: " + strconv.Itoa(len(events)) + ")"}

	if len(events) > 0 && events[0].TS != "" {
		latest := events[0]
		lines = append(lines, "latest: "+latest.TS+" ("+display.AgeSince(latest.TS, now)+" ago)")
	} else {
		lines = append(lines, "latest: "+display.Placeholder)
	}
	if len(events) > 0 && events[0].ID != "" {
		lines = append(lines, "latest id: "+events[0].ID)
	}
	return strings.Join(lines, "\n")
}

// PreviewURL joins a relay-relative preview path onto base.
func PreviewURL(base, preview string) string {
	if strings.HasPrefix(preview, "/") {
		return base + preview
	}
	return base + "/" + preview
}

// QueryLink is the playground link for the events query of cell.
func QueryLink(cell string, res int, hours float64) string {
	return "api.html?endpoint=world-events" +
		"&cell=" + url.QueryEscape(cell) +
		"&res=" + strconv.Itoa(res) +
		"&hours=" + strconv.FormatFloat(hours, 'f', -1, 64)
}
