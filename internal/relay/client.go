// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Package relay is the HTTP client for the remote relay API that supplies
aggregated cell counts, world stats and per-cell events.

Client Features:
  - Per-endpoint timeouts layered on the caller's context
  - Outbound rate limiting (golang.org/x/time/rate)
  - Circuit breaker wrapper (CircuitBreakerClient, sony/gobreaker)
  - A base URL that can be changed at runtime
  - Classified errors (ErrTransport, ErrMalformed, ErrNotOK)

A response is only accepted when the status is 2xx, the body is JSON and
its top-level ok flag is true. Individual cell records that fail
validation are dropped without failing the response.
*/
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/metrics"
)

const (
	cellsPath  = "/v1/world/cells"
	statsPath  = "/v1/world/stats"
	eventsPath = "/v1/world/events"
)

// maxErrorBodySize bounds how much of a failed response is kept for the error.
const maxErrorBodySize = 4 * 1024

// Options tunes a Client. Zero fields take the defaults used by the viewer.
type Options struct {
	CellsTimeout      time.Duration
	StatsTimeout      time.Duration
	EventsTimeout     time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// OptionsFromConfig maps relay configuration onto client options.
func OptionsFromConfig(cfg *config.RelayConfig) Options {
	return Options{
		CellsTimeout:      cfg.CellsTimeout,
		StatsTimeout:      cfg.StatsTimeout,
		EventsTimeout:     cfg.EventsTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}
}

func (o *Options) applyDefaults() {
	if o.CellsTimeout <= 0 {
		o.CellsTimeout = 5 * time.Second
	}
	if o.StatsTimeout <= 0 {
		o.StatsTimeout = 2200 * time.Millisecond
	}
	if o.EventsTimeout <= 0 {
		o.EventsTimeout = 4 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 10
	}
	if o.Burst <= 0 {
		o.Burst = 5
	}
	if o.HTTPClient == nil {
		// Per-request deadlines come from the context.
		o.HTTPClient = &http.Client{}
	}
}

// Client talks to one relay. It is safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	http    *http.Client
	limiter *rate.Limiter
	opts    Options
}

// NewClient returns a client for base, normalized with
// config.NormalizeBaseURL.
func NewClient(base string, opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		baseURL: config.NormalizeBaseURL(base),
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		opts:    opts,
	}
}

// BaseURL returns the current relay base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL switches the relay used by subsequent requests. In-flight
// requests keep the address they started with.
func (c *Client) SetBaseURL(base string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = config.NormalizeBaseURL(base)
}

// CellsURL builds the cells request URL against the current base.
func (c *Client) CellsURL(q CellsQuery) string {
	v := url.Values{}
	v.Set("res", strconv.Itoa(q.Resolution))
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("hours", formatHours(q.Hours))
	return c.BaseURL() + cellsPath + "?" + v.Encode()
}

// StatsURL builds the stats request URL against the current base.
func (c *Client) StatsURL(q StatsQuery) string {
	v := url.Values{}
	v.Set("res", strconv.Itoa(q.Resolution))
	v.Set("hours", formatHours(q.Hours))
	return c.BaseURL() + statsPath + "?" + v.Encode()
}

// EventsURL builds the events request URL against the current base. The
// drill-down panel exposes it as a deep link.
func (c *Client) EventsURL(q EventsQuery) string {
	return EventsURL(c.BaseURL(), q)
}

// EventsURL builds an events request URL against base.
func EventsURL(base string, q EventsQuery) string {
	v := url.Values{}
	v.Set("cell", q.Cell)
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("res", strconv.Itoa(q.Resolution))
	return base + eventsPath + "?" + v.Encode()
}

// envelope is implemented by every response body; the ok flag gates
// acceptance.
type envelope interface {
	okFlag() *bool
}

type rawCell struct {
	Cell  interface{} `json:"cell"`
	Count interface{} `json:"count"`
}

type cellsResponse struct {
	OK          *bool     `json:"ok"`
	Cells       []rawCell `json:"cells"`
	UniqueCells *int64    `json:"unique_cells"`
}

func (r *cellsResponse) okFlag() *bool { return r.OK }

// Cells fetches aggregated counts.
func (c *Client) Cells(ctx context.Context, q CellsQuery) (*CellsResult, error) {
	var resp cellsResponse
	if err := c.get(ctx, "cells", c.CellsURL(q), c.opts.CellsTimeout, &resp); err != nil {
		return nil, err
	}

	out := &CellsResult{Cells: make([]CellCount, 0, len(resp.Cells)), UniqueCells: resp.UniqueCells}
	for _, rc := range resp.Cells {
		cc, ok := decodeCell(rc)
		if !ok {
			out.Dropped++
			continue
		}
		out.Cells = append(out.Cells, cc)
	}
	if out.Dropped > 0 {
		metrics.RelayRecordsDropped.WithLabelValues("cells").Add(float64(out.Dropped))
	}
	return out, nil
}

type statsResponse struct {
	OK *bool `json:"ok"`
	Stats
}

func (r *statsResponse) okFlag() *bool { return r.OK }

// Stats fetches the world stats summary.
func (c *Client) Stats(ctx context.Context, q StatsQuery) (*Stats, error) {
	var resp statsResponse
	if err := c.get(ctx, "stats", c.StatsURL(q), c.opts.StatsTimeout, &resp); err != nil {
		return nil, err
	}
	s := resp.Stats
	return &s, nil
}

type eventsResponse struct {
	OK     *bool   `json:"ok"`
	Events []Event `json:"events"`
}

func (r *eventsResponse) okFlag() *bool { return r.OK }

// Events fetches the most recent events of one cell, newest first.
func (c *Client) Events(ctx context.Context, q EventsQuery) ([]Event, error) {
	var resp eventsResponse
	if err := c.get(ctx, "events", c.EventsURL(q), c.opts.EventsTimeout, &resp); err != nil {
		return nil, err
	}
	if resp.Events == nil {
		return []Event{}, nil
	}
	return resp.Events, nil
}

// get performs one rate-limited GET bounded by timeout, decodes the JSON
// body into out and checks its ok flag.
func (c *Client) get(ctx context.Context, endpoint, reqURL string, timeout time.Duration, out envelope) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	defer func() { metrics.RecordRelayRequest(endpoint, outcome, time.Since(start)) }()

	if err := c.limiter.Wait(ctx); err != nil {
		outcome = "transport_error"
		return fmt.Errorf("%s: rate limiter: %w: %w", endpoint, ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		outcome = "transport_error"
		return fmt.Errorf("%s: failed to create request: %w: %w", endpoint, ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = "transport_error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		return fmt.Errorf("%s: request failed: %w: %w", endpoint, ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "http_error"
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s: status %d: %s: %w", endpoint, resp.StatusCode, body, ErrTransport)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = "malformed"
		if ctx.Err() != nil {
			outcome = "timeout"
			return fmt.Errorf("%s: reading body: %w: %w", endpoint, ErrTransport, ctx.Err())
		}
		return fmt.Errorf("%s: decode: %w: %w", endpoint, ErrMalformed, err)
	}

	if ok := out.okFlag(); ok == nil || !*ok {
		outcome = "not_ok"
		return fmt.Errorf("%s: %w", endpoint, ErrNotOK)
	}
	return nil
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}

// decodeCell validates one record: the id must be a non-empty string and
// the count a finite, non-negative number (numeric strings are accepted).
// A missing count reads as zero.
func decodeCell(rc rawCell) (CellCount, bool) {
	id, ok := rc.Cell.(string)
	if !ok {
		return CellCount{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return CellCount{}, false
	}

	var f float64
	switch v := rc.Count.(type) {
	case nil:
		f = 0
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return CellCount{}, false
		}
		f = parsed
	default:
		return CellCount{}, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return CellCount{}, false
	}
	return CellCount{Cell: id, Count: int64(math.Round(f))}, true
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
