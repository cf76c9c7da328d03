// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package config

import (
	"fmt"
	"strings"
)

// Validate checks ranges and enums across all sections.
func (c *Config) Validate() error {
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.Refresh.Validate(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePrefs(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRelay() error {
	if err := ValidateBaseURL(c.Relay.BaseURL); err != nil {
		return fmt.Errorf("RELAY_BASE_URL: %w", err)
	}
	if c.Relay.CellsTimeout <= 0 || c.Relay.StatsTimeout <= 0 || c.Relay.EventsTimeout <= 0 {
		return fmt.Errorf("relay timeouts must be positive")
	}
	if c.Relay.CellsLimit < 1 || c.Relay.MiniCellsLimit < 1 {
		return fmt.Errorf("relay cells limits must be at least 1")
	}
	if c.Relay.EventsLimit < 1 {
		return fmt.Errorf("RELAY_EVENTS_LIMIT must be at least 1, got %d", c.Relay.EventsLimit)
	}
	if c.Relay.RequestsPerSecond <= 0 {
		return fmt.Errorf("RELAY_REQUESTS_PER_SECOND must be positive")
	}
	if c.Relay.Burst < 1 {
		return fmt.Errorf("RELAY_BURST must be at least 1, got %d", c.Relay.Burst)
	}
	if c.Relay.BreakerFailureRatio <= 0 || c.Relay.BreakerFailureRatio > 1 {
		return fmt.Errorf("relay breaker failure ratio must be in (0, 1], got %v", c.Relay.BreakerFailureRatio)
	}
	return nil
}

// Validate checks the refresh knobs. It is also used when the knobs are
// changed at runtime through the API. A negative auto-refresh interval is
// clamped to 0, which disables the timer.
func (r *RefreshConfig) Validate() error {
	if r.Resolution < 0 || r.Resolution > 15 {
		return fmt.Errorf("H3_RES must be between 0 and 15, got %d", r.Resolution)
	}
	if r.Hours <= 0 {
		return fmt.Errorf("LOOKBACK_HOURS must be positive, got %v", r.Hours)
	}
	if r.AutoRefreshSeconds < 0 {
		r.AutoRefreshSeconds = 0
	}
	switch strings.ToLower(r.Scale) {
	case "linear", "log":
	default:
		return fmt.Errorf("SCALE must be linear or log, got %q", r.Scale)
	}
	switch strings.ToLower(r.FitMode) {
	case "first", "always", "never":
	default:
		return fmt.Errorf("FIT_MODE must be first, always or never, got %q", r.FitMode)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.ChunkSize < 1 {
		return fmt.Errorf("RENDER_CHUNK_SIZE must be at least 1, got %d", c.Render.ChunkSize)
	}
	if c.Render.FrameInterval < 0 {
		return fmt.Errorf("RENDER_FRAME_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQS must be at least 1, got %d", c.Server.RateLimitReqs)
	}
	return nil
}

func (c *Config) validatePrefs() error {
	if c.Prefs.GCInterval < 0 {
		return fmt.Errorf("PREFS_GC_INTERVAL must not be negative")
	}
	if c.Prefs.GCInterval > 0 && (c.Prefs.GCRatio <= 0 || c.Prefs.GCRatio >= 1) {
		return fmt.Errorf("prefs gc_ratio must be between 0 and 1, got %v", c.Prefs.GCRatio)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
