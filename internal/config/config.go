// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package config loads Hexpulse configuration.
//
// Loading order (koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/hexpulse/config.yaml)
//  3. Environment variables, mapped by envTransformFunc
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	client := relay.NewClient(cfg.Relay.BaseURL, relay.OptionsFromConfig(&cfg.Relay))
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Relay   RelayConfig   `koanf:"relay"`
	Refresh RefreshConfig `koanf:"refresh"`
	Render  RenderConfig  `koanf:"render"`
	Server  ServerConfig  `koanf:"server"`
	Prefs   PrefsConfig   `koanf:"prefs"`
	Logging LoggingConfig `koanf:"logging"`
}

// RelayConfig describes the remote relay API that supplies cell counts,
// aggregate stats and per-cell events.
type RelayConfig struct {
	// BaseURL is the initial relay address. A value persisted through the
	// preference store takes precedence once the server is running.
	BaseURL string `koanf:"base_url"`

	CellsTimeout  time.Duration `koanf:"cells_timeout"`
	StatsTimeout  time.Duration `koanf:"stats_timeout"`
	EventsTimeout time.Duration `koanf:"events_timeout"`

	CellsLimit     int `koanf:"cells_limit"`
	MiniCellsLimit int `koanf:"mini_cells_limit"`
	EventsLimit    int `koanf:"events_limit"`

	// Outbound request limiter (golang.org/x/time/rate).
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// Circuit breaker (sony/gobreaker).
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
}

// RefreshConfig holds the user-tunable query and display knobs of a
// refresh cycle.
type RefreshConfig struct {
	Resolution         int     `koanf:"resolution" json:"resolution"`
	Hours              float64 `koanf:"hours" json:"hours"`
	MinCount           int64   `koanf:"min_count" json:"min_count"`
	Scale              string  `koanf:"scale" json:"scale"`
	AutoRefreshSeconds int     `koanf:"auto_refresh_seconds" json:"auto_refresh_seconds"`
	FitMode            string  `koanf:"fit_mode" json:"fit_mode"`
}

// AutoRefresh returns the refresh interval; zero disables the timer.
func (r RefreshConfig) AutoRefresh() time.Duration {
	if r.AutoRefreshSeconds <= 0 {
		return 0
	}
	return time.Duration(r.AutoRefreshSeconds) * time.Second
}

// RenderConfig controls progressive drawing and the display variant.
type RenderConfig struct {
	ChunkSize     int           `koanf:"chunk_size"`
	FrameInterval time.Duration `koanf:"frame_interval"`

	// EmbedMode disables stats, drill-down and auto-fit, and lowers fill opacity.
	EmbedMode bool `koanf:"embed_mode"`

	// MiniMode raises the cells limit.
	MiniMode bool `koanf:"mini_mode"`

	FillOpacity      float64 `koanf:"fill_opacity"`
	EmbedFillOpacity float64 `koanf:"embed_fill_opacity"`
	StrokeColor      string  `koanf:"stroke_color"`
	StrokeWeight     float64 `koanf:"stroke_weight"`
	FitPadding       int     `koanf:"fit_padding"`
	FitMaxZoom       int     `koanf:"fit_max_zoom"`
}

// ServerConfig configures the viewer HTTP server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr is the listen address in host:port form.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CORSAllowsAny reports whether any origin may call the API.
func (s *ServerConfig) CORSAllowsAny() bool {
	for _, o := range s.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// PrefsConfig locates the badger directory holding user preferences.
// An empty Path keeps preferences in memory only.
type PrefsConfig struct {
	Path string `koanf:"path"`

	// Value log garbage collection. A zero interval disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
	GCRatio    float64       `koanf:"gc_ratio"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// CellsLimitFor returns the cells request limit for the configured mode.
func (c *Config) CellsLimitFor() int {
	if c.Render.MiniMode {
		return c.Relay.MiniCellsLimit
	}
	return c.Relay.CellsLimit
}

// EffectiveFillOpacity returns the polygon fill opacity for the configured mode.
func (c *Config) EffectiveFillOpacity() float64 {
	if c.Render.EmbedMode {
		return c.Render.EmbedFillOpacity
	}
	return c.Render.FillOpacity
}
