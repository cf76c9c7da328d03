// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/hexpulse/config.yaml",
	"/etc/hexpulse/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultRelayBaseURL is used when neither config nor preferences name a relay.
const DefaultRelayBaseURL = "http://127.0.0.1:8787"

func defaultConfig() *Config {
	return &Config{
		Relay: RelayConfig{
			BaseURL:             DefaultRelayBaseURL,
			CellsTimeout:        5 * time.Second,
			StatsTimeout:        2200 * time.Millisecond,
			EventsTimeout:       4 * time.Second,
			CellsLimit:          5000,
			MiniCellsLimit:      8000,
			EventsLimit:         10,
			RequestsPerSecond:   10,
			Burst:               5,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      30 * time.Second,
			BreakerFailureRatio: 0.6,
			BreakerMinRequests:  5,
		},
		Refresh: RefreshConfig{
			Resolution:         9,
			Hours:              24,
			MinCount:           1,
			Scale:              "log",
			AutoRefreshSeconds: 0,
			FitMode:            "first",
		},
		Render: RenderConfig{
			ChunkSize:        220,
			FrameInterval:    16 * time.Millisecond,
			FillOpacity:      0.64,
			EmbedFillOpacity: 0.46,
			StrokeColor:      "rgba(0,0,0,0.35)",
			StrokeWeight:     0.7,
			FitPadding:       40,
			FitMaxZoom:       14,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8790,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Prefs: PrefsConfig{
			Path:       "",
			GCInterval: 10 * time.Minute,
			GCRatio:    0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.Relay.BaseURL = NormalizeBaseURL(cfg.Relay.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"relay_base_url":            "relay.base_url",
	"relay_url":                 "relay.base_url",
	"relay_cells_timeout":       "relay.cells_timeout",
	"relay_stats_timeout":       "relay.stats_timeout",
	"relay_events_timeout":      "relay.events_timeout",
	"relay_cells_limit":         "relay.cells_limit",
	"relay_mini_cells_limit":    "relay.mini_cells_limit",
	"relay_events_limit":        "relay.events_limit",
	"relay_requests_per_second": "relay.requests_per_second",
	"relay_burst":               "relay.burst",
	"relay_breaker_timeout":     "relay.breaker_timeout",

	"h3_res":               "refresh.resolution",
	"lookback_hours":       "refresh.hours",
	"min_count":            "refresh.min_count",
	"scale":                "refresh.scale",
	"auto_refresh_seconds": "refresh.auto_refresh_seconds",
	"fit_mode":             "refresh.fit_mode",

	"render_chunk_size":     "render.chunk_size",
	"render_frame_interval": "render.frame_interval",
	"embed_mode":            "render.embed_mode",
	"mini_mode":             "render.mini_mode",

	"http_host":         "server.host",
	"http_port":         "server.port",
	"http_timeout":      "server.timeout",
	"cors_origins":      "server.cors_origins",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",

	"prefs_path":        "prefs.path",
	"prefs_gc_interval": "prefs.gc_interval",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names onto koanf paths.
// Unknown variables map to "" and are ignored.
//
//   - RELAY_BASE_URL -> relay.base_url
//   - H3_RES -> refresh.resolution
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
