// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/logging"
)

// LimitScope names a group of routes sharing one rate limiter.
type LimitScope int

const (
	// ScopeAPI is the general /api/v1 limiter, sized from the server config.
	ScopeAPI LimitScope = iota
	// ScopeHealth is permissive for monitoring probes.
	ScopeHealth
	// ScopeWrite covers settings writes, which persist or re-arm timers.
	ScopeWrite
	// ScopeSelect covers drill-down selections; each one is a relay call.
	ScopeSelect
	// ScopeUpgrade covers WebSocket upgrade attempts.
	ScopeUpgrade
)

// fixedLimits are per-minute budgets for the scopes not taken from config.
var fixedLimits = map[LimitScope]int{
	ScopeHealth:  1000,
	ScopeWrite:   30,
	ScopeSelect:  120,
	ScopeUpgrade: 30,
}

// ChiMiddlewareConfig configures CORS and rate limiting.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	// RequestsPerWindow and Window size the ScopeAPI limiter.
	RequestsPerWindow int
	Window            time.Duration
	RateLimitDisabled bool
	KeyFunc           httprate.KeyFunc
}

// DefaultChiMiddlewareConfig allows no cross-origin callers and 100 API
// requests a minute per client IP.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSMaxAge:        86400,
		RequestsPerWindow: 100,
		Window:            time.Minute,
	}
}

// ChiMiddlewareConfigFromServer maps the server section. A non-positive
// RateLimitReqs disables every limiter.
func ChiMiddlewareConfigFromServer(cfg *config.ServerConfig) *ChiMiddlewareConfig {
	c := DefaultChiMiddlewareConfig()
	c.CORSAllowedOrigins = cfg.CORSOrigins
	c.RequestsPerWindow = cfg.RateLimitReqs
	if cfg.RateLimitWindow > 0 {
		c.Window = cfg.RateLimitWindow
	}
	c.RateLimitDisabled = cfg.RateLimitReqs <= 0
	return c
}

// ChiMiddleware builds the CORS handler once and hands out limiters per
// scope.
type ChiMiddleware struct {
	cfg  ChiMiddlewareConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware uses the defaults when cfg is nil.
func NewChiMiddleware(cfg *ChiMiddlewareConfig) *ChiMiddleware {
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
	}
	m := &ChiMiddleware{cfg: *cfg}
	if m.cfg.KeyFunc == nil {
		m.cfg.KeyFunc = httprate.KeyByIP
	}
	if m.cfg.Window <= 0 {
		m.cfg.Window = time.Minute
	}

	m.cors = cors.Handler(cors.Options{
		AllowedOrigins:   m.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "ETag"},
		AllowCredentials: false,
		MaxAge:           m.cfg.CORSMaxAge,
	})
	return m
}

// CORS returns the go-chi/cors middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// AllowsOrigin reports whether origin may call the API. Browsers skip CORS
// for WebSocket upgrades, so the upgrader checks this itself.
func (m *ChiMiddleware) AllowsOrigin(origin string) bool {
	return slices.Contains(m.cfg.CORSAllowedOrigins, "*") ||
		slices.Contains(m.cfg.CORSAllowedOrigins, origin)
}

// Limit returns the httprate limiter for scope. Every call builds a fresh
// counter, so routes sharing a scope should share the returned middleware.
func (m *ChiMiddleware) Limit(scope LimitScope) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	requests, window := m.cfg.RequestsPerWindow, m.cfg.Window
	if n, ok := fixedLimits[scope]; ok {
		requests, window = n, time.Minute
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(m.cfg.KeyFunc),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// APISecurityHeaders sets nosniff, frame denial and a referrer policy, plus
// HSTS behind TLS.
func APISecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("rate limit exceeded")
	respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests", nil)
}
