// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/hexpulse/internal/middleware"
)

// overlayCompressionLevel is the gzip level for GeoJSON responses. A full
// 8000 cell overlay is several megabytes of coordinates.
const overlayCompressionLevel = 5

// Router binds the handler to chi routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.Limit(ScopeHealth))
		r.Use(APISecurityHeaders)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.Limit(ScopeAPI))
		r.Use(APISecurityHeaders)
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.With(chimiddleware.Compress(overlayCompressionLevel, geoJSONContentType)).
			Get("/overlay", router.handler.Overlay)
		r.Get("/state", router.handler.State)

		r.Post("/reload", router.handler.Reload)
		r.Post("/fit", router.handler.Fit)
		r.Post("/clear", router.handler.Clear)

		r.Get("/relay", router.handler.Relay)
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.Limit(ScopeWrite))
			r.Put("/config", router.handler.UpdateConfig)
			r.Put("/relay", router.handler.UpdateRelay)
		})

		r.With(router.chiMiddleware.Limit(ScopeSelect)).
			Post("/cells/{cell}/select", router.handler.SelectCell)
		r.Get("/selection", router.handler.Selection)
		r.Delete("/selection", router.handler.CloseSelection)

		r.With(router.chiMiddleware.Limit(ScopeUpgrade)).
			Get("/ws", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
