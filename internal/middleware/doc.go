// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Package middleware provides the http.HandlerFunc middleware used by the
viewer API.

  - RequestID: X-Request-ID propagation plus request and correlation ids in
    the logging context
  - PrometheusMetrics: request count, latency and in-flight instrumentation
    labelled by chi route pattern

Both are plain func(http.HandlerFunc) http.HandlerFunc and are adapted to
chi's r.Use by the api package:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

Compression and CORS come from chi and go-chi/cors directly.
*/
package middleware
