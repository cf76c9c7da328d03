// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package metrics holds the Prometheus instrumentation for Hexpulse. Every
// series is prefixed "hexpulse_" and grouped by subsystem; /metrics serves
// the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hexpulse"

var (
	latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	renderBuckets  = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
)

// relay
var (
	RelayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "relay", Name: "requests_total",
		Help: "Relay API calls by endpoint (cells, stats, events) and outcome.",
	}, []string{"endpoint", "outcome"})

	RelayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "relay", Name: "request_duration_seconds",
		Help:    "Relay API call latency.",
		Buckets: latencyBuckets,
	}, []string{"endpoint"})

	RelayRecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "relay", Name: "records_dropped_total",
		Help: "Malformed records skipped while decoding relay responses.",
	}, []string{"endpoint"})
)

// render
var (
	RenderRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "render", Name: "runs_total",
		Help: "Render runs that completed or were superseded.",
	}, []string{"outcome"})

	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "render", Name: "duration_seconds",
		Help:    "Wall time of completed render runs, yields included.",
		Buckets: renderBuckets,
	})

	RenderCellsDrawn = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "render", Name: "cells_drawn",
		Help: "Polygons drawn by the last completed run.",
	})

	RenderCellsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "render", Name: "cells_skipped_total",
		Help: "Cells without decodable geometry.",
	})

	RenderChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "render", Name: "chunks_total",
		Help: "Chunks handed to the overlay surface.",
	})
)

// refresh and drill-down
var (
	RefreshCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "refresh", Name: "cycles_total",
		Help: "Refresh cycles by trigger (manual, timer).",
	}, []string{"trigger"})

	RefreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "refresh", Name: "failures_total",
		Help: "Failed relay fetches within a cycle by part (cells, stats).",
	}, []string{"part"})

	RefreshLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "refresh", Name: "last_success_timestamp_seconds",
		Help: "Unix time of the last cycle whose cells fetch succeeded.",
	})

	DrilldownRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "drilldown", Name: "requests_total",
		Help: "Cell selections by outcome (success, error, superseded).",
	}, []string{"outcome"})

	PrefsOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "prefs", Name: "operations_total",
		Help: "Preference store operations (get, set, delete, gc) by result.",
	}, []string{"operation", "result"})
)

// viewer API and websocket
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "api", Name: "requests_total",
		Help: "Viewer API requests by method, route pattern and status.",
	}, []string{"method", "endpoint", "status_code"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "api", Name: "request_duration_seconds",
		Help:    "Viewer API latency by method and route pattern.",
		Buckets: latencyBuckets,
	}, []string{"method", "endpoint"})

	APIActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "api", Name: "active_requests",
		Help: "Viewer API requests in flight.",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "websocket", Name: "connections",
		Help: "Attached viewer sessions.",
	})

	WSMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "websocket", Name: "messages_sent_total",
		Help: "Frames queued to sessions by message type.",
	}, []string{"type"})

	WSErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "websocket", Name: "errors_total",
		Help: "Dropped frames and failed sessions by cause.",
	}, []string{"error_type"})
)

// relay circuit breaker
var (
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "circuit_breaker", Name: "state",
		Help: "0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "circuit_breaker", Name: "requests_total",
		Help: "Calls through the breaker by result (success, failure, rejected).",
	}, []string{"name", "result"})

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "circuit_breaker", Name: "consecutive_failures",
		Help: "Failures since the last success.",
	}, []string{"name"})

	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "circuit_breaker", Name: "state_transitions_total",
		Help: "Breaker state changes.",
	}, []string{"name", "from_state", "to_state"})

	AppInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "build_info",
		Help: "Always 1, labelled with the build version.",
	}, []string{"version", "go_version"})
)

func RecordRelayRequest(endpoint, outcome string, d time.Duration) {
	RelayRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	RelayRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordRender counts a run. Only completed runs carry a meaningful
// duration and drawn count.
func RecordRender(completed bool, d time.Duration, drawn int) {
	if !completed {
		RenderRunsTotal.WithLabelValues("superseded").Inc()
		return
	}
	RenderRunsTotal.WithLabelValues("completed").Inc()
	RenderDuration.Observe(d.Seconds())
	RenderCellsDrawn.Set(float64(drawn))
}

func RecordAPIRequest(method, endpoint, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
