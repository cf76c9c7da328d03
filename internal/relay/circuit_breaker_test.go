// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package relay

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func testBreaker(name string) BreakerSettings {
	return BreakerSettings{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	})

	cbc := NewCircuitBreakerClient(NewClient(srv.URL, testOptions()), testBreaker("relay-test-open"))
	for i := 0; i < 3; i++ {
		if _, err := cbc.Stats(context.Background(), StatsQuery{Resolution: 9, Hours: 24}); !errors.Is(err, ErrTransport) {
			t.Fatalf("attempt %d: error = %v, want ErrTransport", i, err)
		}
	}
	if cbc.State() != "open" {
		t.Fatalf("State() = %q, want open", cbc.State())
	}

	_, err := cbc.Cells(context.Background(), CellsQuery{Resolution: 9, Hours: 24, Limit: 10})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if hits.Load() != 3 {
		t.Errorf("relay hit %d times, want 3", hits.Load())
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	cbc := NewCircuitBreakerClient(NewClient(srv.URL, testOptions()), testBreaker("relay-test-cancel"))

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := cbc.Events(ctx, EventsQuery{Cell: "x", Limit: 10})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	}
	if cbc.State() != "closed" {
		t.Errorf("State() = %q, canceled calls must not trip the breaker", cbc.State())
	}
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"events":[{"ts":"2026-03-01T00:00:00Z","id":"a"}]}`))
	})
	cbc := NewCircuitBreakerClient(NewClient(srv.URL, testOptions()), testBreaker("relay-test-pass"))

	events, err := cbc.Events(context.Background(), EventsQuery{Cell: "x", Limit: 10})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != 1 || events[0].ID != "a" {
		t.Errorf("events = %+v", events)
	}

	cbc.SetBaseURL("http://other:1/")
	if cbc.BaseURL() != "http://other:1" {
		t.Errorf("BaseURL() = %q", cbc.BaseURL())
	}
}
