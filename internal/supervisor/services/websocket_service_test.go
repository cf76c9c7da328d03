// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/hexpulse/internal/websocket"
)

type fakeHub struct {
	runErr error
	runs   atomic.Int32
}

func (f *fakeHub) Run(ctx context.Context) error {
	f.runs.Add(1)
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

var (
	_ suture.Service = (*WebSocketHubService)(nil)
	_ ContextHub     = (*websocket.Hub)(nil)
)

func TestWebSocketHubService_Serve(t *testing.T) {
	t.Run("returns context error on cancellation", func(t *testing.T) {
		hub := &fakeHub{}
		svc := NewWebSocketHubService(hub)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
		if hub.runs.Load() != 1 {
			t.Errorf("runs = %d, want 1", hub.runs.Load())
		}
	})

	t.Run("propagates hub errors", func(t *testing.T) {
		hubErr := errors.New("hub failed")
		svc := NewWebSocketHubService(&fakeHub{runErr: hubErr})

		if err := svc.Serve(context.Background()); !errors.Is(err, hubErr) {
			t.Errorf("Serve() = %v, want %v", err, hubErr)
		}
	})

	t.Run("real hub stops with its context", func(t *testing.T) {
		svc := NewWebSocketHubService(websocket.NewHub())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestWebSocketHubService_String(t *testing.T) {
	if got := NewWebSocketHubService(&fakeHub{}).String(); got != "websocket-hub" {
		t.Errorf("String() = %q, want websocket-hub", got)
	}
}

func TestWebSocketHubService_RestartedBySupervisor(t *testing.T) {
	hub := &fakeHub{runErr: errors.New("boom")}

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   5 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
	})
	sup.Add(NewWebSocketHubService(hub))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(150 * time.Millisecond)
	for hub.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.runs.Load() < 2 {
		t.Errorf("hub ran %d times, want a restart", hub.runs.Load())
	}

	cancel()
	<-errCh
}
