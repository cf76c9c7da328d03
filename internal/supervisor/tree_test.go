// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/refresh"
	"github.com/tomtom215/hexpulse/internal/relay/relaytest"
	"github.com/tomtom215/hexpulse/internal/render"
	"github.com/tomtom215/hexpulse/internal/supervisor/services"
	"github.com/tomtom215/hexpulse/internal/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// waitFor polls cond until it holds or d elapses.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()

	if cfg.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want 5", cfg.FailureThreshold)
	}
	if cfg.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %v, want 30", cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", cfg.FailureBackoff)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestNewSupervisorTree(t *testing.T) {
	t.Run("zero config takes defaults", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("NewSupervisorTree() error = %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want defaults", tree.config)
		}
		if tree.Root() == nil {
			t.Error("Root() = nil")
		}
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{FailureThreshold: 2, ShutdownTimeout: time.Second})
		if tree.config.FailureThreshold != 2 || tree.config.ShutdownTimeout != time.Second {
			t.Errorf("config = %+v", tree.config)
		}
		if tree.config.FailureBackoff != 15*time.Second {
			t.Errorf("FailureBackoff = %v, want default", tree.config.FailureBackoff)
		}
	})
}

func TestSupervisorTreeStartsEveryLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	data := newMockService("prefs-gc")
	ref := newMockService("refresh-controller")
	hub := newMockService("websocket-hub")
	api := newMockService("http-server")
	tree.Add(LayerData, data)
	tree.Add(LayerRefresh, ref)
	tree.Add(LayerMessaging, hub)
	tree.Add(LayerAPI, api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	if !waitFor(time.Second, func() bool {
		return data.starts.Load() > 0 && ref.starts.Load() > 0 && hub.starts.Load() > 0 && api.starts.Load() > 0
	}) {
		t.Errorf("starts: data=%d refresh=%d messaging=%d api=%d",
			data.starts.Load(), ref.starts.Load(), hub.starts.Load(), api.starts.Load())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down")
	}
}

func TestSupervisorTreeFailureIsolation(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := newMockService("refresh-controller")
	flaky.failN = 2
	api := newMockService("http-server")
	tree.Add(LayerRefresh, flaky)
	tree.Add(LayerAPI, api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	if !waitFor(time.Second, func() bool { return flaky.starts.Load() >= 3 }) {
		t.Errorf("flaky service started %d times, want 3", flaky.starts.Load())
	}
	if api.starts.Load() != 1 {
		t.Errorf("api service started %d times, want 1", api.starts.Load())
	}

	cancel()
	<-errCh
}

func TestRemoveFromLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	svc := newMockService("refresh-controller")
	token := tree.Add(LayerRefresh, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	if !waitFor(time.Second, func() bool { return svc.starts.Load() > 0 }) {
		t.Fatal("service did not start")
	}
	if err := tree.Remove(LayerRefresh, token); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	cancel()
	<-errCh
	if svc.starts.Load() != 1 {
		t.Errorf("removed service restarted: starts = %d", svc.starts.Load())
	}
}

type stubRenderer struct{}

func (stubRenderer) Render(context.Context, render.Batch, render.Options) render.Result {
	return render.Result{}
}

func TestSupervisorTreeRunsRefreshAndHub(t *testing.T) {
	fake := relaytest.NewFake("http://relay.test")
	hub := websocket.NewHub()
	cfg := config.RefreshConfig{Resolution: 9, Hours: 24, MinCount: 1, Scale: "log", FitMode: "first"}
	controller := refresh.NewController(fake, stubRenderer{}, hub, cfg, refresh.Options{CellsLimit: 100, Embed: true})

	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	tree.Add(LayerRefresh, controller)
	tree.Add(LayerMessaging, services.NewWebSocketHubService(hub))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	if !waitFor(2*time.Second, func() bool { return fake.CellsCalls.Load() >= 1 }) {
		t.Error("initial cycle did not query the relay")
	}
	if controller.State().Cycles < 1 {
		t.Errorf("Cycles = %d, want at least 1", controller.State().Cycles)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down")
	}
}

func TestLayerString(t *testing.T) {
	tests := []struct {
		layer Layer
		want  string
	}{
		{LayerData, "data-layer"},
		{LayerRefresh, "refresh-layer"},
		{LayerMessaging, "messaging-layer"},
		{LayerAPI, "api-layer"},
		{Layer(9), "layer(9)"},
	}
	for _, tt := range tests {
		if got := tt.layer.String(); got != tt.want {
			t.Errorf("Layer(%d).String() = %q, want %q", int(tt.layer), got, tt.want)
		}
	}
}
