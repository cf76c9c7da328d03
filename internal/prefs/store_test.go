// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/metrics"
)

func openTestStore(t *testing.T, path string) *BadgerStore {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func TestRelayBaseURLRoundTrip(t *testing.T) {
	s := openTestStore(t, "")
	defer s.Close()
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if _, err := s.RelayBaseURL(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	pref, err := s.SetRelayBaseURL(ctx, "  https://relay.example.com/api/ ")
	if err != nil {
		t.Fatalf("SetRelayBaseURL() error = %v", err)
	}
	if pref.BaseURL != "https://relay.example.com/api" {
		t.Errorf("stored = %q, want normalized URL", pref.BaseURL)
	}

	got, err := s.RelayBaseURL(ctx)
	if err != nil {
		t.Fatalf("RelayBaseURL() error = %v", err)
	}
	if got.BaseURL != pref.BaseURL || !got.UpdatedAt.Equal(pref.UpdatedAt) {
		t.Errorf("read back %+v, want %+v", got, pref)
	}
}

func TestSetRelayBaseURLRejectsInvalid(t *testing.T) {
	s := openTestStore(t, "")
	defer s.Close()

	before := testutil.ToFloat64(metrics.PrefsOperationsTotal.WithLabelValues("set", "invalid"))

	tests := []string{"ftp://relay", "relay.example.com", "http://relay?x=1", "http://"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := s.SetRelayBaseURL(context.Background(), in); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("error = %v, want ErrInvalidURL", err)
			}
		})
	}

	after := testutil.ToFloat64(metrics.PrefsOperationsTotal.WithLabelValues("set", "invalid"))
	if after-before != float64(len(tests)) {
		t.Errorf("invalid counter moved by %v, want %d", after-before, len(tests))
	}
	if _, err := s.RelayBaseURL(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Error("rejected URLs must not be stored")
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	if _, err := s.SetRelayBaseURL(ctx, "http://10.0.0.5:8787"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openTestStore(t, dir)
	defer reopened.Close()
	pref, err := reopened.RelayBaseURL(ctx)
	if err != nil {
		t.Fatalf("RelayBaseURL() error = %v", err)
	}
	if pref.BaseURL != "http://10.0.0.5:8787" {
		t.Errorf("BaseURL = %q", pref.BaseURL)
	}
}

type brokenStore struct{ Store }

func (brokenStore) RelayBaseURL(context.Context) (*RelayPreference, error) {
	return nil, errors.New("disk on fire")
}

func TestResolveRelayBaseURL(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")
	defer s.Close()

	if got := ResolveRelayBaseURL(ctx, s, "http://configured:1/"); got != "http://configured:1" {
		t.Errorf("without preference = %q, want configured", got)
	}
	if got := ResolveRelayBaseURL(ctx, s, ""); got != config.DefaultRelayBaseURL {
		t.Errorf("empty configured = %q, want default", got)
	}

	if _, err := s.SetRelayBaseURL(ctx, "http://stored:2"); err != nil {
		t.Fatal(err)
	}
	if got := ResolveRelayBaseURL(ctx, s, "http://configured:1"); got != "http://stored:2" {
		t.Errorf("with preference = %q, want stored", got)
	}

	if got := ResolveRelayBaseURL(ctx, brokenStore{}, "http://configured:1"); got != "http://configured:1" {
		t.Errorf("broken store = %q, want configured", got)
	}
}

func TestRunGCInMemory(t *testing.T) {
	s := openTestStore(t, "")
	defer s.Close()

	before := testutil.ToFloat64(metrics.PrefsOperationsTotal.WithLabelValues("gc", "success"))
	if err := s.RunGC(0.5); err != nil {
		t.Fatalf("RunGC() error = %v", err)
	}
	if after := testutil.ToFloat64(metrics.PrefsOperationsTotal.WithLabelValues("gc", "success")); after != before {
		t.Error("in-memory store should not count a gc run")
	}
}
