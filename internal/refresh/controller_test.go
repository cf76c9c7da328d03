// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package refresh

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/display"
	"github.com/tomtom215/hexpulse/internal/heatmap"
	"github.com/tomtom215/hexpulse/internal/relay"
	"github.com/tomtom215/hexpulse/internal/relay/relaytest"
	"github.com/tomtom215/hexpulse/internal/render"
	"github.com/tomtom215/hexpulse/internal/websocket"
)

type fakeRenderer struct {
	attempts atomic.Int32

	mu      sync.Mutex
	batches []render.Batch
	opts    []render.Options
}

func (f *fakeRenderer) Render(ctx context.Context, batch render.Batch, opts render.Options) render.Result {
	f.attempts.Add(1)
	if ctx.Err() != nil {
		return render.Result{Superseded: true}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	f.opts = append(f.opts, opts)
	return render.Result{Drawn: batch.Len(), Completed: time.Now()}
}

func (f *fakeRenderer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type recorder struct {
	n atomic.Int32
}

func (r *recorder) BroadcastJSON(messageType string, _ interface{}) {
	if messageType == websocket.MessageTypeStatsUpdate {
		r.n.Add(1)
	}
}

func testRefreshConfig() config.RefreshConfig {
	return config.RefreshConfig{Resolution: 9, Hours: 24, MinCount: 2, Scale: "linear", FitMode: "always"}
}

func cellsFixture(context.Context, relay.CellsQuery) (*relay.CellsResult, error) {
	return &relay.CellsResult{Cells: []relay.CellCount{{Cell: "a", Count: 1}, {Cell: "b", Count: 5}, {Cell: "c", Count: 9}}}, nil
}

func statsFixture(context.Context, relay.StatsQuery) (*relay.Stats, error) {
	return &relay.Stats{
		ActiveNodes: relaytest.Int64(31250),
		NodesTotal:  relaytest.Int64(40000),
		EventsTotal: relaytest.Int64(1234567),
		UniqueCells: relaytest.Int64(812),
		Res:         relaytest.Int(9),
		LastEvent:   &relay.LastEvent{TS: time.Now().Add(-42 * time.Second).UTC().Format(time.RFC3339Nano), ID: "evt_1"},
	}, nil
}

// serve runs c until the test ends.
func serve(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return")
		}
	})
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInitialCycle(t *testing.T) {
	t.Parallel()

	api := relaytest.NewFake("http://relay")
	api.CellsFunc = func(ctx context.Context, q relay.CellsQuery) (*relay.CellsResult, error) {
		if q.Limit != 5000 || q.Resolution != 9 || q.Hours != 24 {
			t.Errorf("cells query = %+v", q)
		}
		return cellsFixture(ctx, q)
	}
	api.StatsFunc = statsFixture
	rend := &fakeRenderer{}
	rec := &recorder{}
	c := NewController(api, rend, rec, testRefreshConfig(), Options{CellsLimit: 5000})
	serve(t, c)

	eventually(t, "as-of label", func() bool { return strings.HasPrefix(c.State().AsOf, "as-of: 20") })
	eventually(t, "stats", func() bool { return c.State().Stats.ActiveNodes == "31,250" })

	if rend.calls() != 1 {
		t.Fatalf("render calls = %d, want 1", rend.calls())
	}
	b := rend.batches[0]
	if b.Len() != 2 || b.Min != 5 || b.Max != 9 {
		t.Errorf("batch = %+v, min count 2 should drop one cell", b)
	}
	if rend.opts[0].Scale != heatmap.ScaleLinear || rend.opts[0].Fit != render.FitAlways {
		t.Errorf("options = %+v", rend.opts[0])
	}

	st := c.State()
	want := StatsPanel{
		ActiveNodes:    "31,250",
		ActiveNodesSub: "total nodes: 40,000",
		Events:         "1,234,567",
		EventsSub:      "last 24h",
		Cells:          "812",
		CellsSub:       "H3 res 9",
		Fresh:          "42s ago",
		FreshSub:       "last: evt_1",
	}
	if *st.Stats != want {
		t.Errorf("stats = %+v, want %+v", *st.Stats, want)
	}
	if st.Cycles != 1 || st.Trigger != TriggerInitial || st.CycleID == "" {
		t.Errorf("cycle bookkeeping = %+v", st)
	}
	if rec.n.Load() < 2 {
		t.Errorf("published %d stats updates, want at least 2", rec.n.Load())
	}
}

func TestCellsFailureKeepsGeometry(t *testing.T) {
	t.Parallel()

	api := relaytest.NewFake("http://relay")
	api.CellsFunc = func(context.Context, relay.CellsQuery) (*relay.CellsResult, error) {
		return nil, relay.ErrTransport
	}
	rend := &fakeRenderer{}
	c := NewController(api, rend, nil, testRefreshConfig(), Options{CellsLimit: 5000})
	serve(t, c)

	eventually(t, "error label", func() bool { return c.State().AsOf == display.AsOfError })
	if rend.calls() != 0 {
		t.Error("a failed fetch must not re-render")
	}
}

func TestStatsFailureShowsFallback(t *testing.T) {
	t.Parallel()

	api := relaytest.NewFake("http://relay")
	api.StatsFunc = func(context.Context, relay.StatsQuery) (*relay.Stats, error) {
		return nil, relay.ErrMalformed
	}
	c := NewController(api, &fakeRenderer{}, nil, testRefreshConfig(), Options{CellsLimit: 5000})
	serve(t, c)

	eventually(t, "fallback", func() bool { return c.State().Stats.Fallback })
	p := c.State().Stats
	if p.ActiveNodes != "30,000+" || p.ActiveNodesSub != "fallback" || p.Events != "-" || p.Cells != "-" || p.Fresh != "-" {
		t.Errorf("fallback panel = %+v", *p)
	}
	if p.EventsSub != "last 24h" {
		t.Errorf("EventsSub = %q, subtitles should be kept", p.EventsSub)
	}
}

func TestEmbedModeSkipsStats(t *testing.T) {
	t.Parallel()

	api := relaytest.NewFake("http://relay")
	api.CellsFunc = cellsFixture
	rend := &fakeRenderer{}
	c := NewController(api, rend, nil, testRefreshConfig(), Options{CellsLimit: 5000, Embed: true})
	serve(t, c)

	eventually(t, "render", func() bool { return rend.calls() == 1 })
	time.Sleep(20 * time.Millisecond)
	if api.StatsCalls.Load() != 0 {
		t.Error("embed mode must not fetch stats")
	}
	st := c.State()
	if st.Stats != nil || st.AsOf != "" {
		t.Errorf("embed state = %+v", st)
	}
}

func TestReloadCoalesces(t *testing.T) {
	t.Parallel()

	api := relaytest.NewFake("http://relay")
	c := NewController(api, &fakeRenderer{}, nil, testRefreshConfig(), Options{CellsLimit: 5000})
	for i := 0; i < 5; i++ {
		c.Reload()
	}
	serve(t, c)

	eventually(t, "first cycle", func() bool { return api.CellsCalls.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if n := api.CellsCalls.Load(); n != 1 {
		t.Errorf("cells calls = %d, pending requests should coalesce into one cycle", n)
	}
}

func TestNewCycleCancelsPrevious(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	firstCanceled := make(chan struct{})
	firstStarted := make(chan struct{})
	api := relaytest.NewFake("http://relay")
	api.CellsFunc = func(ctx context.Context, q relay.CellsQuery) (*relay.CellsResult, error) {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-ctx.Done()
			close(firstCanceled)
			return nil, ctx.Err()
		}
		return cellsFixture(ctx, q)
	}
	rend := &fakeRenderer{}
	c := NewController(api, rend, nil, testRefreshConfig(), Options{CellsLimit: 5000, Embed: true})
	serve(t, c)

	<-firstStarted
	c.Reload()

	select {
	case <-firstCanceled:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle was not canceled")
	}
	eventually(t, "second render", func() bool { return rend.calls() == 1 })
	if c.State().Cycles != 2 {
		t.Errorf("cycles = %d, want 2", c.State().Cycles)
	}
}

func TestLateCellsFromCanceledCycleAreNotRendered(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	staleStarted := make(chan struct{})
	staleReturned := make(chan struct{})
	api := relaytest.NewFake("http://relay")
	api.CellsFunc = func(ctx context.Context, q relay.CellsQuery) (*relay.CellsResult, error) {
		switch calls.Add(1) {
		case 1:
			return cellsFixture(ctx, q)
		case 2:
			close(staleStarted)
			<-ctx.Done()
			defer close(staleReturned)
			// the relay answered anyway
			return cellsFixture(ctx, q)
		default:
			return nil, relay.ErrTransport
		}
	}
	rend := &fakeRenderer{}
	c := NewController(api, rend, nil, testRefreshConfig(), Options{CellsLimit: 5000})
	serve(t, c)

	eventually(t, "first render", func() bool { return rend.calls() == 1 })
	c.Reload()
	select {
	case <-staleStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("second cycle never fetched cells")
	}
	c.Reload()

	select {
	case <-staleReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("second cycle was not canceled")
	}
	eventually(t, "error label", func() bool { return c.State().AsOf == display.AsOfError })
	time.Sleep(30 * time.Millisecond)

	if n := rend.attempts.Load(); n != 1 {
		t.Errorf("render attempts = %d, want 1: late cells from a canceled cycle must not reach the renderer", n)
	}
}

func TestCanceledCycleDoesNotPublish(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var statsCalls atomic.Int32
	api := relaytest.NewFake("http://relay")
	api.StatsFunc = func(ctx context.Context, q relay.StatsQuery) (*relay.Stats, error) {
		if statsCalls.Add(1) == 1 {
			<-release
			// returns as if the relay answered late, ignoring cancellation
			return &relay.Stats{ActiveNodes: relaytest.Int64(1)}, nil
		}
		return statsFixture(ctx, q)
	}
	c := NewController(api, &fakeRenderer{}, nil, testRefreshConfig(), Options{CellsLimit: 5000})
	serve(t, c)

	eventually(t, "first stats call", func() bool { return statsCalls.Load() == 1 })
	c.Reload()
	eventually(t, "second stats", func() bool { return c.State().Stats.ActiveNodes == "31,250" })
	close(release)
	time.Sleep(30 * time.Millisecond)

	if got := c.State().Stats.ActiveNodes; got != "31,250" {
		t.Errorf("stale cycle overwrote stats with %q", got)
	}
}

func TestAutoRefreshTimer(t *testing.T) {
	t.Parallel()

	api := relaytest.NewFake("http://relay")
	c := NewController(api, &fakeRenderer{}, nil, testRefreshConfig(), Options{CellsLimit: 5000, Embed: true})
	serve(t, c)

	eventually(t, "initial cycle", func() bool { return api.CellsCalls.Load() == 1 })
	c.SetInterval(15 * time.Millisecond)
	eventually(t, "timer cycles", func() bool { return api.CellsCalls.Load() >= 4 })
	if c.State().Trigger != TriggerTimer {
		t.Errorf("trigger = %q, want timer", c.State().Trigger)
	}

	c.SetInterval(0)
	time.Sleep(40 * time.Millisecond)
	settled := api.CellsCalls.Load()
	time.Sleep(80 * time.Millisecond)
	if n := api.CellsCalls.Load(); n != settled {
		t.Errorf("cells calls went from %d to %d after disabling the timer", settled, n)
	}
}

func TestUpdateConfig(t *testing.T) {
	t.Parallel()

	var lastRes atomic.Int32
	api := relaytest.NewFake("http://relay")
	api.CellsFunc = func(ctx context.Context, q relay.CellsQuery) (*relay.CellsResult, error) {
		lastRes.Store(int32(q.Resolution))
		return cellsFixture(ctx, q)
	}
	c := NewController(api, &fakeRenderer{}, nil, testRefreshConfig(), Options{CellsLimit: 5000, Embed: true})

	bad := testRefreshConfig()
	bad.Scale = "cubic"
	if err := c.UpdateConfig(bad); err == nil {
		t.Error("invalid scale should be rejected")
	}

	serve(t, c)
	eventually(t, "initial cycle", func() bool { return api.CellsCalls.Load() == 1 })

	next := testRefreshConfig()
	next.Resolution = 7
	next.AutoRefreshSeconds = 30
	if err := c.UpdateConfig(next); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if c.Interval() != 30*time.Second || c.Config().Resolution != 7 {
		t.Errorf("interval=%v res=%d", c.Interval(), c.Config().Resolution)
	}
	if lastRes.Load() != 9 {
		t.Error("a config change must not trigger a cycle by itself")
	}

	c.Reload()
	eventually(t, "cycle with new res", func() bool { return lastRes.Load() == 7 })
}
