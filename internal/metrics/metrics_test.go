// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRelayRequest(t *testing.T) {
	before := testutil.ToFloat64(RelayRequestsTotal.WithLabelValues("cells", "success"))

	RecordRelayRequest("cells", "success", 20*time.Millisecond)
	RecordRelayRequest("cells", "success", 40*time.Millisecond)

	after := testutil.ToFloat64(RelayRequestsTotal.WithLabelValues("cells", "success"))
	if after-before != 2 {
		t.Errorf("relay_requests_total increased by %v, want 2", after-before)
	}
}

func TestRecordRender(t *testing.T) {
	completedBefore := testutil.ToFloat64(RenderRunsTotal.WithLabelValues("completed"))
	supersededBefore := testutil.ToFloat64(RenderRunsTotal.WithLabelValues("superseded"))

	RecordRender(true, 30*time.Millisecond, 1234)
	RecordRender(false, 0, 0)

	if got := testutil.ToFloat64(RenderRunsTotal.WithLabelValues("completed")) - completedBefore; got != 1 {
		t.Errorf("completed runs increased by %v, want 1", got)
	}
	if got := testutil.ToFloat64(RenderRunsTotal.WithLabelValues("superseded")) - supersededBefore; got != 1 {
		t.Errorf("superseded runs increased by %v, want 1", got)
	}
	// superseded runs must not overwrite the drawn gauge
	if got := testutil.ToFloat64(RenderCellsDrawn); got != 1234 {
		t.Errorf("render_cells_drawn = %v, want 1234", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/overlay", "200"))
	RecordAPIRequest("GET", "/api/v1/overlay", "200", 5*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/overlay", "200")) - before; got != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", got)
	}
}
