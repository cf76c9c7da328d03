// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package refresh

import (
	"strconv"
	"time"

	"github.com/tomtom215/hexpulse/internal/display"
	"github.com/tomtom215/hexpulse/internal/relay"
)

// FallbackActiveNodes is shown when the stats request fails.
const FallbackActiveNodes = "30,000+"

// StatsPanel is the text of the four stat tiles.
type StatsPanel struct {
	ActiveNodes    string `json:"active_nodes"`
	ActiveNodesSub string `json:"active_nodes_sub"`
	Events         string `json:"events"`
	EventsSub      string `json:"events_sub"`
	Cells          string `json:"cells"`
	CellsSub       string `json:"cells_sub"`
	Fresh          string `json:"fresh"`
	FreshSub       string `json:"fresh_sub"`
	Fallback       bool   `json:"fallback"`
}

// InitialStatsPanel is the panel before the first stats response.
func InitialStatsPanel(res int, hours float64) StatsPanel {
	return StatsPanel{
		ActiveNodes: display.Placeholder,
		Events:      display.Placeholder,
		EventsSub:   lookbackLabel(hours),
		Cells:       display.Placeholder,
		CellsSub:    "H3 res " + strconv.Itoa(res),
		Fresh:       display.Placeholder,
	}
}

// BuildStatsPanel renders a successful stats response.
func BuildStatsPanel(s *relay.Stats, res int, hours float64, now time.Time) StatsPanel {
	p := StatsPanel{
		ActiveNodes:    display.IntPtr(s.ActiveNodes),
		ActiveNodesSub: "total nodes: " + display.IntPtr(s.NodesTotal),
		Events:         display.IntPtr(s.EventsTotal),
		EventsSub:      lookbackLabel(hours),
		Cells:          display.IntPtr(s.UniqueCells),
	}

	if s.Res != nil {
		res = *s.Res
	}
	p.CellsSub = "H3 res " + strconv.Itoa(res)

	var ts string
	if s.LastEvent != nil {
		ts = s.LastEvent.TS
	}
	if t, ok := display.ParseTimestamp(ts); ok {
		p.Fresh = display.Age(now.Sub(t)) + " ago"
		if s.LastEvent.ID != "" {
			p.FreshSub = "last: " + s.LastEvent.ID
		} else {
			p.FreshSub = "last event"
		}
	} else {
		p.Fresh = display.Placeholder
		p.FreshSub = "no events"
	}
	return p
}

// FallbackStatsPanel replaces the values of prev with placeholders after a
// failed stats request. Subtitles other than the active nodes one are kept.
func FallbackStatsPanel(prev StatsPanel) StatsPanel {
	p := prev
	p.ActiveNodes = FallbackActiveNodes
	p.ActiveNodesSub = "fallback"
	p.Events = display.Placeholder
	p.Cells = display.Placeholder
	p.Fresh = display.Placeholder
	p.Fallback = true
	return p
}

func lookbackLabel(hours float64) string {
	return "last " + strconv.FormatFloat(hours, 'f', -1, 64) + "h"
}
