// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package render

import (
	"strings"

	"github.com/tomtom215/hexpulse/internal/relay"
)

// Batch is the filtered, de-duplicated set of cells for one refresh cycle
// together with the min and max count used for normalization. It is not
// modified after NewBatch returns.
type Batch struct {
	Cells []relay.CellCount
	Min   int64
	Max   int64

	// Filtered counts the input records removed by the minimum count.
	Filtered int
}

// NewBatch keeps cells whose count is at least minCount (floored at 1),
// collapses duplicate ids and computes min and max over what remains.
//
// A duplicate id keeps the position of its first occurrence and the count
// of its last one. An empty result has Min and Max of 0.
func NewBatch(cells []relay.CellCount, minCount int64) Batch {
	if minCount < 1 {
		minCount = 1
	}

	b := Batch{Cells: make([]relay.CellCount, 0, len(cells))}
	pos := make(map[string]int, len(cells))
	for _, c := range cells {
		id := strings.TrimSpace(c.Cell)
		if id == "" || c.Count < minCount {
			b.Filtered++
			continue
		}
		if i, dup := pos[id]; dup {
			b.Cells[i].Count = c.Count
			continue
		}
		pos[id] = len(b.Cells)
		b.Cells = append(b.Cells, relay.CellCount{Cell: id, Count: c.Count})
	}

	if len(b.Cells) == 0 {
		return b
	}
	b.Min, b.Max = b.Cells[0].Count, b.Cells[0].Count
	for _, c := range b.Cells[1:] {
		if c.Count < b.Min {
			b.Min = c.Count
		}
		if c.Count > b.Max {
			b.Max = c.Count
		}
	}
	return b
}

// Len returns the number of cells in the batch.
func (b Batch) Len() int {
	return len(b.Cells)
}
