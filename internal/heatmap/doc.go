// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Package heatmap maps per-cell event counts onto fill colors.

Two pure functions do the work:

  - Normalize places a count in [0,1] relative to the min and max of the
    batch being drawn, on a linear or log10 scale.
  - Ramp turns that parameter into an HSL color running from teal through
    green to yellow.

Both are deterministic and safe for concurrent use. Normalization always
uses the min and max of the whole filtered batch, never of a render chunk,
so colors are stable while a batch is drawn progressively.

	t := heatmap.Normalize(float64(cell.Count), batch.Min, batch.Max, heatmap.ScaleLog)
	fill := heatmap.Ramp(t).CSS() // "hsl(130 90% 51%)"
*/
package heatmap
