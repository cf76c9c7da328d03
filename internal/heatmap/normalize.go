// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package heatmap

import (
	"math"
	"strings"
)

// Scale selects how counts are mapped onto the [0,1] ramp parameter.
type Scale string

const (
	ScaleLinear Scale = "linear"
	ScaleLog    Scale = "log"
)

// DefaultScale is used when a scale name is empty or unknown.
const DefaultScale = ScaleLog

// logSpanFloor keeps the log denominator positive for degenerate spans.
const logSpanFloor = 1e-9

// ParseScale maps a name onto a Scale. Unknown names fall back to DefaultScale.
func ParseScale(s string) Scale {
	switch Scale(strings.ToLower(strings.TrimSpace(s))) {
	case ScaleLinear:
		return ScaleLinear
	case ScaleLog:
		return ScaleLog
	default:
		return DefaultScale
	}
}

// Normalize maps value onto [0,1] relative to the batch's min and max.
//
// A non-finite value yields 0. When max <= min every value yields 1 so a
// single-valued batch renders at the top of the ramp. Any other scale name
// is treated as linear.
func Normalize(value, minV, maxV float64, scale Scale) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	if maxV <= minV {
		return 1
	}

	if scale == ScaleLog {
		v := math.Log10(1 + math.Max(0, value-minV))
		m := math.Log10(1 + math.Max(logSpanFloor, maxV-minV))
		if m == 0 {
			return 1
		}
		return clamp01(v / m)
	}

	return clamp01((value - minV) / (maxV - minV))
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
