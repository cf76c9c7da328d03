// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package heatmap

import (
	"fmt"
	"image/color"
	"math"
)

// Ramp endpoints. Hue runs teal (190) through green to yellow (70) and
// lightness drops slightly toward the hot end.
const (
	rampHueStart   = 190.0
	rampHueSpan    = 120.0
	rampSaturation = 90.0
	rampLightStart = 54.0
	rampLightSpan  = 6.0
)

// Color is an HSL color with hue in degrees and saturation and lightness
// in percent.
type Color struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// Ramp returns the heatmap color for t in [0,1]. Out-of-range t is clamped.
func Ramp(t float64) Color {
	t = clamp01(t)
	return Color{
		H: rampHueStart - rampHueSpan*t,
		S: rampSaturation,
		L: rampLightStart - rampLightSpan*t,
	}
}

// CSS renders the color in CSS Color 4 space-separated hsl() form.
func (c Color) CSS() string {
	return fmt.Sprintf("hsl(%s %s%% %s%%)", trimFloat(c.H), trimFloat(c.S), trimFloat(c.L))
}

// RGBA converts to an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	r, g, b := hslToRGB(c.H, c.S/100, c.L/100)
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 0xff}
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	rgba := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

func hslToRGB(h, s, l float64) (r, g, b float64) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	chroma := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := chroma * (1 - math.Abs(math.Mod(hp, 2)-1))

	switch {
	case hp < 1:
		r, g, b = chroma, x, 0
	case hp < 2:
		r, g, b = x, chroma, 0
	case hp < 3:
		r, g, b = 0, chroma, x
	case hp < 4:
		r, g, b = 0, x, chroma
	case hp < 5:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}

	m := l - chroma/2
	return r + m, g + m, b + m
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

// trimFloat prints up to two decimals without trailing zeros.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
