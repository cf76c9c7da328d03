// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package display formats numbers and ages for the stats panel and the
// drill-down summary.
package display

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Placeholder is shown wherever a value is unknown.
const Placeholder = "-"

// Int formats n with en-US thousands separators.
func Int(n int64) string {
	return humanize.Comma(n)
}

// IntPtr formats n, or returns Placeholder when n is nil.
func IntPtr(n *int64) string {
	if n == nil {
		return Placeholder
	}
	return Int(*n)
}

// Age renders a duration in its largest whole unit: seconds below a
// minute, minutes below an hour, hours below 48 hours, days beyond.
// Negative durations render as Placeholder.
func Age(d time.Duration) string {
	if d < 0 {
		return Placeholder
	}
	s := int64(d / time.Second)
	if s < 60 {
		return strconv.FormatInt(s, 10) + "s"
	}
	m := s / 60
	if m < 60 {
		return strconv.FormatInt(m, 10) + "m"
	}
	h := m / 60
	if h < 48 {
		return strconv.FormatInt(h, 10) + "h"
	}
	return strconv.FormatInt(h/24, 10) + "d"
}

// ParseTimestamp accepts RFC 3339 timestamps with or without fractional
// seconds.
func ParseTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AgeSince renders the age of timestamp ts relative to now. Unparseable
// or future timestamps render as Placeholder.
func AgeSince(ts string, now time.Time) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return Placeholder
	}
	return Age(now.Sub(t))
}

// AsOf renders the completion label of a render run.
func AsOf(completed time.Time, took time.Duration) string {
	return "as-of: " + completed.UTC().Format("2006-01-02T15:04:05") + "Z • " +
		strconv.FormatInt(took.Round(time.Millisecond).Milliseconds(), 10) + "ms"
}

// AsOfError is the label shown when the cells fetch fails.
const AsOfError = "as-of: error"
