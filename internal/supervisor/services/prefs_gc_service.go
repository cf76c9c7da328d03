// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package services

import (
	"context"
	"time"

	"github.com/tomtom215/hexpulse/internal/logging"
)

// ValueLogCollector is satisfied by *prefs.BadgerStore.
type ValueLogCollector interface {
	RunGC(ratio float64) error
}

// PrefsGCService periodically reclaims badger value log space in the
// preference store. Each relay change rewrites the same key, so the log
// only ever holds stale copies of one small value.
type PrefsGCService struct {
	store    ValueLogCollector
	interval time.Duration
	ratio    float64
	name     string
}

// NewPrefsGCService creates the collector loop. A non-positive interval
// makes Serve idle until cancellation.
func NewPrefsGCService(store ValueLogCollector, interval time.Duration, ratio float64) *PrefsGCService {
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &PrefsGCService{
		store:    store,
		interval: interval,
		ratio:    ratio,
		name:     "prefs-gc",
	}
}

// Serve implements suture.Service. GC errors are logged and the loop
// carries on; they do not warrant a restart.
func (p *PrefsGCService) Serve(ctx context.Context) error {
	if p.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := p.store.RunGC(p.ratio); err != nil {
				logging.Warn().Err(err).Msg("Preference store GC failed")
				continue
			}
			logging.Debug().Dur("took", time.Since(start)).Msg("Preference store GC complete")
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (p *PrefsGCService) String() string {
	return p.name
}
