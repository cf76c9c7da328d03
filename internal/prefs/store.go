// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package prefs persists the viewer's single user preference, the relay
// base URL, across restarts.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/metrics"
)

const relayBaseURLKey = "pref:relay_base_url"

var (
	// ErrNotFound is returned when no preference has been stored.
	ErrNotFound = errors.New("preference not found")

	// ErrInvalidURL is returned for a relay address that is not an
	// absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid relay base URL")
)

// RelayPreference is the stored relay address.
type RelayPreference struct {
	BaseURL   string    `json:"base_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes preferences.
type Store interface {
	RelayBaseURL(ctx context.Context) (*RelayPreference, error)
	SetRelayBaseURL(ctx context.Context, baseURL string) (*RelayPreference, error)
	Close() error
}

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db       *badger.DB
	inMemory bool
	now      func() time.Time
}

// Open opens the store at path. An empty path keeps preferences in memory
// for the life of the process.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	inMemory := path == ""
	if inMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}
	logging.Info().Str("path", path).Bool("in_memory", inMemory).Msg("Preference store opened")
	return &BadgerStore{db: db, inMemory: inMemory, now: time.Now}, nil
}

// RelayBaseURL returns the stored relay address or ErrNotFound.
func (s *BadgerStore) RelayBaseURL(_ context.Context) (*RelayPreference, error) {
	var pref RelayPreference
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(relayBaseURLKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get relay preference: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pref)
		})
	})
	if err != nil {
		result := "error"
		if errors.Is(err, ErrNotFound) {
			result = "not_found"
		}
		metrics.PrefsOperationsTotal.WithLabelValues("get", result).Inc()
		return nil, err
	}
	metrics.PrefsOperationsTotal.WithLabelValues("get", "success").Inc()
	return &pref, nil
}

// SetRelayBaseURL validates, normalizes and stores the relay address.
func (s *BadgerStore) SetRelayBaseURL(_ context.Context, baseURL string) (*RelayPreference, error) {
	normalized := config.NormalizeBaseURL(baseURL)
	if err := config.ValidateBaseURL(normalized); err != nil {
		metrics.PrefsOperationsTotal.WithLabelValues("set", "invalid").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	pref := RelayPreference{BaseURL: normalized, UpdatedAt: s.now().UTC()}
	data, err := json.Marshal(pref)
	if err != nil {
		return nil, fmt.Errorf("marshal relay preference: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(relayBaseURLKey), data)
	})
	if err != nil {
		metrics.PrefsOperationsTotal.WithLabelValues("set", "error").Inc()
		return nil, fmt.Errorf("set relay preference: %w", err)
	}
	metrics.PrefsOperationsTotal.WithLabelValues("set", "success").Inc()
	return &pref, nil
}

// RunGC rewrites value log files until badger reports nothing left to
// reclaim. In-memory stores have no value log and return nil.
func (s *BadgerStore) RunGC(ratio float64) error {
	if s.inMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			metrics.PrefsOperationsTotal.WithLabelValues("gc", "error").Inc()
			return fmt.Errorf("run value log gc: %w", err)
		}
	}
	metrics.PrefsOperationsTotal.WithLabelValues("gc", "success").Inc()
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// ResolveRelayBaseURL returns the stored relay address when there is one,
// otherwise the configured address. Store errors fall back to the
// configured address.
func ResolveRelayBaseURL(ctx context.Context, store Store, configured string) string {
	pref, err := store.RelayBaseURL(ctx)
	switch {
	case err == nil && pref.BaseURL != "":
		logging.Info().Str("relay", pref.BaseURL).Msg("Using stored relay base URL")
		return pref.BaseURL
	case err != nil && !errors.Is(err, ErrNotFound):
		logging.Warn().Err(err).Msg("Failed to read relay preference, using configured relay")
	}
	return config.NormalizeBaseURL(configured)
}

// badgerLogger routes badger's internal logging through zerolog. Info and
// debug chatter from compaction is dropped to debug level.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}
