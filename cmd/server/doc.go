// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Command server runs the Hexpulse viewer backend.

Hexpulse polls a relay for per-cell event counts at one H3 resolution,
draws the cells as a color-ramped hexagon overlay in chunks, and streams
the overlay, a stats panel and per-cell drill-downs to browsers over a
WebSocket. The same state is readable over a small REST API.

# Startup

 1. Configuration: koanf v2 (defaults, then config.yaml, then environment)
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Preference store: badger, holding the last relay address a user chose
 4. Relay client: rate limited HTTP client behind a gobreaker circuit breaker
 5. Overlay, render scheduler, refresh controller and drill-down fetcher
 6. Chi router and HTTP server
 7. Suture supervisor tree, until SIGINT or SIGTERM

# Configuration

Common environment variables:

	RELAY_BASE_URL        relay address (default http://127.0.0.1:8787)
	H3_RES                cell resolution, 0-15 (default 9)
	LOOKBACK_HOURS        query window (default 24)
	MIN_COUNT             drop cells below this count (default 1)
	SCALE                 linear or log (default log)
	AUTO_REFRESH_SECONDS  refresh period, 0 disables (default 0)
	FIT_MODE              first, always or never (default first)
	EMBED_MODE            bare overlay without stats or drill-down
	MINI_MODE             larger cells limit for small viewports
	PREFS_PATH            badger directory; empty keeps preferences in memory
	HTTP_PORT             listen port (default 8790)
	CORS_ORIGINS          comma separated origins (default *)
	LOG_LEVEL, LOG_FORMAT zerolog level and json or console

# Example

	RELAY_BASE_URL=http://relay.internal:8787 \
	H3_RES=8 AUTO_REFRESH_SECONDS=30 \
	PREFS_PATH=/var/lib/hexpulse \
	./server
*/
package main
