// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Package websocket pushes overlay frames, stats and selection updates to
connected viewers.

It uses gorilla/websocket with a hub-and-spoke layout. The Hub owns the
session set and fans out every broadcast. Each Session runs a read loop
that answers pings and a write loop that drains its outbox and sends
keepalive pings.

Message types:

  - snapshot: the full overlay and panel state, sent once on connect
  - overlay_clear: a new render generation started; drop all features
  - overlay_chunk: features appended to the current generation
  - overlay_done: the generation completed, with its as-of label
  - viewport: center and zoom to move the map to
  - stats_update: the stats panel changed
  - selection: the drill-down panel opened, updated or closed

Overlay features are keyed by cell id and a chunk may repeat features a
client already holds from its snapshot, so viewers apply chunks
idempotently within a generation.

Usage:

	hub := websocket.NewHub()
	hub.SetWelcome(surface.WelcomeMessages)
	tree.Add(supervisor.LayerMessaging, services.NewWebSocketHubService(hub))

	hub.Attach(conn)
*/
package websocket
