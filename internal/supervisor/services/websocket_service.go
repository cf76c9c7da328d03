// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package services

import "context"

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	Run(ctx context.Context) error
}

// WebSocketHubService supervises the viewer fan-out hub. A restarted hub
// has no sessions; viewers reconnect and get the welcome snapshot again.
type WebSocketHubService struct {
	hub ContextHub
}

func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{hub: hub}
}

func (w *WebSocketHubService) Serve(ctx context.Context) error { return w.hub.Run(ctx) }

func (w *WebSocketHubService) String() string { return "websocket-hub" }
