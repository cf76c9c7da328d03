// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Package services adapts Hexpulse components to suture v4's Serve pattern.

	type Service interface {
	    Serve(ctx context.Context) error
	}

HTTPServerService turns http.Server's blocking ListenAndServe into a
cancellable Serve with bounded graceful shutdown.

WebSocketHubService delegates to websocket.Hub.Run.

PrefsGCService runs badger value log GC on the preference store at a fixed
interval.

The refresh controller already implements suture.Service and is added to
the tree directly.

Each wrapper accepts a narrow interface rather than the concrete type so
tests can drive it with a fake:

	svc := services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout)
	tree.Add(supervisor.LayerAPI, svc)
*/
package services
