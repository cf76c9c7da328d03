// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Package supervisor runs the Hexpulse services under a suture v4 tree.

	hexpulse
	├── data-layer
	│   └── PrefsGCService
	├── refresh-layer
	│   └── refresh.Controller
	├── messaging-layer
	│   └── WebSocketHubService
	└── api-layer
	    └── HTTPServerService

Each layer counts failures on its own, so a refresh controller that keeps
crashing on a bad relay response backs off without touching viewer
connections or the API.

# Usage

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.Add(supervisor.LayerData, services.NewPrefsGCService(store, cfg.Prefs.GCInterval, cfg.Prefs.GCRatio))
	tree.Add(supervisor.LayerRefresh, controller)
	tree.Add(supervisor.LayerMessaging, services.NewWebSocketHubService(hub))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

# Failure Handling

Suture keeps a decaying failure counter per supervisor. Once it passes
FailureThreshold the supervisor waits FailureBackoff before the next
restart; the counter halves every FailureDecay seconds.

Return values from Serve:
  - ctx.Err() after cancellation: normal shutdown
  - any other error: crash, restarted
  - suture.ErrDoNotRestart: finished, not restarted

Events are logged through sutureslog into the slog logger passed to
NewSupervisorTree, which main bridges to zerolog.

If a service ignores cancellation, UnstoppedServiceReport names it after
ShutdownTimeout.
*/
package supervisor
