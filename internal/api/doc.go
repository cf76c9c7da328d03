// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

/*
Package api is the viewer HTTP surface: a chi router over the render
scheduler, the GeoJSON overlay, the refresh controller, the drill-down
fetcher, the relay preference store and the WebSocket hub.

Routes:

	GET    /api/v1/overlay              current overlay as a GeoJSON FeatureCollection
	GET    /api/v1/state                stats panel, as-of label, bounds, viewport, config
	POST   /api/v1/reload               manual refresh trigger
	POST   /api/v1/fit                  fit the viewport to the last bounds
	POST   /api/v1/clear                clear the map and close the selection
	PUT    /api/v1/config               update refresh settings
	GET    /api/v1/relay                relay base URL
	PUT    /api/v1/relay                persist a relay base URL and reload
	POST   /api/v1/cells/{cell}/select  open the drill-down panel for a drawn cell
	GET    /api/v1/selection            current panel
	DELETE /api/v1/selection            close the panel
	GET    /api/v1/ws                   WebSocket stream
	GET    /api/v1/health/live          liveness
	GET    /api/v1/health/ready         readiness (relay circuit state)
	GET    /metrics                     Prometheus

JSON responses use the models.APIResponse envelope. The overlay endpoint
returns bare GeoJSON so map libraries can load it directly.

Middleware order: request id, real IP, panic recovery and CORS on every
route; rate limiting, security headers and Prometheus instrumentation on
the API groups.
*/
package api
