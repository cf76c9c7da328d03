// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package models

import (
	"time"
)

// APIResponse is the envelope of every JSON viewer API response.
//
// Status is "success" or "error"; Error is set only for errors.
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "cell is not on the map"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine-readable code plus a message.
//
// Codes used by the viewer API:
//   - VALIDATION_ERROR: invalid request body
//   - INVALID_REQUEST: body is not JSON
//   - NOT_FOUND: cell is not in the rendered index
//   - FEATURE_DISABLED: drill-down requested in embed mode
//   - PREFS_ERROR: the preference store failed
//   - SERVICE_UNAVAILABLE: WebSocket hub missing
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
