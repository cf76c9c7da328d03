// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package validation validates viewer API request bodies with
// go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Two custom tags are registered:
//
//   - h3cell: the string is a valid H3 index
//   - relayurl: the string is an absolute http(s) URL without query or
//     fragment (trailing slashes are ignored)
//
// Failures are reported with the field's JSON name and translate into the
// VALIDATION_ERROR API error:
//
//	type configRequest struct {
//	    Resolution int    `json:"resolution" validate:"min=0,max=15"`
//	    Scale      string `json:"scale" validate:"oneof=linear log"`
//	}
package validation
