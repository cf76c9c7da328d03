// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

// Package models holds the viewer API envelope and its request and
// response bodies. Request structs carry validator tags checked by
// internal/validation.
package models
