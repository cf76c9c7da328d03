// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ctxKey values are private so no other package can collide with them.
type ctxKey int

const (
	correlationKey ctxKey = iota
	requestKey
)

// GenerateCorrelationID returns eight hex characters tying together the
// log lines of one refresh cycle or one drill-down.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationKey)
}

// ContextWithRequestID stores the X-Request-ID of an API call.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestKey)
}

func stringValue(ctx context.Context, k ctxKey) string {
	s, _ := ctx.Value(k).(string)
	return s
}

// Ctx returns the global logger with correlation_id and request_id fields
// when ctx carries them.
//
//	logging.Ctx(ctx).Info().Int("cells", n).Msg("render complete")
func Ctx(ctx context.Context) *zerolog.Logger {
	fields := make(map[string]interface{}, 2)
	if id := CorrelationIDFromContext(ctx); id != "" {
		fields["correlation_id"] = id
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields["request_id"] = id
	}
	l := Logger()
	if len(fields) > 0 {
		l = l.With().Fields(fields).Logger()
	}
	return &l
}
