// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	searchIDKey  contextKey = "search_id"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateSearchID creates a short unique ID for one search call.
// The first 8 characters of a UUID keep log lines readable.
func GenerateSearchID() string {
	return uuid.New().String()[:8]
}

// ContextWithRequestID returns a new context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithSearchID returns a new context carrying the given search ID.
// One HTTP request may run several searches (one per outfit slot); the
// search ID distinguishes them in logs.
func ContextWithSearchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, searchIDKey, id)
}

// SearchIDFromContext retrieves the search ID, or "" if absent.
func SearchIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(searchIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger with request_id and search_id fields populated from
// the context. This is the recommended way to log inside the pipeline.
//
//	logging.Ctx(ctx).Info().Int("candidates", n).Msg("fan-out complete")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if id := SearchIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("search_id", id)
	}
	l := logCtx.Logger()
	return &l
}
