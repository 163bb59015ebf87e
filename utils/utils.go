// Package utils provides utility functions for the application.
package utils

import (
	"context"
	"strings"
)

func ToPtr[T any](v T) *T {
	return &v
}

// Deref returns the pointed value or the zero value when p is nil
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// NilIfEmpty trims s and returns nil when nothing is left
func NilIfEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// RequestIDFromContext returns the request id stored by the HTTP layer, or "-"
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return id
	}
	return "-"
}

// EndpointFromContext returns the route template stored by the HTTP layer, or "-"
func EndpointFromContext(ctx context.Context) string {
	if ep, ok := ctx.Value(EndpointKey).(string); ok && ep != "" {
		return ep
	}
	return "-"
}
