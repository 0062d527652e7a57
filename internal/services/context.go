package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the reconciliation run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the reconciliation run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(runIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(requestIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
