// Package logging carries a request-scoped slog.Logger through contexts.
package logging

import (
	"context"
	"crypto/rand"
	"log/slog"
)

type contextKey struct{ name string }

var (
	loggerKey  = contextKey{"logger"}
	traceIDKey = contextKey{"trace_id"}
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts a logger from the context, falling back to default if not found
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// With returns a context whose logger carries args on every record.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}

func NewTraceID() string {
	return rand.Text()
}

// ForRequest derives the per-request logger. Empty IDs are omitted.
func ForRequest(base *slog.Logger, requestID, traceID string) *slog.Logger {
	var args []any
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if traceID != "" {
		args = append(args, "trace_id", traceID)
	}
	return base.With(args...)
}
