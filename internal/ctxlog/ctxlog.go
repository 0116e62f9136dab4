// Package ctxlog carries a slog.Logger through context.Context.
//
// Loggers taken from a context that also carries a recording OpenTelemetry
// span are tagged with its trace and span ids, so the log lines of a scale
// transaction or graph build can be joined with its trace.
package ctxlog

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the slog.Logger in a context.Context.
var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context, falling back to the
// default global logger, and adds the ids of the active span if there is one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := stored(ctx)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return logger.With("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	return logger
}

// With returns a context whose logger carries the given attributes.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, stored(ctx).With(args...))
}

func stored(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
