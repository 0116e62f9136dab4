package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestFromContext(t *testing.T) {
	t.Run("returns embedded logger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		ctx := WithLogger(context.Background(), logger)
		assert.Same(t, logger, FromContext(ctx))
	})

	t.Run("falls back to default", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	FromContext(With(ctx, "instance", "web_1")).Info("hello")

	assert.Contains(t, buf.String(), "instance=web_1")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestFromContext_Span(t *testing.T) {
	// --- Arrange ---
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	// --- Act ---
	FromContext(With(ctx, "instance", "web_1")).Info("hello")

	// --- Assert ---
	line := buf.String()
	assert.Contains(t, line, "trace_id="+span.SpanContext().TraceID().String())
	assert.Contains(t, line, "span_id="+span.SpanContext().SpanID().String())
	assert.Equal(t, 1, strings.Count(line, "trace_id="), "ids are added once, not stored")
}
