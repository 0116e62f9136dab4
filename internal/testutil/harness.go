// Package testutil holds shared helpers for package tests: a thread-safe log
// buffer, model fixtures and a recording dispatcher.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Context returns a context carrying a debug logger that writes into the
// returned buffer. Set IG_TEST_LOGS=true to mirror the output to stderr.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	var w interface{ Write([]byte) (int, error) } = buf
	if os.Getenv("IG_TEST_LOGS") == "true" {
		w = teeWriter{buf, os.Stderr}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctxlog.WithLogger(ctx, logger), buf
}

type teeWriter struct {
	a, b interface{ Write([]byte) (int, error) }
}

func (w teeWriter) Write(p []byte) (int, error) {
	_, _ = w.b.Write(p)
	return w.a.Write(p)
}
