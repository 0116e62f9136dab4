// Package socketio forwards execution progress to a socket.io server. A
// Forwarder wraps another executor.Dispatcher and emits one event per
// dispatched task, so a dashboard can follow a run live.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the event name progress payloads are emitted under.
const DefaultEvent = "instancegraph:progress"

// DefaultConnectTimeout bounds the initial connection handshake.
const DefaultConnectTimeout = 15 * time.Second

// ErrNotConnected is returned by Connect when the handshake does not complete.
var ErrNotConnected = errors.New("socket.io client is not connected")

// Options configures the connection of a Forwarder.
type Options struct {
	URL                string
	Namespace          string
	Event              string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// emitFunc publishes one payload.
type emitFunc func(event string, payload map[string]any)

// Forwarder implements executor.Dispatcher. Every call is delegated to the
// wrapped dispatcher first; the outcome is then emitted.
type Forwarder struct {
	next  executor.Dispatcher
	event string
	emit  emitFunc
	close func()
}

// Connect dials the socket.io server and returns a Forwarder wrapping next.
func Connect(ctx context.Context, next executor.Dispatcher, opts Options) (*Forwarder, error) {
	logger := ctxlog.FromContext(ctx).With("module", "socketio", "url", opts.URL)
	logger.Debug("Connecting socket.io client.")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("failed to parse URL: %q has no scheme or host", opts.URL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	sockOpts := socket.DefaultOptions()
	sockOpts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = ErrNotConnected
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection: %w", timeout, ErrNotConnected)
	}

	emit := func(event string, payload map[string]any) {
		io.Emit(event, payload)
	}
	return newForwarder(next, opts.Event, emit, func() {
		logger.Debug("Disconnecting socket client", "sid", io.Id())
		io.Disconnect()
	}), nil
}

func newForwarder(next executor.Dispatcher, event string, emit emitFunc, closeFn func()) *Forwarder {
	if event == "" {
		event = DefaultEvent
	}
	return &Forwarder{next: next, event: event, emit: emit, close: closeFn}
}

// ExecuteOperation implements executor.Dispatcher.
func (f *Forwarder) ExecuteOperation(ctx context.Context, t *task.Task) error {
	err := f.next.ExecuteOperation(ctx, t)
	payload := map[string]any{
		"kind":      task.KindOperation.String(),
		"task_id":   t.ID(),
		"instance":  t.InstanceID(),
		"node":      t.NodeID(),
		"operation": t.Operation(),
	}
	if t.Side() != task.SideNone {
		payload["side"] = string(t.Side())
		payload["related_instance"] = t.RelatedInstanceID()
	}
	f.publish(ctx, payload, err)
	return err
}

// SendEvent implements executor.Dispatcher.
func (f *Forwarder) SendEvent(ctx context.Context, instanceID, message string) error {
	err := f.next.SendEvent(ctx, instanceID, message)
	f.publish(ctx, map[string]any{
		"kind":     task.KindEvent.String(),
		"instance": instanceID,
		"message":  message,
	}, err)
	return err
}

// SetState implements executor.Dispatcher.
func (f *Forwarder) SetState(ctx context.Context, instanceID string, state model.State) error {
	err := f.next.SetState(ctx, instanceID, state)
	f.publish(ctx, map[string]any{
		"kind":     task.KindSetState.String(),
		"instance": instanceID,
		"state":    string(state),
	}, err)
	return err
}

// Close disconnects from the server.
func (f *Forwarder) Close() {
	if f.close != nil {
		f.close()
	}
}

func (f *Forwarder) publish(ctx context.Context, payload map[string]any, err error) {
	payload["ok"] = err == nil
	if err != nil {
		payload["error"] = err.Error()
	}
	ctxlog.FromContext(ctx).Debug("Emitting event", "event", f.event, "kind", payload["kind"])
	f.emit(f.event, payload)
}
