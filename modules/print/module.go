// Package print provides a Dispatcher that performs no real work: it writes
// every dispatched task to an io.Writer. It backs the CLI's dry runs and can
// simulate operation failures to exercise failure handling.
package print

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
)

// ErrSimulated is wrapped by every failure injected with WithFailure.
var ErrSimulated = errors.New("simulated operation failure")

// wildcard matches any node instance in a failure rule.
const wildcard = "*"

// StateRecorder persists lifecycle states, for example a topology store.
type StateRecorder interface {
	SetState(ctx context.Context, instanceID string, state model.State) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithFailure makes operation op fail on instanceID. Use "*" for every
// instance.
func WithFailure(instanceID, op string) Option {
	return func(d *Dispatcher) {
		d.failures[instanceID+"/"+op] = struct{}{}
	}
}

// WithStateRecorder forwards every state change to r after printing it.
func WithStateRecorder(r StateRecorder) Option {
	return func(d *Dispatcher) {
		d.states = r
	}
}

// Dispatcher implements executor.Dispatcher by printing.
type Dispatcher struct {
	mu       sync.Mutex
	out      io.Writer
	failures map[string]struct{}
	states   StateRecorder
}

// New creates a print dispatcher writing to out.
func New(out io.Writer, opts ...Option) *Dispatcher {
	d := &Dispatcher{out: out, failures: make(map[string]struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ParseFailure parses an "instance:operation" or "operation" rule as
// accepted by WithFailure.
func ParseFailure(rule string) (instanceID, op string, err error) {
	instanceID, op, found := strings.Cut(rule, ":")
	if !found {
		instanceID, op = wildcard, rule
	}
	if instanceID == "" || op == "" {
		return "", "", fmt.Errorf("invalid failure rule %q: expected [instance:]operation", rule)
	}
	return instanceID, op, nil
}

// ExecuteOperation implements executor.Dispatcher.
func (d *Dispatcher) ExecuteOperation(ctx context.Context, t *task.Task) error {
	logger := ctxlog.FromContext(ctx).With("task", t.ID(), "instance", t.InstanceID())
	logger.Debug("Printing operation.", "operation", t.Operation())

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", t.InstanceID(), t.Name())
	kwargs := t.Kwargs()
	for _, k := range slices.Sorted(maps.Keys(kwargs)) {
		fmt.Fprintf(&b, " %s=%v", k, kwargs[k])
	}

	failed := d.shouldFail(t)
	if failed {
		b.WriteString(" (failed)")
	}
	d.println(b.String())

	if failed {
		logger.Warn("Simulating operation failure.", "operation", t.Operation())
		return fmt.Errorf("%s on %s: %w", t.Operation(), t.InstanceID(), ErrSimulated)
	}
	return nil
}

// SendEvent implements executor.Dispatcher.
func (d *Dispatcher) SendEvent(_ context.Context, instanceID, message string) error {
	d.println(fmt.Sprintf("[%s] event: %s", instanceID, message))
	return nil
}

// SetState implements executor.Dispatcher.
func (d *Dispatcher) SetState(ctx context.Context, instanceID string, state model.State) error {
	d.println(fmt.Sprintf("[%s] state -> %s", instanceID, state))
	if d.states == nil {
		return nil
	}
	if err := d.states.SetState(ctx, instanceID, state); err != nil {
		return fmt.Errorf("failed to record state of %s: %w", instanceID, err)
	}
	return nil
}

func (d *Dispatcher) shouldFail(t *task.Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range []string{t.InstanceID(), wildcard} {
		if _, ok := d.failures[id+"/"+t.Operation()]; ok {
			return true
		}
	}
	return false
}

// println serializes writes so lines from concurrent workers never interleave.
func (d *Dispatcher) println(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, line)
}
