package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
)

// ExecutionRecord holds the start and end times of a dispatched task.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Call is one recorded dispatcher invocation.
type Call struct {
	Kind       task.Kind
	TaskID     string
	InstanceID string
	// Value is the operation name, event message or state.
	Value string
}

// RecordingDispatcher is a concurrency-safe executor.Dispatcher that records
// every call. Operations can be made to fail or to block.
type RecordingDispatcher struct {
	mu        sync.Mutex
	calls     []Call
	times     map[string]*ExecutionRecord
	failures  map[string]error
	sleep     time.Duration
	onExecute func(ctx context.Context, t *task.Task)
}

// NewRecordingDispatcher creates a dispatcher whose operations take sleep.
func NewRecordingDispatcher(sleep time.Duration) *RecordingDispatcher {
	return &RecordingDispatcher{
		times:    make(map[string]*ExecutionRecord),
		failures: make(map[string]error),
		sleep:    sleep,
	}
}

// FailOperation makes every operation named op on instanceID fail with err.
func (d *RecordingDispatcher) FailOperation(instanceID, op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[instanceID+"/"+op] = err
}

// OnExecute registers a hook run at the start of every operation.
func (d *RecordingDispatcher) OnExecute(fn func(ctx context.Context, t *task.Task)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onExecute = fn
}

// ExecuteOperation implements executor.Dispatcher.
func (d *RecordingDispatcher) ExecuteOperation(ctx context.Context, t *task.Task) error {
	d.mu.Lock()
	hook := d.onExecute
	failure := d.failures[t.InstanceID()+"/"+t.Operation()]
	d.mu.Unlock()

	if hook != nil {
		hook(ctx, t)
	}

	start := time.Now()
	if d.sleep > 0 {
		select {
		case <-time.After(d.sleep):
		case <-ctx.Done():
		}
	}
	end := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.times[t.ID()] = &ExecutionRecord{Start: start, End: end}
	d.calls = append(d.calls, Call{Kind: task.KindOperation, TaskID: t.ID(), InstanceID: t.InstanceID(), Value: t.Operation()})
	if failure != nil {
		return fmt.Errorf("operation %s: %w", t.Operation(), failure)
	}
	return nil
}

// SendEvent implements executor.Dispatcher.
func (d *RecordingDispatcher) SendEvent(_ context.Context, instanceID, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Kind: task.KindEvent, InstanceID: instanceID, Value: message})
	return nil
}

// SetState implements executor.Dispatcher.
func (d *RecordingDispatcher) SetState(_ context.Context, instanceID string, state model.State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Kind: task.KindSetState, InstanceID: instanceID, Value: string(state)})
	return nil
}

// Calls returns a copy of the recorded calls in order.
func (d *RecordingDispatcher) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Operations returns the recorded operation names of instanceID in order.
func (d *RecordingDispatcher) Operations(instanceID string) []string {
	return d.values(task.KindOperation, instanceID)
}

// Events returns the recorded event messages of instanceID in order.
func (d *RecordingDispatcher) Events(instanceID string) []string {
	return d.values(task.KindEvent, instanceID)
}

// States returns the recorded states of instanceID in order.
func (d *RecordingDispatcher) States(instanceID string) []string {
	return d.values(task.KindSetState, instanceID)
}

// Execution returns the timing record of a task, if it ran.
func (d *RecordingDispatcher) Execution(taskID string) (*ExecutionRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.times[taskID]
	return r, ok
}

func (d *RecordingDispatcher) values(kind task.Kind, instanceID string) []string {
	var out []string
	for _, c := range d.Calls() {
		if c.Kind == kind && c.InstanceID == instanceID {
			out = append(out, c.Value)
		}
	}
	return out
}
