// Package executor defines the interface for the DAG execution engine and
// the dispatch contract between an executor and the system that actually
// performs operations.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
)

// Executor is responsible for orchestrating the end-to-end execution of a
// graph. It manages concurrency, consults failure handlers and dispatches
// tasks.
type Executor interface {
	Execute(ctx context.Context, g *dag.Graph) (*Report, error)
}

// Dispatcher performs the work a task describes.
//
// Implementations must be safe for concurrent use; an executor calls them from
// several workers at once.
type Dispatcher interface {
	// ExecuteOperation runs an interface operation.
	ExecuteOperation(ctx context.Context, t *task.Task) error
	// SendEvent publishes an informational event.
	SendEvent(ctx context.Context, instanceID, message string) error
	// SetState records a node instance's lifecycle state.
	SetState(ctx context.Context, instanceID string, state model.State) error
}

// Dispatch routes t to the matching Dispatcher method. No-op operations are
// not dispatched.
func Dispatch(ctx context.Context, d Dispatcher, t *task.Task) error {
	switch t.Kind() {
	case task.KindOperation:
		if t.IsNoOp() {
			ctxlog.FromContext(ctx).Debug("Skipping no-op operation.", "task", t.ID(), "operation", t.Operation())
			return nil
		}
		return d.ExecuteOperation(ctx, t)
	case task.KindEvent:
		return d.SendEvent(ctx, t.InstanceID(), t.Message())
	case task.KindSetState:
		return d.SetState(ctx, t.InstanceID(), t.State())
	default:
		return fmt.Errorf("unsupported task kind %s", t.Kind())
	}
}

// ErrIncomplete is returned when a run ends with tasks that could never
// become ready.
var ErrIncomplete = errors.New("execution ended with unreachable tasks")

// TaskError reports a task failure that no handler absorbed.
type TaskError struct {
	TaskID     string
	InstanceID string
	Name       string
	Err        error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s) on node instance %s failed: %v", e.TaskID, e.Name, e.InstanceID, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}
