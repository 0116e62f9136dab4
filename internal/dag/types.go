package dag

import (
	"context"

	"github.com/specialistvlad/instancegraph/internal/task"
)

// Vertex is anything that can sit at either end of a dependency edge: a
// *task.Task or a *Subgraph.
type Vertex interface {
	ID() string
}

// Verdict is a failure handler's decision.
type Verdict int

const (
	// VerdictFail lets the failure propagate to the enclosing subgraph and,
	// eventually, fail the run.
	VerdictFail Verdict = iota
	// VerdictContinue absorbs the failure; dependents proceed.
	VerdictContinue
	// VerdictCancelled reports that the run was cancelled while the failure
	// was being handled.
	VerdictCancelled
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case VerdictContinue:
		return "continue"
	case VerdictCancelled:
		return "cancelled"
	default:
		return "fail"
	}
}

// EventSender publishes informational events about a node instance.
type EventSender interface {
	SendEvent(ctx context.Context, instanceID, message string) error
}

// Tracker records the effect of absorbed failures on the running graph.
type Tracker interface {
	// MarkFailed records that subgraphID completed with a failed task.
	MarkFailed(subgraphID, taskID string)
	// Discard drops every task of subgraphID that has not started yet. Dropped
	// tasks count as finished for their dependents.
	Discard(subgraphID string)
}

// Failure describes a failed task to a handler.
type Failure struct {
	// Task is the leaf task that failed.
	Task *task.Task
	// Owner is the subgraph that directly contains Task.
	Owner *Subgraph
	// Subgraph is the subgraph whose handler is being consulted, or nil when
	// the task's own handler is.
	Subgraph *Subgraph
	Err      error
	Events   EventSender
	Tracker  Tracker
}

// FailureHandler decides what a task failure means for the run.
type FailureHandler interface {
	HandleFailure(ctx context.Context, f Failure) Verdict
}

// FailureHandlerFunc adapts a function to FailureHandler.
type FailureHandlerFunc func(ctx context.Context, f Failure) Verdict

// HandleFailure calls fn.
func (fn FailureHandlerFunc) HandleFailure(ctx context.Context, f Failure) Verdict {
	return fn(ctx, f)
}
