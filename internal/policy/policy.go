package policy

import (
	"context"
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
)

// IgnoreHandler turns a task failure into an event and lets the run continue.
type IgnoreHandler struct{}

// HandleFailure implements dag.FailureHandler.
func (IgnoreHandler) HandleFailure(ctx context.Context, f dag.Failure) dag.Verdict {
	if ctx.Err() != nil {
		return dag.VerdictCancelled
	}
	logger := ctxlog.FromContext(ctx).With("task", f.Task.ID(), "instance", f.Task.InstanceID())

	msg := IgnoredMessage(f)
	if f.Events != nil {
		if err := f.Events.SendEvent(ctx, f.Task.InstanceID(), msg); err != nil {
			logger.Warn("Failed to send ignore event.", "error", err)
		}
	}
	if f.Tracker != nil && f.Owner != nil {
		f.Tracker.MarkFailed(f.Owner.ID(), f.Task.ID())
	}
	logger.Warn("Task failure ignored.", "error", f.Err)
	return dag.VerdictContinue
}

// IgnoredMessage is the event text sent for an ignored failure.
func IgnoredMessage(f dag.Failure) string {
	return fmt.Sprintf("Task %s failed on node instance %s, ignoring: %v", f.Task.Name(), f.Task.InstanceID(), f.Err)
}

// IgnoreFailures attaches IgnoreHandler to every leaf task in sub, including
// those in nested subgraphs.
func IgnoreFailures(g *dag.Graph, sub *dag.Subgraph) {
	for _, t := range sub.Tasks() {
		g.SetTaskHandler(t, IgnoreHandler{})
	}
}

// RelationshipAbsorber contains a relationship operation failure within its
// subgraph.
type RelationshipAbsorber struct{}

// HandleFailure implements dag.FailureHandler.
func (RelationshipAbsorber) HandleFailure(ctx context.Context, f dag.Failure) dag.Verdict {
	if ctx.Err() != nil {
		return dag.VerdictCancelled
	}
	if f.Subgraph == nil || f.Tracker == nil {
		return dag.VerdictFail
	}
	f.Tracker.Discard(f.Subgraph.ID())
	if parent := f.Subgraph.Parent(); parent != nil {
		f.Tracker.MarkFailed(parent.ID(), f.Task.ID())
	}
	ctxlog.FromContext(ctx).Warn("Relationship operation failed, skipping the remaining relationship operations.",
		"subgraph", f.Subgraph.ID(), "task", f.Task.ID(), "error", f.Err)
	return dag.VerdictContinue
}
