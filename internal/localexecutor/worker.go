package localexecutor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/task"
)

// worker is the core processing loop for a single concurrent worker.
func (r *run) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for t := range r.readyChan {
		r.process(ctx, t, logger.With("workerID", workerID, "task", t.ID(), "instance", t.InstanceID()))
		r.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (r *run) process(ctx context.Context, t *task.Task, logger *slog.Logger) {
	if r.stopped() || ctx.Err() != nil {
		return
	}
	if !r.sched.Start(t.ID()) {
		logger.Debug("Task was discarded before it started.")
		return
	}

	logger.Debug("Worker picked up task for execution.", "name", t.Name())
	err := executor.Dispatch(ctx, r.dispatcher, t)
	if err == nil {
		r.report.AddCompleted(t.ID())
		r.enqueue(r.sched.Finish(t.ID()))
		return
	}

	logger.Warn("Task failed.", "error", err)
	switch r.resolve(ctx, t, err) {
	case dag.VerdictContinue:
		r.report.AddIgnored(t.ID())
		r.enqueue(r.sched.Finish(t.ID()))
	case dag.VerdictCancelled:
		r.fail(fmt.Errorf("%w: %w", errCancelledDuringFailure, context.Cause(ctx)))
	default:
		logger.Error("Task failure was not absorbed, stopping the run.", "error", err)
		r.fail(&executor.TaskError{TaskID: t.ID(), InstanceID: t.InstanceID(), Name: t.Name(), Err: err})
	}
}
