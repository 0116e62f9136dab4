// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/scheduler"
	"github.com/specialistvlad/instancegraph/internal/task"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is used when New is given a non-positive worker count.
const DefaultWorkers = 10

// Executor runs graphs with a fixed pool of workers.
type Executor struct {
	dispatcher executor.Dispatcher
	workers    int
}

var _ executor.Executor = (*Executor)(nil)

// New creates a new local executor.
func New(d executor.Dispatcher, workers int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Executor{dispatcher: d, workers: workers}
}

// Execute runs every task of g, honouring all dependency edges. Once the
// context is cancelled or a failure is not absorbed, no new task is started;
// tasks already running are allowed to finish.
func (e *Executor) Execute(ctx context.Context, g *dag.Graph) (*executor.Report, error) {
	logger := ctxlog.FromContext(ctx).With("graph", g.ID())
	ctx = ctxlog.WithLogger(ctx, logger)

	plan := g.Plan()
	if err := plan.DetectCycles(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	r := &run{
		graph:      g,
		sched:      scheduler.New(plan),
		dispatcher: e.dispatcher,
		report:     executor.NewReport(g.ID()),
		readyChan:  make(chan *task.Task, len(plan.Steps)),
	}
	logger.Debug("Executor starting run.", "tasks", len(plan.Steps), "workers", e.workers)

	r.enqueue(r.sched.Initial())
	go func() {
		r.wg.Wait()
		close(r.readyChan)
	}()

	var eg errgroup.Group
	for i := range e.workers {
		eg.Go(func() error {
			r.worker(ctx, i)
			return nil
		})
	}
	_ = eg.Wait()

	err := r.failure()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && r.sched.Outstanding() > 0 {
		err = fmt.Errorf("%w: %d tasks never ran", executor.ErrIncomplete, r.sched.Outstanding())
	}
	if err != nil {
		logger.Error("Execution failed.", "error", err)
		return r.report, err
	}
	logger.Debug("Executor finished run.", "completed", len(r.report.Completed()), "degraded", r.report.IsDegraded())
	return r.report, nil
}

// run is the state of one Execute call.
type run struct {
	graph      *dag.Graph
	sched      scheduler.Scheduler
	dispatcher executor.Dispatcher
	report     *executor.Report
	readyChan  chan *task.Task
	wg         sync.WaitGroup

	mu  sync.Mutex
	err error
}

func (r *run) enqueue(tasks []*task.Task) {
	if r.stopped() {
		return
	}
	for _, t := range tasks {
		r.wg.Add(1)
		r.readyChan <- t
	}
}

func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func (r *run) failure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *run) stopped() bool {
	return r.failure() != nil
}

// MarkFailed implements dag.Tracker.
func (r *run) MarkFailed(subgraphID, taskID string) {
	r.report.MarkDegraded(subgraphID, taskID)
}

// Discard implements dag.Tracker.
func (r *run) Discard(subgraphID string) {
	sub, ok := r.graph.SubgraphByID(subgraphID)
	if !ok {
		return
	}
	var ids []string
	for _, t := range sub.Tasks() {
		ids = append(ids, t.ID())
	}
	dropped, ready := r.sched.Discard(ids)
	r.report.AddDiscarded(dropped...)
	r.enqueue(ready)
}

// resolve asks the task's handler, then every enclosing subgraph's handler
// from the innermost outwards, what a failure means.
func (r *run) resolve(ctx context.Context, t *task.Task, cause error) dag.Verdict {
	owner := r.graph.Owner(t.ID())
	f := dag.Failure{
		Task:    t,
		Owner:   owner,
		Err:     cause,
		Events:  r.dispatcher,
		Tracker: r,
	}
	if h := r.graph.TaskHandler(t.ID()); h != nil {
		if v := h.HandleFailure(ctx, f); v != dag.VerdictFail {
			return v
		}
	}
	for s := owner; s != nil; s = s.Parent() {
		h := s.Handler()
		if h == nil {
			continue
		}
		f.Subgraph = s
		if v := h.HandleFailure(ctx, f); v != dag.VerdictFail {
			return v
		}
	}
	if ctx.Err() != nil {
		return dag.VerdictCancelled
	}
	return dag.VerdictFail
}

var errCancelledDuringFailure = errors.New("run cancelled while handling a task failure")
