package executor

import "sync"

// Report summarises a run.
type Report struct {
	GraphID string

	mu        sync.Mutex
	completed []string
	ignored   []string
	discarded []string
	degraded  map[string]string
}

// NewReport creates an empty report for the given graph generation.
func NewReport(graphID string) *Report {
	return &Report{GraphID: graphID, degraded: make(map[string]string)}
}

// Completed returns the ids of tasks that ran successfully, in completion
// order.
func (r *Report) Completed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.completed...)
}

// Ignored returns the ids of failed tasks whose failure was absorbed.
func (r *Report) Ignored() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ignored...)
}

// Discarded returns the ids of tasks dropped without running.
func (r *Report) Discarded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.discarded...)
}

// Degraded maps subgraph ids to the task that failed inside them.
func (r *Report) Degraded() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.degraded))
	for k, v := range r.degraded {
		out[k] = v
	}
	return out
}

// IsDegraded reports whether any failure was absorbed during the run.
func (r *Report) IsDegraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.degraded) > 0 || len(r.ignored) > 0
}

func (r *Report) AddCompleted(id string) {
	r.mu.Lock()
	r.completed = append(r.completed, id)
	r.mu.Unlock()
}

func (r *Report) AddIgnored(id string) {
	r.mu.Lock()
	r.ignored = append(r.ignored, id)
	r.mu.Unlock()
}

func (r *Report) AddDiscarded(ids ...string) {
	r.mu.Lock()
	r.discarded = append(r.discarded, ids...)
	r.mu.Unlock()
}

// MarkDegraded records the first failed task of a subgraph.
func (r *Report) MarkDegraded(subgraphID, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.degraded[subgraphID]; !ok {
		r.degraded[subgraphID] = taskID
	}
}
