package scheduler

import (
	"sync"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/task"
)

type status int

const (
	pending status = iota
	queued
	running
	finished
	discarded
)

// DefaultScheduler is the reference implementation of the Scheduler
// interface. It keeps a remaining-prerequisite counter per task.
type DefaultScheduler struct {
	mu          sync.Mutex
	plan        *dag.Plan
	depCount    map[string]int
	status      map[string]status
	outstanding int
}

// New creates a scheduler for the given plan.
func New(p *dag.Plan) *DefaultScheduler {
	s := &DefaultScheduler{
		plan:        p,
		depCount:    make(map[string]int, len(p.Steps)),
		status:      make(map[string]status, len(p.Steps)),
		outstanding: len(p.Steps),
	}
	for _, step := range p.Steps {
		s.depCount[step.Task.ID()] = len(step.Prerequisites)
		s.status[step.Task.ID()] = pending
	}
	return s
}

// Initial implements Scheduler.
func (s *DefaultScheduler) Initial() []*task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []*task.Task
	for _, step := range s.plan.Steps {
		id := step.Task.ID()
		if s.depCount[id] == 0 && s.status[id] == pending {
			s.status[id] = queued
			ready = append(ready, step.Task)
		}
	}
	return ready
}

// Start implements Scheduler.
func (s *DefaultScheduler) Start(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status[id] != queued {
		return false
	}
	s.status[id] = running
	return true
}

// Finish implements Scheduler.
func (s *DefaultScheduler) Finish(id string) []*task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status[id] != running {
		return nil
	}
	s.status[id] = finished
	s.outstanding--
	return s.release(id)
}

// Discard implements Scheduler.
func (s *DefaultScheduler) Discard(ids []string) ([]string, []*task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped []string
	var ready []*task.Task
	for _, id := range ids {
		switch s.status[id] {
		case pending, queued:
			s.status[id] = discarded
			s.outstanding--
			dropped = append(dropped, id)
			ready = append(ready, s.release(id)...)
		}
	}
	return dropped, ready
}

// Outstanding implements Scheduler.
func (s *DefaultScheduler) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

// release decrements the counters of id's dependents. Callers hold mu.
func (s *DefaultScheduler) release(id string) []*task.Task {
	var ready []*task.Task
	for _, dep := range s.plan.Dependents(id) {
		s.depCount[dep]--
		if s.depCount[dep] == 0 && s.status[dep] == pending {
			s.status[dep] = queued
			step, _ := s.plan.Step(dep)
			ready = append(ready, step.Task)
		}
	}
	return ready
}
