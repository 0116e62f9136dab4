package dag

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/instancegraph/internal/task"
)

// Step is one task of a flattened plan together with every task that must
// finish before it may start.
type Step struct {
	Task          *task.Task
	Prerequisites []string
}

// Plan is the task-level view of a graph. Subgraph edges are expanded to the
// tasks they contain and every task inherits the edges of its enclosing
// subgraphs.
type Plan struct {
	Steps      []Step
	index      map[string]int
	dependents map[string][]string
}

// Plan flattens the graph. Steps and prerequisites are ordered by task
// creation order.
func (g *Graph) Plan() *Plan {
	order := make(map[string]int, len(g.taskOrder))
	for i, id := range g.taskOrder {
		order[id] = i
	}

	expanded := make(map[string][]string)
	var expand func(id string, visiting map[string]bool) []string
	expand = func(id string, visiting map[string]bool) []string {
		if _, ok := g.tasks[id]; ok {
			return []string{id}
		}
		if out, ok := expanded[id]; ok {
			return out
		}
		if visiting[id] {
			return nil
		}
		visiting[id] = true
		defer delete(visiting, id)

		s := g.subgraphs[id]
		var out []string
		for _, t := range s.Tasks() {
			out = append(out, t.ID())
		}
		// An empty subgraph finishes as soon as its own prerequisites do, so
		// waiting on it means waiting on them.
		if len(out) == 0 {
			for cur := s; cur != nil; cur = cur.parent {
				for _, dep := range g.deps[cur.id] {
					out = append(out, expand(dep, visiting)...)
				}
			}
		}
		expanded[id] = out
		return out
	}

	p := &Plan{
		index:      make(map[string]int, len(g.taskOrder)),
		dependents: make(map[string][]string),
	}
	for _, id := range g.taskOrder {
		seen := make(map[string]struct{})
		var prereqs []string
		collect := func(vertex string) {
			for _, dep := range g.deps[vertex] {
				for _, tid := range expand(dep, map[string]bool{}) {
					if tid == id {
						continue
					}
					if _, dup := seen[tid]; dup {
						continue
					}
					seen[tid] = struct{}{}
					prereqs = append(prereqs, tid)
				}
			}
		}
		collect(id)
		for owner := g.owner[id]; owner != nil; owner = owner.parent {
			collect(owner.id)
		}
		slices.SortFunc(prereqs, func(a, b string) int { return order[a] - order[b] })

		p.index[id] = len(p.Steps)
		p.Steps = append(p.Steps, Step{Task: g.tasks[id], Prerequisites: prereqs})
		for _, dep := range prereqs {
			p.dependents[dep] = append(p.dependents[dep], id)
		}
	}
	return p
}

// Step returns the step for a task id.
func (p *Plan) Step(id string) (Step, bool) {
	i, ok := p.index[id]
	if !ok {
		return Step{}, false
	}
	return p.Steps[i], true
}

// Dependents returns the ids of tasks that list id as a prerequisite.
func (p *Plan) Dependents(id string) []string {
	return p.dependents[id]
}

// DependsOn reports whether task a waits for task b, directly or through
// other tasks.
func (p *Plan) DependsOn(a, b string) bool {
	seen := make(map[string]bool)
	stack := []string{a}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		step, ok := p.Step(cur)
		if !ok {
			continue
		}
		for _, dep := range step.Prerequisites {
			if dep == b {
				return true
			}
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// DetectCycles checks the plan for any cycles. It returns a non-nil error
// wrapping ErrCycle and naming the first task involved in the detected cycle.
func (p *Plan) DetectCycles() error {
	// Classic depth-first search with three sets of tasks:
	// permanent: fully visited and not part of a cycle.
	// temporary: currently on the recursion stack.
	// unvisited: all others.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("%w involving task '%s'", ErrCycle, id)
		}

		temporary[id] = true
		for _, dependent := range p.dependents[id] {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, step := range p.Steps {
		if err := visit(step.Task.ID()); err != nil {
			return err
		}
	}
	return nil
}
