package dag

import (
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/task"
)

// Subgraph is a named group of tasks and nested subgraphs that can be used
// as a single vertex.
type Subgraph struct {
	id         string
	graph      *Graph
	parent     *Subgraph
	instanceID string
	members    []string
	handler    FailureHandler
}

// ID returns the subgraph's id.
func (s *Subgraph) ID() string { return s.id }

// Parent returns the enclosing subgraph, or nil at the top level.
func (s *Subgraph) Parent() *Subgraph { return s.parent }

// InstanceID returns the node instance the subgraph was built for.
func (s *Subgraph) InstanceID() string { return s.instanceID }

// ForInstance records the node instance the subgraph belongs to. Nested
// subgraphs created afterwards inherit it.
func (s *Subgraph) ForInstance(id string) *Subgraph {
	s.instanceID = id
	return s
}

// Subgraph creates a nested subgraph inside s.
func (s *Subgraph) Subgraph(name string) *Subgraph {
	return s.graph.newSubgraph(s.id+"/"+name, s)
}

// SetHandler attaches a failure handler consulted for any failed task
// inside s that was not absorbed further in.
func (s *Subgraph) SetHandler(h FailureHandler) { s.handler = h }

// Handler returns the attached failure handler, if any.
func (s *Subgraph) Handler() FailureHandler { return s.handler }

// Add places tasks in s without ordering them.
func (s *Subgraph) Add(tasks ...*task.Task) error {
	for _, t := range tasks {
		if err := s.graph.adopt(s, t); err != nil {
			return err
		}
	}
	return nil
}

// Members returns the direct members of s in the order they were added.
func (s *Subgraph) Members() []Vertex {
	return s.graph.vertices(s.members)
}

// Tasks returns every leaf task in s and its nested subgraphs, depth first.
func (s *Subgraph) Tasks() []*task.Task {
	var out []*task.Task
	for _, id := range s.members {
		if t, ok := s.graph.tasks[id]; ok {
			out = append(out, t)
			continue
		}
		out = append(out, s.graph.subgraphs[id].Tasks()...)
	}
	return out
}

// Contains reports whether the vertex with the given id is inside s at any
// depth.
func (s *Subgraph) Contains(id string) bool {
	for owner := s.graph.owner[id]; owner != nil; owner = owner.parent {
		if owner == s {
			return true
		}
	}
	return false
}

// Empty reports whether s holds no tasks at any depth.
func (s *Subgraph) Empty() bool {
	return len(s.Tasks()) == 0
}

// Sequence starts a new ordered chain inside s.
func (s *Subgraph) Sequence() *Sequence {
	return &Sequence{sub: s}
}

// Sequence chains vertices inside a subgraph: every step depends on all
// vertices of the step before it.
type Sequence struct {
	sub  *Subgraph
	tail []Vertex
	err  error
}

// Add appends each vertex as its own step. Tasks join the subgraph; nested
// subgraphs must already belong to it.
func (q *Sequence) Add(vs ...Vertex) *Sequence {
	for _, v := range vs {
		q.step([]Vertex{v})
	}
	return q
}

// Fork appends one step in which all vertices run concurrently. An empty
// fork adds nothing.
func (q *Sequence) Fork(vs ...Vertex) *Sequence {
	if len(vs) > 0 {
		q.step(vs)
	}
	return q
}

// Err returns the first error recorded while adding steps.
func (q *Sequence) Err() error {
	return q.err
}

func (q *Sequence) step(vs []Vertex) {
	if q.err != nil {
		return
	}
	for _, v := range vs {
		if err := q.join(v); err != nil {
			q.err = err
			return
		}
		for _, prev := range q.tail {
			if err := q.sub.graph.AddDependency(v, prev); err != nil {
				q.err = err
				return
			}
		}
	}
	q.tail = vs
}

func (q *Sequence) join(v Vertex) error {
	switch v := v.(type) {
	case *task.Task:
		return q.sub.graph.adopt(q.sub, v)
	case *Subgraph:
		if v.parent != q.sub {
			return fmt.Errorf("subgraph %s is not nested in %s", v.id, q.sub.id)
		}
		return nil
	default:
		return fmt.Errorf("unsupported vertex %T", v)
	}
}
