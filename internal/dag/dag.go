package dag

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
)

var (
	// ErrUnknownVertex is returned when an edge references a task or
	// subgraph that was never added to the graph.
	ErrUnknownVertex = errors.New("vertex not found in graph")
	// ErrSelfDependency is returned for an edge from a vertex to itself.
	ErrSelfDependency = errors.New("self-referential edge not allowed")
	// ErrCycle is returned when the flattened graph contains a cycle.
	ErrCycle = errors.New("cycle detected")
)

// Graph is one generation of an execution graph.
type Graph struct {
	id  string
	seq int
	// issued holds every generated task id, adopted or not.
	issued map[string]struct{}

	tasks     map[string]*task.Task
	taskOrder []string

	subgraphs     map[string]*Subgraph
	subgraphOrder []string

	// owner maps a task or nested subgraph to the subgraph containing it.
	owner map[string]*Subgraph

	deps       map[string][]string
	dependents map[string][]string

	handlers map[string]FailureHandler
}

// New creates an empty graph with a fresh generation id.
func New() *Graph {
	return &Graph{
		id:         uuid.NewString(),
		issued:     make(map[string]struct{}),
		tasks:      make(map[string]*task.Task),
		subgraphs:  make(map[string]*Subgraph),
		owner:      make(map[string]*Subgraph),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
		handlers:   make(map[string]FailureHandler),
	}
}

// ID returns the graph's generation id.
func (g *Graph) ID() string {
	return g.id
}

// nextTaskID skips ids already taken by a subgraph, such as an instance
// named like a task.
func (g *Graph) nextTaskID() string {
	for {
		g.seq++
		id := fmt.Sprintf("t%04d", g.seq)
		if !g.exists(id) {
			g.issued[id] = struct{}{}
			return id
		}
	}
}

// Operation describes running the named operation on inst. The task joins
// the graph once it is added to a subgraph.
func (g *Graph) Operation(inst *model.NodeInstance, name string, kwargs map[string]any) *task.Task {
	return task.NewOperation(g.nextTaskID(), inst, name, kwargs)
}

// RelationshipOperation describes running one side of a relationship
// operation owned by inst.
func (g *Graph) RelationshipOperation(inst *model.NodeInstance, rel model.Relationship, side task.Side, name string) *task.Task {
	return task.NewRelationshipOperation(g.nextTaskID(), inst, rel, side, name)
}

// Event describes sending message for inst.
func (g *Graph) Event(inst *model.NodeInstance, message string) *task.Task {
	return task.NewEvent(g.nextTaskID(), inst, message)
}

// SetState describes recording state for inst.
func (g *Graph) SetState(inst *model.NodeInstance, state model.State) *task.Task {
	return task.NewSetState(g.nextTaskID(), inst, state)
}

// Subgraph creates a top-level subgraph. Names are made unique by suffixing.
func (g *Graph) Subgraph(name string) *Subgraph {
	return g.newSubgraph(name, nil)
}

func (g *Graph) newSubgraph(name string, parent *Subgraph) *Subgraph {
	id := name
	for n := 2; g.taken(id); n++ {
		id = fmt.Sprintf("%s#%d", name, n)
	}
	s := &Subgraph{id: id, graph: g, parent: parent}
	if parent != nil {
		s.instanceID = parent.instanceID
		g.owner[id] = parent
		parent.members = append(parent.members, id)
	}
	g.subgraphs[id] = s
	g.subgraphOrder = append(g.subgraphOrder, id)
	return s
}

func (g *Graph) exists(id string) bool {
	if _, ok := g.tasks[id]; ok {
		return true
	}
	_, ok := g.subgraphs[id]
	return ok
}

// taken reports whether id names a vertex or a task not yet adopted.
func (g *Graph) taken(id string) bool {
	_, ok := g.issued[id]
	return ok || g.exists(id)
}

// adopt places t inside s. A task belongs to exactly one subgraph.
func (g *Graph) adopt(s *Subgraph, t *task.Task) error {
	if _, ok := g.subgraphs[t.ID()]; ok {
		return fmt.Errorf("task id %s is already used by a subgraph", t.ID())
	}
	if current, ok := g.owner[t.ID()]; ok {
		if current == s {
			return nil
		}
		return fmt.Errorf("task %s already belongs to subgraph %s", t.ID(), current.id)
	}
	g.tasks[t.ID()] = t
	g.taskOrder = append(g.taskOrder, t.ID())
	g.owner[t.ID()] = s
	s.members = append(s.members, t.ID())
	return nil
}

// AddDependency records that dependent may only start after prerequisite
// has finished. Either end may be a task or a subgraph. Adding an existing
// edge again is a no-op.
func (g *Graph) AddDependency(dependent, prerequisite Vertex) error {
	from, to := prerequisite.ID(), dependent.ID()
	if from == to {
		return fmt.Errorf("%w: %s -> %s", ErrSelfDependency, from, to)
	}
	if !g.exists(from) {
		return fmt.Errorf("prerequisite %s: %w", from, ErrUnknownVertex)
	}
	if !g.exists(to) {
		return fmt.Errorf("dependent %s: %w", to, ErrUnknownVertex)
	}
	if slices.Contains(g.deps[to], from) {
		return nil
	}
	g.deps[to] = append(g.deps[to], from)
	g.dependents[from] = append(g.dependents[from], to)
	return nil
}

// Dependencies returns the vertices v directly depends on, in the order the
// edges were added.
func (g *Graph) Dependencies(v Vertex) []Vertex {
	return g.vertices(g.deps[v.ID()])
}

// Dependents returns the vertices that directly depend on v, in the order
// the edges were added.
func (g *Graph) Dependents(v Vertex) []Vertex {
	return g.vertices(g.dependents[v.ID()])
}

// HasDependency reports whether the direct edge dependent -> prerequisite
// exists.
func (g *Graph) HasDependency(dependent, prerequisite Vertex) bool {
	return slices.Contains(g.deps[dependent.ID()], prerequisite.ID())
}

func (g *Graph) vertices(ids []string) []Vertex {
	out := make([]Vertex, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.Vertex(id))
	}
	return out
}

// Vertex looks up a task or subgraph by id. It returns nil if none exists.
func (g *Graph) Vertex(id string) Vertex {
	if t, ok := g.tasks[id]; ok {
		return t
	}
	if s, ok := g.subgraphs[id]; ok {
		return s
	}
	return nil
}

// Task looks up a task by id.
func (g *Graph) Task(id string) (*task.Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Tasks returns every task in the graph in the order it was added.
func (g *Graph) Tasks() []*task.Task {
	out := make([]*task.Task, 0, len(g.taskOrder))
	for _, id := range g.taskOrder {
		out = append(out, g.tasks[id])
	}
	return out
}

// SubgraphByID looks up a subgraph by id.
func (g *Graph) SubgraphByID(id string) (*Subgraph, bool) {
	s, ok := g.subgraphs[id]
	return s, ok
}

// Subgraphs returns the top-level subgraphs in creation order.
func (g *Graph) Subgraphs() []*Subgraph {
	var out []*Subgraph
	for _, id := range g.subgraphOrder {
		if s := g.subgraphs[id]; s.parent == nil {
			out = append(out, s)
		}
	}
	return out
}

// Owner returns the subgraph that directly contains the vertex with the
// given id, or nil for top-level subgraphs.
func (g *Graph) Owner(id string) *Subgraph {
	return g.owner[id]
}

// SetTaskHandler attaches a failure handler to a single task.
func (g *Graph) SetTaskHandler(t *task.Task, h FailureHandler) {
	g.handlers[t.ID()] = h
}

// TaskHandler returns the failure handler attached to the task, if any.
func (g *Graph) TaskHandler(id string) FailureHandler {
	return g.handlers[id]
}

// Validate checks the flattened graph for cycles.
func (g *Graph) Validate() error {
	return g.Plan().DetectCycles()
}
