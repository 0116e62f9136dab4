package linker

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
)

// ErrMissingSubgraph is returned when an instance taking part in an edge has
// no subgraph registered.
var ErrMissingSubgraph = errors.New("node instance has no subgraph")

// DependencyObserver is notified after each edge between two subgraphs is
// added. seq appends to the source instance's subgraph and is shared by all
// notifications for that source, so successive calls chain.
type DependencyObserver interface {
	DependencyAdded(ctx context.Context, source *model.NodeInstance, rel model.Relationship, seq *dag.Sequence) error
}

// DependencyObserverFunc adapts a function to DependencyObserver.
type DependencyObserverFunc func(ctx context.Context, source *model.NodeInstance, rel model.Relationship, seq *dag.Sequence) error

// DependencyAdded calls fn.
func (fn DependencyObserverFunc) DependencyAdded(ctx context.Context, source *model.NodeInstance, rel model.Relationship, seq *dag.Sequence) error {
	return fn(ctx, source, rel, seq)
}

// Linker adds relationship edges between the subgraphs of one graph.
type Linker struct {
	graph     *dag.Graph
	subgraphs map[string]*dag.Subgraph
	sequences map[string]*dag.Sequence
}

// New creates a linker over g. subgraphs maps node instance ids to their
// subgraph in g.
func New(g *dag.Graph, subgraphs map[string]*dag.Subgraph) *Linker {
	return &Linker{
		graph:     g,
		subgraphs: subgraphs,
		sequences: make(map[string]*dag.Sequence),
	}
}

// Link adds an edge for every relationship of instances whose target is in
// active or intact. Relationships are visited in declared order for install
// and in reverse for teardown.
func (l *Linker) Link(ctx context.Context, instances []*model.NodeInstance, active, intact map[string]*model.NodeInstance, install bool, obs DependencyObserver) error {
	logger := ctxlog.FromContext(ctx)

	for _, inst := range instances {
		rels := slices.Clone(inst.Relationships)
		if !install {
			slices.Reverse(rels)
		}
		for _, rel := range rels {
			target, ok := active[rel.TargetID]
			if !ok {
				target, ok = intact[rel.TargetID]
			}
			if !ok {
				continue
			}

			if err := l.connect(inst, target, rel, install); err != nil {
				return err
			}
			logger.Debug("Linked node instances.", "source", inst.ID, "target", target.ID, "type", rel.Type, "install", install)

			if obs == nil {
				continue
			}
			seq, err := l.sequence(inst.ID)
			if err != nil {
				return err
			}
			if err := obs.DependencyAdded(ctx, inst, rel, seq); err != nil {
				return fmt.Errorf("relationship %s -> %s: %w", inst.ID, target.ID, err)
			}
		}
	}
	return nil
}

func (l *Linker) connect(source, target *model.NodeInstance, rel model.Relationship, install bool) error {
	sourceSub, ok := l.subgraphs[source.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingSubgraph, source.ID)
	}
	targetSub, ok := l.subgraphs[target.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingSubgraph, target.ID)
	}

	targets := []dag.Vertex{targetSub}
	if op, ok := rel.Operation(); ok {
		if narrowed := l.narrow(targetSub, target, op); len(narrowed) > 0 {
			targets = narrowed
		}
	}

	for _, t := range targets {
		var err error
		if install {
			err = l.graph.AddDependency(sourceSub, t)
		} else {
			err = l.graph.AddDependency(t, sourceSub)
		}
		if err != nil {
			return fmt.Errorf("linking %s and %s: %w", source.ID, target.ID, err)
		}
	}
	return nil
}

// narrow returns the direct dependents of the first task in sub that runs op
// for target's own node.
func (l *Linker) narrow(sub *dag.Subgraph, target *model.NodeInstance, op string) []dag.Vertex {
	for _, t := range sub.Tasks() {
		if t.MatchesOperation(op) && t.NodeID() == target.NodeID() {
			return l.graph.Dependents(t)
		}
	}
	return nil
}

func (l *Linker) sequence(instanceID string) (*dag.Sequence, error) {
	if seq, ok := l.sequences[instanceID]; ok {
		return seq, nil
	}
	sub, ok := l.subgraphs[instanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSubgraph, instanceID)
	}
	seq := sub.Sequence()
	l.sequences[instanceID] = seq
	return seq, nil
}
