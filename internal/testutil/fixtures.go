package testutil

import (
	"github.com/specialistvlad/instancegraph/internal/model"
)

// Op declares an operation with a real implementation.
func Op(name string) model.Operation {
	return model.Operation{Name: name, Implementation: "scripts/" + name + ".sh"}
}

// NoOp declares an operation without an implementation.
func NoOp(name string) model.Operation {
	return model.Operation{Name: name}
}

// Ops declares every name with a real implementation.
func Ops(names ...string) []model.Operation {
	out := make([]model.Operation, 0, len(names))
	for _, n := range names {
		out = append(out, Op(n))
	}
	return out
}

// Node builds a plain node of type cloudify.nodes.Root.
func Node(id string, ops ...model.Operation) *model.Node {
	return model.NewNode(id, []string{"cloudify.nodes.Root"}, ops, nil)
}

// HostNode builds a compute host node.
func HostNode(id string, props map[string]any, ops ...model.Operation) *model.Node {
	return model.NewNode(id, []string{"cloudify.nodes.Root", model.ComputeNodeType}, ops, props)
}

// Instance builds a node instance of node in the given state.
func Instance(id string, node *model.Node, state model.State, rels ...model.Relationship) *model.NodeInstance {
	return &model.NodeInstance{
		ID:                id,
		Node:              node,
		State:             state,
		Relationships:     rels,
		RuntimeProperties: map[string]any{},
	}
}

// Rel builds a relationship to targetID. When op is non-empty it is recorded
// as the relationship's operation property. The source and target sides
// declare the given operations with real implementations.
func Rel(targetID, op string, sourceOps, targetOps []string) model.Relationship {
	props := map[string]any{}
	if op != "" {
		props[model.OperationProperty] = op
	}
	return model.Relationship{
		Type:             "cloudify.relationships.depends_on",
		TargetID:         targetID,
		Properties:       props,
		SourceOperations: model.NewOperations(Ops(sourceOps...)...),
		TargetOperations: model.NewOperations(Ops(targetOps...)...),
	}
}
