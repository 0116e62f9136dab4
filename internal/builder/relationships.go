package builder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/policy"
	"github.com/specialistvlad/instancegraph/internal/task"
)

// RelationshipSubgraph nests a subgraph inside parent that runs op on both
// sides of every relationship of inst. Relationships are grouped by target;
// the operations of one group run concurrently and the groups run one after
// another, in reverse when reverse is set. No-op operations are dropped and
// nil is returned when nothing is left.
func RelationshipSubgraph(g *dag.Graph, parent *dag.Subgraph, inst *model.NodeInstance, op string, reverse bool) (*dag.Subgraph, error) {
	groups := RelationshipOperations(g, inst, inst.Relationships, op)
	if len(groups) == 0 {
		return nil, nil
	}
	if reverse {
		slices.Reverse(groups)
	}

	sub := parent.Subgraph(shortName(op))
	sub.SetHandler(policy.RelationshipAbsorber{})
	seq := sub.Sequence()
	for _, group := range groups {
		seq.Fork(group...)
	}
	if err := seq.Err(); err != nil {
		return nil, fmt.Errorf("building %s subgraph for %s: %w", op, inst.ID, err)
	}
	return sub, nil
}

// RelationshipOperations creates the source and target operation tasks of op
// for rels, grouped by relationship target in first-appearance order. No-op
// tasks are dropped and so are groups left empty.
func RelationshipOperations(g *dag.Graph, inst *model.NodeInstance, rels []model.Relationship, op string) [][]dag.Vertex {
	var order []string
	byTarget := make(map[string][]dag.Vertex)
	for _, rel := range rels {
		for _, side := range []task.Side{task.SideSource, task.SideTarget} {
			t := g.RelationshipOperation(inst, rel, side, op)
			if t.IsNoOp() {
				continue
			}
			if _, seen := byTarget[rel.TargetID]; !seen {
				order = append(order, rel.TargetID)
			}
			byTarget[rel.TargetID] = append(byTarget[rel.TargetID], t)
		}
	}

	groups := make([][]dag.Vertex, 0, len(order))
	for _, target := range order {
		groups = append(groups, byTarget[target])
	}
	return groups
}

func shortName(op string) string {
	if i := strings.LastIndex(op, "."); i >= 0 {
		return op[i+1:]
	}
	return op
}
