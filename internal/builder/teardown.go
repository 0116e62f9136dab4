package builder

import (
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/lifecycle"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/policy"
	"github.com/specialistvlad/instancegraph/internal/task"
)

// teardown parameterises the shared teardown sequence.
type teardown struct {
	class        lifecycle.Classification
	stoppedState model.State
	deletedState model.State
	// finalEvent is sent when any real work was scheduled. Empty means none.
	finalEvent string
}

// Rollback builds the subgraph that undoes an interrupted install of inst,
// based on the state it was left in.
func Rollback(g *dag.Graph, inst *model.NodeInstance, ignoreFailure bool) (*dag.Subgraph, error) {
	return build(g, inst, teardown{
		class:        lifecycle.Classify(inst),
		stoppedState: model.StateConfigured,
		deletedState: model.StateUninitialized,
		finalEvent:   MsgRollbacked,
	}, ignoreFailure)
}

// Uninstall builds the subgraph that fully tears down inst regardless of its
// recorded state.
func Uninstall(g *dag.Graph, inst *model.NodeInstance, ignoreFailure bool) (*dag.Subgraph, error) {
	return build(g, inst, teardown{
		class:        lifecycle.Force(),
		stoppedState: model.StateStopped,
		deletedState: model.StateDeleted,
	}, ignoreFailure)
}

func build(g *dag.Graph, inst *model.NodeInstance, td teardown, ignoreFailure bool) (*dag.Subgraph, error) {
	sub := g.Subgraph(inst.ID).ForInstance(inst.ID)
	seq := sub.Sequence()

	if td.class.MidStart {
		seq.Fork(g.SetState(inst, model.StateStopping), g.Event(inst, MsgStopping))
	}

	seq.Add(validation(g, inst, td.class)...)

	if td.class.MidStart {
		seq.Add(skipNop(g.Operation(inst, OpMonitoringStop, nil), nil, nil)...)
		seq.Add(skipNop(g.Operation(inst, OpPrestop, nil), nil, nil)...)
		if inst.Node.Has(model.CapabilityComputeHost) {
			seq.Add(hostPreStop(g, inst)...)
		}
		seq.Add(skipNop(g.Operation(inst, OpStop, nil), nil, nil)...)
		seq.Fork(g.SetState(inst, td.stoppedState), g.Event(inst, MsgStopped))
	} else {
		seq.Add(g.Event(inst, MsgStoppedNothing))
	}

	if td.class.MidCreate {
		unlink, err := RelationshipSubgraph(g, sub, inst, RelUnlink, true)
		if err != nil {
			return nil, err
		}
		if unlink != nil {
			seq.Add(unlink)
		}

		if del := g.Operation(inst, OpDelete, nil); !del.IsNoOp() {
			seq.Fork(g.SetState(inst, model.StateDeleting), g.Event(inst, MsgDeleting))
			seq.Add(del, g.Event(inst, MsgDeleted))
		}
		seq.Add(skipNop(g.Operation(inst, OpPostdelete, nil), nil, nil)...)
		seq.Add(g.SetState(inst, td.deletedState))
	} else {
		seq.Add(g.Event(inst, MsgDeletedNothing))
	}

	if td.finalEvent != "" && !td.class.Resolved() {
		seq.Add(g.Event(inst, td.finalEvent))
	}

	if err := seq.Err(); err != nil {
		return nil, fmt.Errorf("building teardown subgraph for %s: %w", inst.ID, err)
	}
	if ignoreFailure {
		policy.IgnoreFailures(g, sub)
	}
	return sub, nil
}

// validation is group 2: the real validation when it applies, nothing for a
// declared no-op, and the "nothing to do" event otherwise.
func validation(g *dag.Graph, inst *model.NodeInstance, class lifecycle.Classification) []dag.Vertex {
	ops := inst.Node.Operations
	if !class.MidStart || !ops.Has(OpValidationDelete) {
		return []dag.Vertex{g.Event(inst, MsgValidatingNothing)}
	}
	return skipNop(
		g.Operation(inst, OpValidationDelete, nil),
		g.Event(inst, MsgValidating),
		g.Event(inst, MsgValidated),
	)
}

// skipNop returns op wrapped by the optional pre and post tasks, or nothing
// at all when op is a no-op.
func skipNop(op, pre, post *task.Task) []dag.Vertex {
	if op.IsNoOp() {
		return nil
	}
	var out []dag.Vertex
	if pre != nil {
		out = append(out, pre)
	}
	out = append(out, op)
	if post != nil {
		out = append(out, post)
	}
	return out
}
