package builder

import (
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
)

// Install builds the subgraph that creates, configures and starts inst.
func Install(g *dag.Graph, inst *model.NodeInstance) (*dag.Subgraph, error) {
	sub := g.Subgraph(inst.ID).ForInstance(inst.ID)
	seq := sub.Sequence()

	seq.Add(g.SetState(inst, model.StateInitializing))
	seq.Fork(g.SetState(inst, model.StateCreating), g.Event(inst, MsgCreating))
	seq.Add(skipNop(g.Operation(inst, OpPrecreate, nil), nil, nil)...)
	seq.Add(skipNop(g.Operation(inst, OpCreate, nil), nil, nil)...)
	seq.Fork(g.SetState(inst, model.StateCreated), g.Event(inst, MsgCreated))

	if err := addRelationships(g, sub, seq, inst, RelPreconfigure); err != nil {
		return nil, err
	}
	seq.Fork(g.SetState(inst, model.StateConfiguring), g.Event(inst, MsgConfiguring))
	seq.Add(skipNop(g.Operation(inst, OpConfigure, nil), nil, nil)...)
	if err := addRelationships(g, sub, seq, inst, RelPostconfigure); err != nil {
		return nil, err
	}
	seq.Fork(g.SetState(inst, model.StateConfigured), g.Event(inst, MsgConfigured))

	seq.Fork(g.SetState(inst, model.StateStarting), g.Event(inst, MsgStarting))
	seq.Add(skipNop(g.Operation(inst, OpStart, nil), nil, nil)...)
	seq.Add(skipNop(g.Operation(inst, OpPoststart, nil), nil, nil)...)
	seq.Add(skipNop(g.Operation(inst, OpMonitoringStart, nil), nil, nil)...)
	if err := addRelationships(g, sub, seq, inst, RelEstablish); err != nil {
		return nil, err
	}
	seq.Fork(g.SetState(inst, model.StateStarted), g.Event(inst, MsgStarted))

	if err := seq.Err(); err != nil {
		return nil, fmt.Errorf("building install subgraph for %s: %w", inst.ID, err)
	}
	return sub, nil
}

func addRelationships(g *dag.Graph, sub *dag.Subgraph, seq *dag.Sequence, inst *model.NodeInstance, op string) error {
	rel, err := RelationshipSubgraph(g, sub, inst, op, false)
	if err != nil {
		return err
	}
	if rel != nil {
		seq.Add(rel)
	}
	return nil
}
