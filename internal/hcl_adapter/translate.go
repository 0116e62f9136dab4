package hcl_adapter

import (
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/model"
)

func resolve(nodeBlocks []*nodeBlock, instanceBlocks []*instanceBlock) (*Snapshot, error) {
	snap := &Snapshot{}
	nodes := make(map[string]*model.Node, len(nodeBlocks))
	for _, b := range nodeBlocks {
		if _, dup := nodes[b.ID]; dup {
			return nil, fmt.Errorf("node '%s' is declared more than once", b.ID)
		}
		n, err := translateNode(b)
		if err != nil {
			return nil, err
		}
		nodes[n.ID] = n
		snap.Nodes = append(snap.Nodes, n)
	}
	for _, n := range snap.Nodes {
		for _, rel := range n.Relationships {
			if _, ok := nodes[rel.TargetNodeID]; !ok {
				return nil, fmt.Errorf("node '%s': relationship target node '%s' is not declared", n.ID, rel.TargetNodeID)
			}
		}
	}

	instances := make(map[string]*model.NodeInstance, len(instanceBlocks))
	for _, b := range instanceBlocks {
		if _, dup := instances[b.ID]; dup {
			return nil, fmt.Errorf("instance '%s' is declared more than once", b.ID)
		}
		n, ok := nodes[b.Node]
		if !ok {
			return nil, fmt.Errorf("instance '%s': node '%s' is not declared", b.ID, b.Node)
		}
		state, err := model.ParseState(b.State)
		if err != nil {
			return nil, fmt.Errorf("instance '%s': %w", b.ID, err)
		}
		props, err := evalMap(b.RuntimeProperties, fmt.Sprintf("runtime_properties of instance '%s'", b.ID))
		if err != nil {
			return nil, err
		}
		if props == nil {
			props = map[string]any{}
		}
		inst := &model.NodeInstance{ID: b.ID, Node: n, State: state, RuntimeProperties: props}
		instances[inst.ID] = inst
		snap.Instances = append(snap.Instances, inst)
	}

	for i, inst := range snap.Instances {
		rels, err := connect(inst, instanceBlocks[i].Connections, snap.Instances, instances)
		if err != nil {
			return nil, err
		}
		inst.Relationships = rels
	}
	return snap, nil
}

func translateNode(b *nodeBlock) (*model.Node, error) {
	props, err := evalMap(b.Properties, fmt.Sprintf("properties of node '%s'", b.ID))
	if err != nil {
		return nil, err
	}
	ops, err := translateOperations(b.Operations, "node '"+b.ID+"'")
	if err != nil {
		return nil, err
	}

	var rels []model.RelationshipTemplate
	for _, r := range b.Relationships {
		where := fmt.Sprintf("relationship '%s' of node '%s'", r.Type, b.ID)
		relProps, err := evalMap(r.Properties, "properties of "+where)
		if err != nil {
			return nil, err
		}
		if relProps == nil {
			relProps = map[string]any{}
		}
		sourceOps, err := translateOperations(r.SourceOperations, where)
		if err != nil {
			return nil, err
		}
		targetOps, err := translateOperations(r.TargetOperations, where)
		if err != nil {
			return nil, err
		}
		rels = append(rels, model.RelationshipTemplate{
			Type:             r.Type,
			TargetNodeID:     r.Target,
			Properties:       relProps,
			SourceOperations: model.NewOperations(sourceOps...),
			TargetOperations: model.NewOperations(targetOps...),
		})
	}
	return model.NewNode(b.ID, b.Types, ops, props, rels...), nil
}

func translateOperations(blocks []*operationBlock, owner string) ([]model.Operation, error) {
	ops := make([]model.Operation, 0, len(blocks))
	for _, b := range blocks {
		inputs, err := evalMap(b.Inputs, fmt.Sprintf("inputs of operation '%s' of %s", b.Name, owner))
		if err != nil {
			return nil, err
		}
		ops = append(ops, model.Operation{Name: b.Name, Implementation: b.Implementation, Inputs: inputs})
	}
	return ops, nil
}

// connect resolves the relationships of inst: explicit blocks first, or
// every instance of each template target when there are none.
func connect(inst *model.NodeInstance, blocks []*connectionBlock, ordered []*model.NodeInstance, byID map[string]*model.NodeInstance) ([]model.Relationship, error) {
	var rels []model.Relationship
	if len(blocks) == 0 {
		for _, tmpl := range inst.Node.Relationships {
			for _, target := range ordered {
				if target.NodeID() == tmpl.TargetNodeID {
					rels = append(rels, tmpl.Instantiate(target.ID))
				}
			}
		}
		return rels, nil
	}

	for _, b := range blocks {
		target, ok := byID[b.Target]
		if !ok {
			return nil, fmt.Errorf("instance '%s': relationship target instance '%s' is not declared", inst.ID, b.Target)
		}
		tmpl, ok := findTemplate(inst.Node, b.Type, target.NodeID())
		if !ok {
			return nil, fmt.Errorf("instance '%s': node '%s' declares no '%s' relationship to node '%s'", inst.ID, inst.NodeID(), b.Type, target.NodeID())
		}
		rels = append(rels, tmpl.Instantiate(target.ID))
	}
	return rels, nil
}

func findTemplate(n *model.Node, relType, targetNodeID string) (model.RelationshipTemplate, bool) {
	for _, tmpl := range n.Relationships {
		if tmpl.Type == relType && tmpl.TargetNodeID == targetNodeID {
			return tmpl, true
		}
	}
	return model.RelationshipTemplate{}, false
}
