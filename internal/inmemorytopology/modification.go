package inmemorytopology

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/topologystore"
)

// modification is the pending scale transaction of a Store. New instances
// are registered when it starts so their states can be recorded while they
// install; everything else is applied on Finish.
type modification struct {
	store   *Store
	id      string
	added   []*model.NodeInstance
	removed []*model.NodeInstance

	newIDs  map[string]struct{}
	victims map[string]struct{}
	// newRelationships are appended to existing instances on Finish.
	newRelationships map[string][]model.Relationship
	closed           bool
}

// StartModification opens a scale transaction that brings every node named
// in req.Counts to the requested number of instances. New instances connect
// to every instance of their relationship targets. Instances to remove are
// taken from req.RemovalHints first, then newest first.
func (s *Store) StartModification(ctx context.Context, req topologystore.ModificationRequest) (topologystore.Modification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return nil, fmt.Errorf("%w: %s", topologystore.ErrModificationInProgress, s.pending.id)
	}

	groups := slices.Sorted(maps.Keys(req.Counts))
	for _, nodeID := range groups {
		if _, ok := s.nodes[nodeID]; !ok {
			return nil, fmt.Errorf("scaling group '%s': %w", nodeID, topologystore.ErrNotFound)
		}
		if req.Counts[nodeID] < 0 {
			return nil, fmt.Errorf("scaling group '%s': negative instance count %d", nodeID, req.Counts[nodeID])
		}
	}

	m := &modification{
		store:            s,
		id:               uuid.NewString(),
		newIDs:           make(map[string]struct{}),
		victims:          make(map[string]struct{}),
		newRelationships: make(map[string][]model.Relationship),
	}

	var created []*model.NodeInstance
	for _, nodeID := range groups {
		current := s.instancesOf(nodeID)
		want := req.Counts[nodeID]
		switch {
		case want > len(current):
			for range want - len(current) {
				inst := &model.NodeInstance{
					ID:                s.nextInstanceID(nodeID, m.newIDs),
					Node:              s.nodes[nodeID],
					State:             model.StateUninitialized,
					RuntimeProperties: map[string]any{},
				}
				m.newIDs[inst.ID] = struct{}{}
				created = append(created, inst)
			}
		case want < len(current):
			for _, inst := range pickVictims(current, len(current)-want, req.RemovalHints) {
				m.victims[inst.ID] = struct{}{}
			}
		}
	}

	m.planAdditions(created)
	m.planRemovals()

	for _, inst := range created {
		s.register(snapshot(inst))
	}
	s.pending = m

	ctxlog.FromContext(ctx).Debug("Started modification.",
		"modification", m.id, "added", len(m.newIDs), "removed", len(m.victims))
	return m, nil
}

// planAdditions wires new instances to their targets and existing sources
// to new targets, and collects the added set.
func (m *modification) planAdditions(created []*model.NodeInstance) {
	s := m.store
	instancesOf := func(nodeID string) []*model.NodeInstance {
		out := s.instancesOf(nodeID)
		for _, inst := range created {
			if inst.NodeID() == nodeID {
				out = append(out, inst)
			}
		}
		return out
	}

	related := make(map[string]struct{})
	for _, inst := range created {
		for _, tmpl := range inst.Node.Relationships {
			for _, target := range instancesOf(tmpl.TargetNodeID) {
				inst.Relationships = append(inst.Relationships, tmpl.Instantiate(target.ID))
				if _, isNew := m.newIDs[target.ID]; !isNew {
					related[target.ID] = struct{}{}
				}
			}
		}
	}
	for _, id := range s.order {
		if _, isVictim := m.victims[id]; isVictim {
			continue
		}
		source := s.instances[id]
		for _, tmpl := range source.Node.Relationships {
			for _, target := range created {
				if target.NodeID() == tmpl.TargetNodeID {
					m.newRelationships[id] = append(m.newRelationships[id], tmpl.Instantiate(target.ID))
					related[id] = struct{}{}
				}
			}
		}
	}

	for _, inst := range created {
		cp := snapshot(inst)
		cp.Modification = model.ModificationAdded
		m.added = append(m.added, cp)
	}
	for _, id := range s.order {
		if _, ok := related[id]; !ok {
			continue
		}
		cp := snapshot(s.instances[id])
		cp.Relationships = append(cp.Relationships, m.newRelationships[id]...)
		cp.Modification = model.ModificationRelated
		m.added = append(m.added, cp)
	}
}

// planRemovals collects the removed set: the victims plus every remaining
// instance on either end of a relationship with one of them.
func (m *modification) planRemovals() {
	s := m.store
	related := make(map[string]struct{})
	for _, id := range s.order {
		inst := s.instances[id]
		_, isVictim := m.victims[id]
		for _, rel := range inst.Relationships {
			_, targetIsVictim := m.victims[rel.TargetID]
			switch {
			case isVictim && !targetIsVictim:
				related[rel.TargetID] = struct{}{}
			case !isVictim && targetIsVictim:
				related[id] = struct{}{}
			}
		}
	}

	for _, id := range s.order {
		if _, ok := m.victims[id]; ok {
			cp := snapshot(s.instances[id])
			cp.Modification = model.ModificationRemoved
			m.removed = append(m.removed, cp)
		}
	}
	for _, id := range s.order {
		if _, ok := related[id]; ok {
			cp := snapshot(s.instances[id])
			cp.Modification = model.ModificationRelated
			m.removed = append(m.removed, cp)
		}
	}
}

func (s *Store) nextInstanceID(nodeID string, reserved map[string]struct{}) string {
	for n := len(s.instancesOf(nodeID)) + 1; ; n++ {
		id := fmt.Sprintf("%s_%d", nodeID, n)
		_, taken := s.instances[id]
		_, isReserved := reserved[id]
		if !taken && !isReserved {
			return id
		}
	}
}

// pickVictims selects n instances, hinted ones first and then the most
// recently registered.
func pickVictims(current []*model.NodeInstance, n int, hints []string) []*model.NodeInstance {
	var out []*model.NodeInstance
	chosen := make(map[string]struct{})
	byID := model.Index(current)
	for _, id := range hints {
		if len(out) == n {
			return out
		}
		inst, ok := byID[id]
		if _, dup := chosen[id]; !ok || dup {
			continue
		}
		chosen[id] = struct{}{}
		out = append(out, inst)
	}
	for i := len(current) - 1; i >= 0 && len(out) < n; i-- {
		if _, dup := chosen[current[i].ID]; dup {
			continue
		}
		chosen[current[i].ID] = struct{}{}
		out = append(out, current[i])
	}
	return out
}

func (m *modification) ID() string                     { return m.id }
func (m *modification) Added() []*model.NodeInstance   { return m.added }
func (m *modification) Removed() []*model.NodeInstance { return m.removed }

// Finish applies the modification: victims are dropped together with every
// relationship pointing at them, and existing sources gain their
// relationships to new instances.
func (m *modification) Finish(ctx context.Context) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.close(); err != nil {
		return err
	}
	s.unregister(m.victims)
	for _, id := range s.order {
		inst := s.instances[id]
		inst.Relationships = slices.DeleteFunc(inst.Relationships, func(rel model.Relationship) bool {
			_, gone := m.victims[rel.TargetID]
			return gone
		})
		inst.Relationships = append(inst.Relationships, m.newRelationships[id]...)
	}
	ctxlog.FromContext(ctx).Debug("Finished modification.", "modification", m.id)
	return nil
}

// Rollback drops the instances the modification registered and leaves
// everything else as it was.
func (m *modification) Rollback(ctx context.Context) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.close(); err != nil {
		return err
	}
	s.unregister(m.newIDs)
	ctxlog.FromContext(ctx).Debug("Rolled back modification.", "modification", m.id)
	return nil
}

// close must be called with the store lock held.
func (m *modification) close() error {
	if m.closed {
		return fmt.Errorf("%w: %s", topologystore.ErrModificationClosed, m.id)
	}
	m.closed = true
	m.store.pending = nil
	return nil
}
