package inmemorytopology

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/topologystore"
)

// Store implements topologystore.Store using maps and a mutex for
// thread-safe concurrent access.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]*model.Node
	instances map[string]*model.NodeInstance
	order     []string // instance ids in registration order
	pending   *modification
}

var (
	_ topologystore.Store    = (*Store)(nil)
	_ topologystore.Modifier = (*Store)(nil)
)

// New creates a new, empty in-memory topology store.
func New() *Store {
	return &Store{
		nodes:     make(map[string]*model.Node),
		instances: make(map[string]*model.NodeInstance),
	}
}

// AddNode adds a new node to the store.
func (s *Store) AddNode(_ context.Context, n *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		// Adding the same node twice is not an error, it's idempotent.
		return nil
	}
	s.nodes[n.ID] = n
	return nil
}

// AddInstance registers a node instance.
func (s *Store) AddInstance(_ context.Context, inst *model.NodeInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst.Node == nil {
		return fmt.Errorf("node instance '%s' has no node", inst.ID)
	}
	if _, exists := s.nodes[inst.NodeID()]; !exists {
		return fmt.Errorf("node '%s' of instance '%s': %w", inst.NodeID(), inst.ID, topologystore.ErrNotFound)
	}
	if _, exists := s.instances[inst.ID]; exists {
		return fmt.Errorf("node instance '%s' already exists", inst.ID)
	}
	s.register(snapshot(inst))
	return nil
}

func (s *Store) register(inst *model.NodeInstance) {
	inst.Modification = model.ModificationNone
	s.instances[inst.ID] = inst
	s.order = append(s.order, inst.ID)
}

func (s *Store) unregister(ids map[string]struct{}) {
	for id := range ids {
		delete(s.instances, id)
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		_, ok := ids[id]
		return ok
	})
}

// GetNode retrieves a single node by id.
func (s *Store) GetNode(_ context.Context, id string) (*model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	return n, ok
}

// GetInstance retrieves a snapshot of a single node instance.
func (s *Store) GetInstance(_ context.Context, id string) (*model.NodeInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, false
	}
	return snapshot(inst), true
}

// AllInstances returns snapshots of every instance in registration order.
func (s *Store) AllInstances(_ context.Context) []*model.NodeInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.NodeInstance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, snapshot(s.instances[id]))
	}
	return out
}

// InstancesOf returns snapshots of the instances of one node.
func (s *Store) InstancesOf(_ context.Context, nodeID string) []*model.NodeInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.NodeInstance
	for _, inst := range s.instancesOf(nodeID) {
		out = append(out, snapshot(inst))
	}
	return out
}

func (s *Store) instancesOf(nodeID string) []*model.NodeInstance {
	var out []*model.NodeInstance
	for _, id := range s.order {
		if inst := s.instances[id]; inst.NodeID() == nodeID {
			out = append(out, inst)
		}
	}
	return out
}

// SetState records the lifecycle state of an instance.
func (s *Store) SetState(_ context.Context, instanceID string, state model.State) error {
	if !state.Valid() {
		return fmt.Errorf("invalid state '%s'", state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("node instance '%s': %w", instanceID, topologystore.ErrNotFound)
	}
	inst.State = state
	return nil
}

// snapshot copies inst deeply enough that later writes to the store never
// show through.
func snapshot(inst *model.NodeInstance) *model.NodeInstance {
	cp := *inst
	cp.Relationships = slices.Clone(inst.Relationships)
	cp.RuntimeProperties = maps.Clone(inst.RuntimeProperties)
	if cp.RuntimeProperties == nil {
		cp.RuntimeProperties = map[string]any{}
	}
	return &cp
}
