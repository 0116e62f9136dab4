// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the propertystore.Store interface.
//
// # Concurrency Model
//
// Each instance owns an independent property map. The outer sync.Map gives
// lock-free lookups of that map; the map itself is guarded by its own mutex,
// so writes to different instances never contend.
package inmemorystore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/specialistvlad/instancegraph/internal/propertystore"
)

type properties struct {
	mu     sync.RWMutex
	values map[string]any
}

// Store is an in-memory implementation of propertystore.Store.
type Store struct {
	instances sync.Map // Key: instance ID, Value: *properties
}

var _ propertystore.Store = (*Store)(nil)

// New creates a new, empty in-memory property store.
func New() *Store {
	return &Store{}
}

func (s *Store) load(instanceID string) (*properties, bool) {
	p, ok := s.instances.Load(instanceID)
	if !ok {
		return nil, false
	}
	return p.(*properties), true
}

func (s *Store) loadOrCreate(instanceID string) *properties {
	p, _ := s.instances.LoadOrStore(instanceID, &properties{values: make(map[string]any)})
	return p.(*properties)
}

// Get returns a single property of an instance.
func (s *Store) Get(_ context.Context, instanceID, key string) (any, bool, error) {
	p, ok := s.load(instanceID)
	if !ok {
		return nil, false, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok, nil
}

// Set writes a single property.
func (s *Store) Set(_ context.Context, instanceID, key string, value any) error {
	p := s.loadOrCreate(instanceID)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

// Update writes several properties at once.
func (s *Store) Update(_ context.Context, instanceID string, values map[string]any) error {
	p := s.loadOrCreate(instanceID)
	p.mu.Lock()
	defer p.mu.Unlock()
	maps.Copy(p.values, values)
	return nil
}

// All returns a copy of every property of an instance.
func (s *Store) All(_ context.Context, instanceID string) (map[string]any, error) {
	p, ok := s.load(instanceID)
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", instanceID, propertystore.ErrNotFound)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values), nil
}
