// Package propertystore defines the interface for reading and writing the
// runtime properties of node instances.
//
// # Why Property Store Exists
//
// Runtime properties are written by running operations and by the scale
// transaction (property updates and transaction tags), and read back to
// find instances by tag. Keeping them behind an explicit key-value interface
// separates them from the immutable snapshots graph construction works on:
//   - **Side-Effect Free Construction:** builders read a snapshot and never
//     write through it
//   - **Concurrency:** writes from parallel tasks never touch shared maps
//   - **Flexibility:** the backend can be in-memory or Redis
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use.
package propertystore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by All when no property was ever set for an
// instance.
var ErrNotFound = errors.New("no runtime properties recorded")

// Store is a per-instance key-value store.
type Store interface {
	// Get returns a single property. ok is false when the key is unset.
	Get(ctx context.Context, instanceID, key string) (value any, ok bool, err error)

	// Set writes a single property.
	Set(ctx context.Context, instanceID, key string, value any) error

	// Update writes every entry of values for one instance. Keys not in
	// values are left untouched.
	Update(ctx context.Context, instanceID string, values map[string]any) error

	// All returns a copy of every property of an instance.
	All(ctx context.Context, instanceID string) (map[string]any, error)
}
