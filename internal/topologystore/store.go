// Package topologystore defines the interface to the deployment topology:
// the nodes, their instances and the modification transactions that add
// and remove instances.
//
// # Why Topology Store Exists
//
// Graph construction never talks to a database. It works on snapshots of
// nodes and node instances read through this interface, which keeps the
// builders pure and lets the backing system be swapped:
//   - **Snapshots:** every read returns instances the caller may keep; later
//     writes never change them
//   - **Transactions:** scaling opens a modification that proposes added and
//     removed instances and is finished or rolled back as a unit
//   - **State Recording:** the executor records lifecycle states through
//     SetState while a graph runs
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use.
package topologystore

import (
	"context"
	"errors"

	"github.com/specialistvlad/instancegraph/internal/model"
)

var (
	// ErrNotFound is returned when a node or node instance does not exist.
	ErrNotFound = errors.New("not found in topology")
	// ErrModificationInProgress is returned when a second modification is
	// started before the first one was finished or rolled back.
	ErrModificationInProgress = errors.New("a modification is already in progress")
	// ErrModificationClosed is returned when a finished or rolled back
	// modification is used again.
	ErrModificationClosed = errors.New("modification is already closed")
)

// Store is the interface to the deployment topology.
type Store interface {
	// AddNode registers a node template. Adding the same node twice is a
	// no-op.
	AddNode(ctx context.Context, n *model.Node) error

	// AddInstance registers a node instance. Its node must already exist.
	AddInstance(ctx context.Context, inst *model.NodeInstance) error

	// GetNode retrieves a node by id.
	GetNode(ctx context.Context, id string) (*model.Node, bool)

	// GetInstance retrieves a snapshot of a node instance by id.
	GetInstance(ctx context.Context, id string) (*model.NodeInstance, bool)

	// AllInstances returns snapshots of every instance in registration order.
	AllInstances(ctx context.Context) []*model.NodeInstance

	// InstancesOf returns snapshots of the instances of one node in
	// registration order.
	InstancesOf(ctx context.Context, nodeID string) []*model.NodeInstance

	// SetState records the lifecycle state of an instance.
	SetState(ctx context.Context, instanceID string, state model.State) error
}

// ModificationRequest asks for new instance counts.
type ModificationRequest struct {
	// Counts maps scaling group (node id) to the desired number of instances.
	Counts map[string]int
	// RemovalHints are instance ids to prefer when instances must be
	// removed.
	RemovalHints []string
}

// Modification is an open scale transaction.
type Modification interface {
	// ID identifies the transaction.
	ID() string
	// Added returns the new instances, tagged added, plus the existing
	// instances connected to them, tagged related.
	Added() []*model.NodeInstance
	// Removed returns the instances to remove, tagged removed, plus the
	// remaining instances connected to them, tagged related.
	Removed() []*model.NodeInstance
	// Finish commits the modification.
	Finish(ctx context.Context) error
	// Rollback discards the modification.
	Rollback(ctx context.Context) error
}

// Modifier opens modifications.
type Modifier interface {
	StartModification(ctx context.Context, req ModificationRequest) (Modification, error)
}
