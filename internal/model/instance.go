// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models node instances.
package model

// Modification tags an instance with its role in a scale modification.
type Modification string

const (
	ModificationNone    Modification = ""
	ModificationAdded   Modification = "added"
	ModificationRemoved Modification = "removed"
	ModificationRelated Modification = "related"
)

// NodeInstance is one concrete instance of a node template.
type NodeInstance struct {
	ID    string
	Node  *Node
	State State
	// Relationships are ordered as declared.
	Relationships []Relationship
	// RuntimeProperties is the snapshot taken when the instance was read. It
	// is never written back through this struct.
	RuntimeProperties map[string]any
	Modification      Modification
}

// NodeID returns the id of the instance's node template.
func (i *NodeInstance) NodeID() string {
	return i.Node.ID
}

// RuntimeProperty returns a runtime property from the snapshot.
func (i *NodeInstance) RuntimeProperty(key string) (any, bool) {
	v, ok := i.RuntimeProperties[key]
	return v, ok
}

// RelationshipsTo returns the instance's relationships that target id.
func (i *NodeInstance) RelationshipsTo(id string) []Relationship {
	var out []Relationship
	for _, rel := range i.Relationships {
		if rel.TargetID == id {
			out = append(out, rel)
		}
	}
	return out
}

// IDs returns the ids of the given instances in order.
func IDs(instances []*NodeInstance) []string {
	out := make([]string, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.ID)
	}
	return out
}

// Index maps instances by id.
func Index(instances []*NodeInstance) map[string]*NodeInstance {
	out := make(map[string]*NodeInstance, len(instances))
	for _, inst := range instances {
		out[inst.ID] = inst
	}
	return out
}
