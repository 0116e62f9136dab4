// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models node templates.
//
// Why are nodes immutable?
//
// A node template is shared by all of its instances and by every subgraph
// built for them during one run. Construction through NewNode computes the
// derived data (capabilities, the operation index) exactly once, after which
// the template is only read.
package model

import "slices"

// Node is a node template: the declaration every instance of the node is
// created from.
type Node struct {
	// ID is the template name, unique within a deployment.
	ID string
	// TypeHierarchy lists the node's types from the most general to the most
	// specific.
	TypeHierarchy []string
	// Operations are the interface operations the node declares.
	Operations Operations
	// Properties are the static template properties.
	Properties map[string]any
	// Relationships are the templates new instances are connected with.
	Relationships []RelationshipTemplate

	capabilities CapabilitySet
}

// NewNode constructs a node template and derives its capabilities.
func NewNode(id string, typeHierarchy []string, ops []Operation, properties map[string]any, rels ...RelationshipTemplate) *Node {
	if properties == nil {
		properties = map[string]any{}
	}
	return &Node{
		ID:            id,
		TypeHierarchy: slices.Clone(typeHierarchy),
		Operations:    NewOperations(ops...),
		Properties:    properties,
		Relationships: rels,
		capabilities:  capabilitiesOf(typeHierarchy),
	}
}

// Is reports whether typeName appears anywhere in the node's type hierarchy.
func (n *Node) Is(typeName string) bool {
	return slices.Contains(n.TypeHierarchy, typeName)
}

// Has reports whether the node has capability c.
func (n *Node) Has(c Capability) bool {
	return n.capabilities.Has(c)
}

// Property returns a static property by key.
func (n *Node) Property(key string) (any, bool) {
	v, ok := n.Properties[key]
	return v, ok
}
