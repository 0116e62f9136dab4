// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models relationships between node instances.
//
// Why do relationships carry their own operations?
//
// Relationship lifecycle operations (preconfigure, establish, unlink, ...) are
// declared per relationship type and run once on each side: the source
// operation on the source instance and the target operation on the target
// instance. Keeping both sides on the relationship lets the builders create the
// pair without looking anything up.
package model

// OperationProperty is the relationship property that scopes a dependency to a
// single lifecycle operation of the target.
const OperationProperty = "operation"

// RelationshipTemplate is the node-level declaration instances are connected
// by.
type RelationshipTemplate struct {
	Type             string
	TargetNodeID     string
	Properties       map[string]any
	SourceOperations Operations
	TargetOperations Operations
}

// Relationship is a directed edge from one node instance (the owner) to a
// target instance.
type Relationship struct {
	// Type is the relationship type name.
	Type string
	// TargetID is the id of the target node instance.
	TargetID string
	// Properties are the relationship properties.
	Properties       map[string]any
	SourceOperations Operations
	TargetOperations Operations
}

// Instantiate connects a template to one concrete target instance.
func (t RelationshipTemplate) Instantiate(targetID string) Relationship {
	return Relationship{
		Type:             t.Type,
		TargetID:         targetID,
		Properties:       t.Properties,
		SourceOperations: t.SourceOperations,
		TargetOperations: t.TargetOperations,
	}
}

// Operation returns the lifecycle operation this relationship is scoped to,
// if the "operation" property is set to a non-empty string.
func (r Relationship) Operation() (string, bool) {
	raw, ok := r.Properties[OperationProperty]
	if !ok {
		return "", false
	}
	op, ok := raw.(string)
	if !ok || op == "" {
		return "", false
	}
	return op, true
}
