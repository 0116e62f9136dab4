// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file derives capabilities from a node's type hierarchy.
//
// Why capabilities instead of type-name checks?
//
// Several teardown steps only apply to a certain kind of node (a compute host
// runs an agent that must be stopped before the host goes away). Scanning the
// type hierarchy for a magic name at every decision point spreads that
// knowledge across the builders. A node computes its capability set once, when
// it is constructed, and the builders ask for the capability by name.
package model

// Capability is a behavioural trait a node inherits through its type
// hierarchy.
type Capability string

const (
	// CapabilityComputeHost marks nodes that host an agent and other nodes.
	CapabilityComputeHost Capability = "compute-host"
)

// ComputeNodeType is the base type every compute host derives from.
const ComputeNodeType = "cloudify.nodes.Compute"

var capabilityByType = map[string]Capability{
	ComputeNodeType: CapabilityComputeHost,
}

// CapabilitySet is the set of capabilities a node has.
type CapabilitySet map[Capability]struct{}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func capabilitiesOf(typeHierarchy []string) CapabilitySet {
	set := make(CapabilitySet)
	for _, typeName := range typeHierarchy {
		if c, ok := capabilityByType[typeName]; ok {
			set[c] = struct{}{}
		}
	}
	return set
}
