// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models the operations a node or relationship declares.
//
// Why track declaration separately from implementation?
//
// The builders trim operations that would do nothing. An operation can be
// absent from a node's interfaces, or present but bound to no implementation;
// both are no-ops, but only the declaration tells the agent teardown which
// installer generation a host was set up with.
package model

// Operation is a single interface operation declared by a node template or on
// one side of a relationship.
type Operation struct {
	// Name is the fully qualified operation name, for example
	// "cloudify.interfaces.lifecycle.stop".
	Name string
	// Implementation is the plugin task or script bound to the operation.
	Implementation string
	// Inputs are passed to the implementation as keyword arguments.
	Inputs map[string]any
}

// IsNoOp reports whether the operation is declared without an implementation.
func (o Operation) IsNoOp() bool {
	return o.Implementation == ""
}

// Operations is an ordered set of operations keyed by name.
type Operations struct {
	order []string
	byKey map[string]Operation
}

// NewOperations builds an ordered operation set. A later duplicate replaces
// the earlier definition but keeps its position.
func NewOperations(ops ...Operation) Operations {
	set := Operations{byKey: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		if _, seen := set.byKey[op.Name]; !seen {
			set.order = append(set.order, op.Name)
		}
		set.byKey[op.Name] = op
	}
	return set
}

// Get returns the named operation and whether it is declared.
func (s Operations) Get(name string) (Operation, bool) {
	op, ok := s.byKey[name]
	return op, ok
}

// Has reports whether the named operation is declared.
func (s Operations) Has(name string) bool {
	_, ok := s.byKey[name]
	return ok
}

// IsNoOp reports whether running the named operation would do nothing,
// either because it is undeclared or because it has no implementation.
func (s Operations) IsNoOp(name string) bool {
	op, ok := s.byKey[name]
	return !ok || op.IsNoOp()
}

// Names returns the operation names in declaration order.
func (s Operations) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of declared operations.
func (s Operations) Len() int {
	return len(s.order)
}
