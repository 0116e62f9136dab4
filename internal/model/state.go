// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the lifecycle states a node instance moves through.
//
// Why a closed set of states?
//
// Every decision the rollback and teardown builders make is derived from the
// state recorded by the last, possibly interrupted, workflow. Parsing it into
// a closed enum at the boundary means the builders never have to reason about
// unknown strings.
package model

import "fmt"

// State is the lifecycle state of a node instance as recorded by the control
// plane.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateCreating      State = "creating"
	StateCreated       State = "created"
	StateConfiguring   State = "configuring"
	StateConfigured    State = "configured"
	StateStarting      State = "starting"
	StateStarted       State = "started"
	StateStopping      State = "stopping"
	StateStopped       State = "stopped"
	StateDeleting      State = "deleting"
	StateDeleted       State = "deleted"
)

var knownStates = map[State]struct{}{
	StateUninitialized: {},
	StateInitializing:  {},
	StateCreating:      {},
	StateCreated:       {},
	StateConfiguring:   {},
	StateConfigured:    {},
	StateStarting:      {},
	StateStarted:       {},
	StateStopping:      {},
	StateStopped:       {},
	StateDeleting:      {},
	StateDeleted:       {},
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	_, ok := knownStates[s]
	return ok
}

// ParseState converts a raw state string into a State. An empty string is
// read as StateUninitialized.
func ParseState(raw string) (State, error) {
	if raw == "" {
		return StateUninitialized, nil
	}
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown node instance state %q", raw)
	}
	return s, nil
}
