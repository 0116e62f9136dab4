// Package task defines the leaf units of work an execution graph is made of.
//
// A task only describes work. Building a graph never runs anything; the
// scheduler that receives the graph decides when and how each task is
// dispatched.
package task

import (
	"fmt"
	"maps"
	"strings"

	"github.com/specialistvlad/instancegraph/internal/model"
)

// Kind distinguishes the three task forms.
type Kind int

const (
	// KindOperation runs an interface operation on a node instance.
	KindOperation Kind = iota
	// KindEvent sends an informational event.
	KindEvent
	// KindSetState records a new lifecycle state for an instance.
	KindSetState
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindOperation:
		return "operation"
	case KindEvent:
		return "event"
	case KindSetState:
		return "set_state"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Side is the end of a relationship an operation runs on.
type Side string

const (
	SideNone   Side = ""
	SideSource Side = "source"
	SideTarget Side = "target"
)

// Task is an immutable description of one unit of work.
type Task struct {
	id         string
	kind       Kind
	instanceID string
	nodeID     string
	operation  string
	kwargs     map[string]any
	message    string
	state      model.State
	noop       bool
	side       Side
	relatedID  string
}

// NewOperation describes running the named operation on inst. Declared
// inputs are merged under kwargs, with kwargs taking precedence.
func NewOperation(id string, inst *model.NodeInstance, name string, kwargs map[string]any) *Task {
	op, declared := inst.Node.Operations.Get(name)
	args := make(map[string]any, len(op.Inputs)+len(kwargs))
	maps.Copy(args, op.Inputs)
	maps.Copy(args, kwargs)
	return &Task{
		id:         id,
		kind:       KindOperation,
		instanceID: inst.ID,
		nodeID:     inst.NodeID(),
		operation:  name,
		kwargs:     args,
		noop:       !declared || op.IsNoOp(),
	}
}

// NewRelationshipOperation describes running one side of a relationship
// operation. Source operations run on inst, target operations on the
// relationship target; both originate from inst's node.
func NewRelationshipOperation(id string, inst *model.NodeInstance, rel model.Relationship, side Side, name string) *Task {
	ops := rel.SourceOperations
	runsOn, related := inst.ID, rel.TargetID
	if side == SideTarget {
		ops = rel.TargetOperations
		runsOn, related = rel.TargetID, inst.ID
	}
	op, declared := ops.Get(name)
	return &Task{
		id:         id,
		kind:       KindOperation,
		instanceID: runsOn,
		nodeID:     inst.NodeID(),
		operation:  name,
		kwargs:     maps.Clone(op.Inputs),
		noop:       !declared || op.IsNoOp(),
		side:       side,
		relatedID:  related,
	}
}

// NewEvent describes sending message for inst.
func NewEvent(id string, inst *model.NodeInstance, message string) *Task {
	return &Task{
		id:         id,
		kind:       KindEvent,
		instanceID: inst.ID,
		nodeID:     inst.NodeID(),
		message:    message,
	}
}

// NewSetState describes recording state for inst.
func NewSetState(id string, inst *model.NodeInstance, state model.State) *Task {
	return &Task{
		id:         id,
		kind:       KindSetState,
		instanceID: inst.ID,
		nodeID:     inst.NodeID(),
		state:      state,
	}
}

func (t *Task) ID() string         { return t.id }
func (t *Task) Kind() Kind         { return t.kind }
func (t *Task) InstanceID() string { return t.instanceID }
func (t *Task) NodeID() string     { return t.nodeID }
func (t *Task) Operation() string  { return t.operation }
func (t *Task) Message() string    { return t.message }
func (t *Task) State() model.State { return t.state }
func (t *Task) Side() Side         { return t.side }

// RelatedInstanceID returns the other end of a relationship operation.
func (t *Task) RelatedInstanceID() string { return t.relatedID }

// IsNoOp reports whether dispatching the task would do nothing.
func (t *Task) IsNoOp() bool { return t.noop }

// Kwargs returns a copy of the operation arguments.
func (t *Task) Kwargs() map[string]any { return maps.Clone(t.kwargs) }

// MatchesOperation reports whether the task runs op, given either as a full
// operation name or as its final dotted segment(s).
func (t *Task) MatchesOperation(op string) bool {
	if t.kind != KindOperation || op == "" {
		return false
	}
	return t.operation == op || strings.HasSuffix(t.operation, "."+op)
}

// Name is a short human readable label.
func (t *Task) Name() string {
	switch t.kind {
	case KindOperation:
		if t.side != SideNone {
			return fmt.Sprintf("%s (%s)", t.operation, t.side)
		}
		return t.operation
	case KindEvent:
		return "event: " + t.message
	default:
		return "set_state: " + string(t.state)
	}
}

// String implements fmt.Stringer.
func (t *Task) String() string {
	return fmt.Sprintf("%s[%s] %s", t.id, t.instanceID, t.Name())
}
