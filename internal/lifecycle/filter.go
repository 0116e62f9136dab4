package lifecycle

import (
	"slices"

	"github.com/specialistvlad/instancegraph/internal/model"
)

// Filter narrows a set of instances. Empty criteria match everything; when
// several are set an instance must match all of them.
type Filter struct {
	NodeIDs     []string
	InstanceIDs []string
	// TypeNames match when any of them appears anywhere in the node's type
	// hierarchy.
	TypeNames []string
}

// Match reports whether inst satisfies every non-empty criterion.
func (f Filter) Match(inst *model.NodeInstance) bool {
	if len(f.NodeIDs) > 0 && !slices.Contains(f.NodeIDs, inst.NodeID()) {
		return false
	}
	if len(f.InstanceIDs) > 0 && !slices.Contains(f.InstanceIDs, inst.ID) {
		return false
	}
	if len(f.TypeNames) > 0 && !slices.ContainsFunc(f.TypeNames, inst.Node.Is) {
		return false
	}
	return true
}

// FilterUnresolved returns the instances that match f and are in an
// unresolved state, in input order.
func FilterUnresolved(instances []*model.NodeInstance, f Filter) []*model.NodeInstance {
	var out []*model.NodeInstance
	for _, inst := range instances {
		if !IsMidStart(inst.State) {
			continue
		}
		if f.Match(inst) {
			out = append(out, inst)
		}
	}
	return out
}
