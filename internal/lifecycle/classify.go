package lifecycle

import "github.com/specialistvlad/instancegraph/internal/model"

// Classification records which teardown gates apply to an instance.
type Classification struct {
	MidStart  bool
	MidCreate bool
}

// Resolved reports whether the instance needs no teardown work at all.
func (c Classification) Resolved() bool {
	return !c.MidStart && !c.MidCreate
}

// Force returns a classification with both gates open, used when tearing an
// instance down regardless of its recorded state.
func Force() Classification {
	return Classification{MidStart: true, MidCreate: true}
}

// IsMidStart reports whether s lies between the start of creation and the
// end of starting.
func IsMidStart(s model.State) bool {
	switch s {
	case model.StateCreating, model.StateConfiguring, model.StateStarting:
		return true
	}
	return false
}

// IsMidCreate reports whether s lies between the start of creation and the
// end of configuration.
func IsMidCreate(s model.State) bool {
	switch s {
	case model.StateCreating, model.StateConfiguring:
		return true
	}
	return false
}

// Classify evaluates both gates for inst.
func Classify(inst *model.NodeInstance) Classification {
	return Classification{
		MidStart:  IsMidStart(inst.State),
		MidCreate: IsMidCreate(inst.State),
	}
}
