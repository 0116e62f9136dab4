package testutil

import (
	"testing"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/task"
	"github.com/stretchr/testify/require"
)

// Names returns the display names of tasks in order.
func Names(tasks []*task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name())
	}
	return out
}

// FindTask returns the first task of g whose display name is name.
func FindTask(t *testing.T, g *dag.Graph, instanceID, name string) *task.Task {
	t.Helper()
	for _, tk := range g.Tasks() {
		if tk.InstanceID() == instanceID && tk.Name() == name {
			return tk
		}
	}
	require.Failf(t, "task not found", "no task %q on instance %q", name, instanceID)
	return nil
}

// RequireBefore asserts that b transitively depends on a in the plan of g.
func RequireBefore(t *testing.T, g *dag.Graph, a, b *task.Task) {
	t.Helper()
	require.True(t, g.Plan().DependsOn(b.ID(), a.ID()), "expected %s to run before %s", a, b)
}
