package scheduler

import (
	"testing"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskIDs(ts []*task.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID())
	}
	return out
}

// diamond builds a -> (b, c) -> d inside one subgraph.
func diamond(t *testing.T) (*dag.Plan, [4]*task.Task) {
	t.Helper()
	inst := &model.NodeInstance{ID: "x_1", Node: model.NewNode("x", nil, nil, nil)}
	g := dag.New()
	a, b, c, d := g.Event(inst, "a"), g.Event(inst, "b"), g.Event(inst, "c"), g.Event(inst, "d")
	require.NoError(t, g.Subgraph("x_1").Sequence().Add(a).Fork(b, c).Add(d).Err())
	return g.Plan(), [4]*task.Task{a, b, c, d}
}

func TestDefaultScheduler(t *testing.T) {
	p, ts := diamond(t)
	a, b, c, d := ts[0], ts[1], ts[2], ts[3]
	s := New(p)

	assert.Equal(t, 4, s.Outstanding())
	assert.Equal(t, []string{a.ID()}, taskIDs(s.Initial()))
	assert.Empty(t, s.Initial(), "tasks are handed out once")

	require.True(t, s.Start(a.ID()))
	assert.False(t, s.Start(a.ID()), "already running")
	assert.Equal(t, []string{b.ID(), c.ID()}, taskIDs(s.Finish(a.ID())))

	require.True(t, s.Start(b.ID()))
	assert.Empty(t, s.Finish(b.ID()), "d still waits on c")

	require.True(t, s.Start(c.ID()))
	assert.Equal(t, []string{d.ID()}, taskIDs(s.Finish(c.ID())))

	require.True(t, s.Start(d.ID()))
	s.Finish(d.ID())
	assert.Equal(t, 0, s.Outstanding())
}

func TestDiscard(t *testing.T) {
	p, ts := diamond(t)
	a, b, c, d := ts[0], ts[1], ts[2], ts[3]
	s := New(p)

	s.Initial()
	require.True(t, s.Start(a.ID()))
	s.Finish(a.ID())
	require.True(t, s.Start(b.ID()))

	dropped, ready := s.Discard([]string{b.ID(), c.ID()})
	assert.Equal(t, []string{c.ID()}, dropped, "running tasks are not dropped")
	assert.Empty(t, ready)
	assert.False(t, s.Start(c.ID()), "discarded while queued")

	assert.Equal(t, []string{d.ID()}, taskIDs(s.Finish(b.ID())))
	assert.Equal(t, 1, s.Outstanding())
}
