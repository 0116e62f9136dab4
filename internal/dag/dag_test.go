package dag

import (
	"testing"

	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstance(id string) *model.NodeInstance {
	node := model.NewNode("n", nil, []model.Operation{
		{Name: "cloudify.interfaces.lifecycle.configure", Implementation: "x"},
	}, nil)
	return &model.NodeInstance{ID: id, Node: node, State: model.StateStarted}
}

func ids[V Vertex](vs []V) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID())
	}
	return out
}

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotEmpty(t, g.ID())
	assert.Empty(t, g.Tasks())
	assert.NotEqual(t, g.ID(), New().ID(), "every graph is a new generation")
}

func TestTaskIDsAreDeterministic(t *testing.T) {
	build := func() []string {
		g := New()
		inst := newInstance("a_1")
		s := g.Subgraph("a_1")
		s.Sequence().Add(g.Event(inst, "one"), g.SetState(inst, model.StateStopping))
		return ids(g.Tasks())
	}
	assert.Equal(t, []string{"t0001", "t0002"}, build())
	assert.Equal(t, build(), build())
}

func TestTaskIDsDoNotCollideWithSubgraphs(t *testing.T) {
	t.Run("instance subgraph named like a task", func(t *testing.T) {
		// --- Arrange ---
		g := New()
		inst := newInstance("t0001")
		sub := g.Subgraph(inst.ID).ForInstance(inst.ID)

		// --- Act ---
		ev := g.Event(inst, "one")
		require.NoError(t, sub.Add(ev))

		// --- Assert ---
		assert.Equal(t, "t0002", ev.ID())
		assert.Equal(t, sub, g.Vertex("t0001"))
		assert.Equal(t, ev, g.Vertex("t0002"))
	})

	t.Run("subgraph created after the task id was issued", func(t *testing.T) {
		// --- Arrange ---
		g := New()
		inst := newInstance("t0001")
		ev := g.Event(inst, "one")

		// --- Act ---
		sub := g.Subgraph(inst.ID).ForInstance(inst.ID)
		require.NoError(t, sub.Add(ev))

		// --- Assert ---
		assert.Equal(t, "t0001#2", sub.ID())
		assert.Equal(t, "t0001", sub.InstanceID())
		assert.Equal(t, ev, g.Vertex("t0001"))
		assert.Equal(t, sub, g.Vertex("t0001#2"))
	})
}

func TestSubgraphNames(t *testing.T) {
	g := New()
	a := g.Subgraph("a")
	a2 := g.Subgraph("a")
	child := a.ForInstance("a_1").Subgraph("unlink")

	assert.Equal(t, "a", a.ID())
	assert.Equal(t, "a#2", a2.ID())
	assert.Equal(t, "a/unlink", child.ID())
	assert.Equal(t, "a_1", child.InstanceID())
	assert.Equal(t, a, child.Parent())
	assert.Equal(t, []string{"a", "a#2"}, ids(g.Subgraphs()))
}

func TestSequence(t *testing.T) {
	g := New()
	inst := newInstance("a_1")
	s := g.Subgraph("a_1")

	first := g.Event(inst, "first")
	left := g.Event(inst, "left")
	right := g.Event(inst, "right")
	last := g.Event(inst, "last")

	seq := s.Sequence().Add(first).Fork(left, right).Fork().Add(last)
	require.NoError(t, seq.Err())

	assert.Equal(t, []string{first.ID()}, ids(g.Dependencies(left)))
	assert.Equal(t, []string{first.ID()}, ids(g.Dependencies(right)))
	assert.Equal(t, []string{left.ID(), right.ID()}, ids(g.Dependencies(last)))
	assert.Equal(t, []string{left.ID(), right.ID()}, ids(g.Dependents(first)))
	assert.Equal(t, s, g.Owner(last.ID()))
}

func TestSequenceRejectsForeignMembers(t *testing.T) {
	g := New()
	inst := newInstance("a_1")
	a := g.Subgraph("a")
	b := g.Subgraph("b")
	nested := b.Subgraph("inner")

	ev := g.Event(inst, "x")
	require.NoError(t, a.Add(ev))

	assert.Error(t, b.Sequence().Add(ev).Err(), "task already owned by a")
	assert.Error(t, a.Sequence().Add(nested).Err(), "subgraph nested elsewhere")
	assert.NoError(t, b.Sequence().Add(nested).Err())
}

func TestAddDependency(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		a := g.Subgraph("a")
		b := g.Subgraph("b")

		require.NoError(t, g.AddDependency(b, a))
		require.NoError(t, g.AddDependency(b, a), "idempotent")

		assert.True(t, g.HasDependency(b, a))
		assert.Equal(t, []string{"a"}, ids(g.Dependencies(b)))
		assert.Equal(t, []string{"b"}, ids(g.Dependents(a)))
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		a := g.Subgraph("a")
		loose := g.Event(newInstance("x"), "never added")

		assert.ErrorIs(t, g.AddDependency(a, loose), ErrUnknownVertex)
		assert.ErrorIs(t, g.AddDependency(loose, a), ErrUnknownVertex)
		assert.ErrorIs(t, g.AddDependency(a, a), ErrSelfDependency)
	})
}

func TestPlan(t *testing.T) {
	g := New()
	a1, b1 := newInstance("a_1"), newInstance("b_1")

	a := g.Subgraph("a_1").ForInstance("a_1")
	aFirst, aLast := g.Event(a1, "a first"), g.Event(a1, "a last")
	a.Sequence().Add(aFirst, aLast)

	b := g.Subgraph("b_1").ForInstance("b_1")
	rel := b.Subgraph("rel")
	relTask := g.Event(b1, "rel")
	rel.Sequence().Add(relTask)
	bFirst := g.Event(b1, "b first")
	b.Sequence().Add(bFirst, rel)

	require.NoError(t, g.AddDependency(b, a))

	p := g.Plan()
	require.Len(t, p.Steps, 4)

	step, ok := p.Step(bFirst.ID())
	require.True(t, ok)
	assert.Equal(t, []string{aFirst.ID(), aLast.ID()}, step.Prerequisites, "inherits the subgraph edge")

	step, _ = p.Step(relTask.ID())
	assert.Equal(t, []string{aFirst.ID(), aLast.ID(), bFirst.ID()}, step.Prerequisites, "inherits edges of every ancestor")

	assert.True(t, p.DependsOn(relTask.ID(), aFirst.ID()))
	assert.False(t, p.DependsOn(aFirst.ID(), relTask.ID()))
	assert.ElementsMatch(t, []string{bFirst.ID(), relTask.ID()}, p.Dependents(aLast.ID()))
	assert.NoError(t, p.DetectCycles())
}

func TestPlanThroughEmptySubgraph(t *testing.T) {
	g := New()
	a1, c1 := newInstance("a_1"), newInstance("c_1")

	a := g.Subgraph("a_1")
	aTask := g.Event(a1, "a")
	require.NoError(t, a.Add(aTask))
	stub := g.Subgraph("stub_b_1")
	c := g.Subgraph("c_1")
	cTask := g.Event(c1, "c")
	require.NoError(t, c.Add(cTask))

	require.NoError(t, g.AddDependency(stub, a))
	require.NoError(t, g.AddDependency(c, stub))

	step, _ := g.Plan().Step(cTask.ID())
	assert.Equal(t, []string{aTask.ID()}, step.Prerequisites)
}

func TestDetectCycles(t *testing.T) {
	chain := func(n int) (*Graph, []*Subgraph) {
		g := New()
		var subs []*Subgraph
		for i := range n {
			inst := newInstance(string(rune('a' + i)))
			s := g.Subgraph(inst.ID)
			require.NoError(t, s.Add(g.Event(inst, "x")))
			subs = append(subs, s)
		}
		return g, subs
	}

	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().Validate())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g, s := chain(4)
		require.NoError(t, g.AddDependency(s[1], s[0]))
		require.NoError(t, g.AddDependency(s[2], s[1]))
		require.NoError(t, g.AddDependency(s[2], s[0])) // Transitive edge
		require.NoError(t, g.AddDependency(s[3], s[2]))
		assert.NoError(t, g.Validate())
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g, s := chain(2)
		require.NoError(t, g.AddDependency(s[1], s[0]))
		require.NoError(t, g.AddDependency(s[0], s[1]))
		assert.ErrorIs(t, g.Validate(), ErrCycle)
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g, s := chain(5)
		require.NoError(t, g.AddDependency(s[1], s[0]))
		require.NoError(t, g.AddDependency(s[3], s[2]))
		require.NoError(t, g.AddDependency(s[4], s[3]))
		require.NoError(t, g.AddDependency(s[3], s[4])) // Cycle
		err := g.Validate()
		assert.ErrorIs(t, err, ErrCycle)
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestDescribe(t *testing.T) {
	g := New()
	inst := newInstance("a_1")
	a := g.Subgraph("a_1").ForInstance("a_1")
	op := g.Operation(inst, "cloudify.interfaces.lifecycle.configure", nil)
	inner := a.Subgraph("rel")
	require.NoError(t, inner.Add(g.Event(inst, "inner")))
	require.NoError(t, a.Sequence().Add(op, inner).Err())

	d := g.Describe()
	assert.Equal(t, g.ID(), d.ID)
	require.Len(t, d.Subgraphs, 1)
	sd := d.Subgraphs[0]
	assert.Equal(t, "a_1", sd.Instance)
	require.Len(t, sd.Tasks, 1)
	assert.Equal(t, task.KindOperation.String(), sd.Tasks[0].Kind)
	require.Len(t, sd.Subgraphs, 1)
	assert.Equal(t, []string{op.ID()}, sd.Subgraphs[0].DependsOn)
}
