package linker

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
	"github.com/specialistvlad/instancegraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	g    *dag.Graph
	subs map[string]*dag.Subgraph
	web  *model.NodeInstance
	db   *model.NodeInstance
	// configure, migrate and start run in this order on db.
	configure, migrate, start *task.Task
}

func newFixture(t *testing.T, rels ...model.Relationship) *fixture {
	t.Helper()
	dbNode := testutil.Node("db", testutil.Ops(
		"cloudify.interfaces.lifecycle.configure",
		"db.migrate",
		"cloudify.interfaces.lifecycle.start",
	)...)
	f := &fixture{
		g:   dag.New(),
		web: testutil.Instance("web_1", testutil.Node("web"), model.StateUninitialized, rels...),
		db:  testutil.Instance("db_1", dbNode, model.StateUninitialized),
	}
	f.configure = f.g.Operation(f.db, "cloudify.interfaces.lifecycle.configure", nil)
	f.migrate = f.g.Operation(f.db, "db.migrate", nil)
	f.start = f.g.Operation(f.db, "cloudify.interfaces.lifecycle.start", nil)

	webSub := f.g.Subgraph("web_1")
	require.NoError(t, webSub.Add(f.g.Event(f.web, "web")))
	dbSub := f.g.Subgraph("db_1")
	require.NoError(t, dbSub.Sequence().Add(f.configure, f.migrate, f.start).Err())

	f.subs = map[string]*dag.Subgraph{"web_1": webSub, "db_1": dbSub}
	return f
}

func (f *fixture) active() map[string]*model.NodeInstance {
	return model.Index([]*model.NodeInstance{f.web, f.db})
}

func TestLink_Direction(t *testing.T) {
	testCases := []struct {
		name    string
		install bool
	}{
		{name: "install: source waits for target", install: true},
		{name: "teardown: target waits for source", install: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx, _ := testutil.Context(t)
			f := newFixture(t, testutil.Rel("db_1", "", nil, nil))
			l := New(f.g, f.subs)

			// --- Act ---
			err := l.Link(ctx, []*model.NodeInstance{f.web, f.db}, f.active(), nil, tc.install, nil)

			// --- Assert ---
			require.NoError(t, err)
			web, db := f.subs["web_1"], f.subs["db_1"]
			assert.Equal(t, tc.install, f.g.HasDependency(web, db))
			assert.Equal(t, !tc.install, f.g.HasDependency(db, web))
			require.NoError(t, f.g.Validate())
		})
	}
}

func TestLink_SkipsUnknownTargets(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, testutil.Rel("cache_1", "", nil, nil))

	err := New(f.g, f.subs).Link(ctx, []*model.NodeInstance{f.web}, f.active(), nil, true, nil)

	require.NoError(t, err)
	assert.Empty(t, f.g.Dependencies(f.subs["web_1"]))
}

func TestLink_IntactTarget(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, testutil.Rel("db_1", "", nil, nil))
	active := model.Index([]*model.NodeInstance{f.web})
	intact := model.Index([]*model.NodeInstance{f.db})

	err := New(f.g, f.subs).Link(ctx, []*model.NodeInstance{f.web}, active, intact, true, nil)

	require.NoError(t, err)
	assert.True(t, f.g.HasDependency(f.subs["web_1"], f.subs["db_1"]))
}

func TestLink_OperationNarrowing(t *testing.T) {
	testCases := []struct {
		name      string
		operation string
		// expected returns the vertices web_1 must depend on.
		expected func(f *fixture) []dag.Vertex
	}{
		{
			name:      "short name narrows to the dependents of the operation",
			operation: "configure",
			expected:  func(f *fixture) []dag.Vertex { return []dag.Vertex{f.migrate} },
		},
		{
			name:      "full name narrows too",
			operation: "db.migrate",
			expected:  func(f *fixture) []dag.Vertex { return []dag.Vertex{f.start} },
		},
		{
			name:      "unknown operation falls back to the subgraph",
			operation: "backup",
			expected:  func(f *fixture) []dag.Vertex { return []dag.Vertex{f.subs["db_1"]} },
		},
		{
			name:      "operation without dependents falls back to the subgraph",
			operation: "start",
			expected:  func(f *fixture) []dag.Vertex { return []dag.Vertex{f.subs["db_1"]} },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx, _ := testutil.Context(t)
			f := newFixture(t, testutil.Rel("db_1", tc.operation, nil, nil))

			// --- Act ---
			err := New(f.g, f.subs).Link(ctx, []*model.NodeInstance{f.web}, f.active(), nil, true, nil)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.expected(f), f.g.Dependencies(f.subs["web_1"]))
		})
	}
}

func TestLink_NarrowingTeardown(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, testutil.Rel("db_1", "configure", nil, nil))

	err := New(f.g, f.subs).Link(ctx, []*model.NodeInstance{f.web}, f.active(), nil, false, nil)

	require.NoError(t, err)
	assert.True(t, f.g.HasDependency(f.migrate, f.subs["web_1"]))
	assert.False(t, f.g.HasDependency(f.subs["db_1"], f.subs["web_1"]))
}

func TestLink_Observer(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	f := newFixture(t,
		model.Relationship{Type: "first", TargetID: "db_1"},
		model.Relationship{Type: "second", TargetID: "db_1"},
	)

	var seen []string
	var added []*task.Task
	obs := DependencyObserverFunc(func(_ context.Context, source *model.NodeInstance, rel model.Relationship, seq *dag.Sequence) error {
		seen = append(seen, rel.Type)
		ev := f.g.Event(source, "linked "+rel.Type)
		added = append(added, ev)
		return seq.Add(ev).Err()
	})

	// --- Act ---
	err := New(f.g, f.subs).Link(ctx, []*model.NodeInstance{f.web}, f.active(), nil, false, obs)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, seen, "teardown visits relationships in reverse")
	require.Len(t, added, 2)
	assert.True(t, f.g.HasDependency(added[1], added[0]), "observer calls share one sequence")
	assert.True(t, f.subs["web_1"].Contains(added[0].ID()))
}

func TestLink_ObserverError(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, testutil.Rel("db_1", "", nil, nil))
	boom := errors.New("boom")

	err := New(f.g, f.subs).Link(ctx, []*model.NodeInstance{f.web}, f.active(), nil, true,
		DependencyObserverFunc(func(context.Context, *model.NodeInstance, model.Relationship, *dag.Sequence) error {
			return boom
		}))

	require.ErrorIs(t, err, boom)
}

func TestLink_MissingSubgraph(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, testutil.Rel("db_1", "", nil, nil))
	delete(f.subs, "db_1")

	err := New(f.g, f.subs).Link(ctx, []*model.NodeInstance{f.web}, f.active(), nil, true, nil)

	require.ErrorIs(t, err, ErrMissingSubgraph)
}

func TestLink_NarrowingOntoParallelDependents(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	g := dag.New()
	target := testutil.Instance("t_1", testutil.Node("t", testutil.Ops("cloudify.interfaces.lifecycle.configure", "b", "c")...), model.StateUninitialized)
	source := testutil.Instance("s_1", testutil.Node("s"), model.StateUninitialized, testutil.Rel("t_1", "configure", nil, nil))

	a := g.Operation(target, "cloudify.interfaces.lifecycle.configure", nil)
	b := g.Operation(target, "b", nil)
	c := g.Operation(target, "c", nil)
	targetSub := g.Subgraph("t_1")
	require.NoError(t, targetSub.Sequence().Add(a).Fork(b, c).Err())
	sourceSub := g.Subgraph("s_1")
	require.NoError(t, sourceSub.Add(g.Event(source, "s")))
	subs := map[string]*dag.Subgraph{"t_1": targetSub, "s_1": sourceSub}

	// --- Act ---
	err := New(g, subs).Link(ctx, []*model.NodeInstance{source}, model.Index([]*model.NodeInstance{source, target}), nil, true, nil)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []dag.Vertex{b, c}, g.Dependencies(sourceSub))
	assert.False(t, g.HasDependency(sourceSub, a))
	assert.False(t, g.HasDependency(sourceSub, targetSub))
}
