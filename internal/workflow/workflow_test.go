package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/instancegraph/internal/builder"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/lifecycle"
	"github.com/specialistvlad/instancegraph/internal/localexecutor"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/policy"
	"github.com/specialistvlad/instancegraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var lifecycleOps = testutil.Ops(builder.OpCreate, builder.OpConfigure, builder.OpStart, builder.OpStop, builder.OpDelete)

// topology returns db_1 and web_1, where web_1 connects to db_1 and
// declares unlink and establish on both ends.
func topology(webState, dbState model.State) (web, db *model.NodeInstance) {
	rel := testutil.Rel("db_1", "",
		[]string{builder.RelUnlink, builder.RelEstablish},
		[]string{builder.RelUnlink, builder.RelEstablish},
	)
	db = testutil.Instance("db_1", testutil.Node("db", lifecycleOps...), dbState)
	web = testutil.Instance("web_1", testutil.Node("web", lifecycleOps...), webState, rel)
	return web, db
}

func subgraph(t *testing.T, g *dag.Graph, id string) *dag.Subgraph {
	t.Helper()
	sub, ok := g.SubgraphByID(id)
	require.True(t, ok, "subgraph %s not found", id)
	return sub
}

func TestBuildRollbackGraph(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	web, db := topology(model.StateCreating, model.StateStarted)

	// --- Act ---
	g, err := BuildRollbackGraph(ctx, []*model.NodeInstance{web}, []*model.NodeInstance{db}, false)

	// --- Assert ---
	require.NoError(t, err)
	webSub := subgraph(t, g, "web_1")
	stub := subgraph(t, g, StubPrefix+"db_1")

	assert.True(t, stub.Empty(), "intact targets only anchor edges")
	assert.True(t, g.HasDependency(stub, webSub), "teardown: the target waits for the source")

	unlinkTarget := testutil.FindTask(t, g, "db_1", builder.RelUnlink+" (target)")
	assert.True(t, webSub.Contains(unlinkTarget.ID()), "the source's own rollback unlinks from its target")
	assert.Equal(t, builder.MsgRollbacked, webSub.Tasks()[len(webSub.Tasks())-1].Message())
}

func TestBuildUninstallGraph_IntactSource(t *testing.T) {
	testCases := []struct {
		name          string
		ignoreFailure bool
	}{
		{name: "failures surface", ignoreFailure: false},
		{name: "failures ignored on request", ignoreFailure: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx, _ := testutil.Context(t)
			web, db := topology(model.StateStarted, model.StateStarted)

			// --- Act ---
			g, err := BuildUninstallGraph(ctx, []*model.NodeInstance{db}, []*model.NodeInstance{web}, tc.ignoreFailure)

			// --- Assert ---
			require.NoError(t, err)
			dbSub := subgraph(t, g, "db_1")
			stub := subgraph(t, g, StubPrefix+"web_1")

			assert.True(t, g.HasDependency(dbSub, stub), "db teardown waits for the intact source to unlink")
			tasks := stub.Tasks()
			assert.Equal(t, []string{
				builder.RelUnlink + " (source)",
				builder.RelUnlink + " (target)",
			}, testutil.Names(tasks))
			for _, tk := range tasks {
				if tc.ignoreFailure {
					assert.IsType(t, policy.IgnoreHandler{}, g.TaskHandler(tk.ID()), "task %s", tk)
				} else {
					assert.Nil(t, g.TaskHandler(tk.ID()), "task %s", tk)
				}
			}

			dbDelete := testutil.FindTask(t, g, "db_1", builder.OpDelete)
			testutil.RequireBefore(t, g, tasks[1], dbDelete)
		})
	}
}

func TestBuildRollbackGraph_IntactUnlinkFailure(t *testing.T) {
	errUnlink := errors.New("unlink failed")

	run := func(t *testing.T, ignoreFailure bool) (*executor.Report, *testutil.RecordingDispatcher, error) {
		t.Helper()
		ctx, _ := testutil.Context(t)
		web, db := topology(model.StateStarted, model.StateCreating)
		g, err := BuildRollbackGraph(ctx, []*model.NodeInstance{db}, []*model.NodeInstance{web}, ignoreFailure)
		require.NoError(t, err)

		rec := testutil.NewRecordingDispatcher(0)
		rec.FailOperation("web_1", builder.RelUnlink, errUnlink)
		report, err := localexecutor.New(rec, 2).Execute(ctx, g)
		return report, rec, err
	}

	t.Run("failure stops the rollback", func(t *testing.T) {
		// --- Act ---
		report, rec, err := run(t, false)

		// --- Assert ---
		require.Error(t, err)
		assert.ErrorIs(t, err, errUnlink)
		assert.Empty(t, report.Ignored())
		assert.NotContains(t, rec.Operations("db_1"), builder.OpDelete)
	})

	t.Run("failure ignored on request", func(t *testing.T) {
		// --- Act ---
		report, rec, err := run(t, true)

		// --- Assert ---
		require.NoError(t, err)
		assert.Len(t, report.Ignored(), 1)
		assert.Contains(t, rec.Operations("db_1"), builder.OpDelete)
	})
}

func TestBuildInstallGraph(t *testing.T) {
	t.Run("added source waits for related target", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		web, db := topology(model.StateUninitialized, model.StateStarted)

		g, err := BuildInstallGraph(ctx, []*model.NodeInstance{web}, []*model.NodeInstance{db})

		require.NoError(t, err)
		assert.True(t, g.HasDependency(subgraph(t, g, "web_1"), subgraph(t, g, StubPrefix+"db_1")))
		assert.True(t, subgraph(t, g, StubPrefix+"db_1").Empty())
	})

	t.Run("related source establishes against the added target", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		web, db := topology(model.StateStarted, model.StateUninitialized)

		g, err := BuildInstallGraph(ctx, []*model.NodeInstance{db}, []*model.NodeInstance{web})

		require.NoError(t, err)
		stub := subgraph(t, g, StubPrefix+"web_1")
		assert.True(t, g.HasDependency(stub, subgraph(t, g, "db_1")))
		assert.Equal(t, []string{
			builder.RelEstablish + " (source)",
			builder.RelEstablish + " (target)",
		}, testutil.Names(stub.Tasks()))
		for _, tk := range stub.Tasks() {
			assert.Nil(t, g.TaskHandler(tk.ID()))
		}

		dbStarted := testutil.FindTask(t, g, "db_1", "event: "+builder.MsgStarted)
		testutil.RequireBefore(t, g, dbStarted, stub.Tasks()[0])
	})
}

func TestBuild_Deterministic(t *testing.T) {
	ctx, _ := testutil.Context(t)
	describe := func() dag.Description {
		web, db := topology(model.StateConfiguring, model.StateCreating)
		g, err := BuildRollbackGraph(ctx, []*model.NodeInstance{web, db}, nil, true)
		require.NoError(t, err)
		return g.Describe()
	}

	first, second := describe(), describe()
	require.NotEqual(t, first.ID, second.ID, "every build is a new graph generation")
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(dag.Description{}, "ID")); diff != "" {
		t.Errorf("graph shape differs between builds (-first +second):\n%s", diff)
	}
}

func TestBuild_RejectsOverlap(t *testing.T) {
	ctx, _ := testutil.Context(t)
	web, _ := topology(model.StateCreating, model.StateStarted)

	_, err := BuildRollbackGraph(ctx, []*model.NodeInstance{web}, []*model.NodeInstance{web}, false)

	require.ErrorContains(t, err, "both active and intact")
}

func TestFilterUnresolved(t *testing.T) {
	web, db := topology(model.StateStarting, model.StateStarted)

	got := FilterUnresolved([]*model.NodeInstance{web, db}, lifecycle.Filter{})

	assert.Equal(t, []*model.NodeInstance{web}, got)
}

func TestBuild_Tracing(t *testing.T) {
	// --- Arrange ---
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	ctx, _ := testutil.Context(t)
	web, db := topology(model.StateCreating, model.StateStarted)

	// --- Act ---
	_, err := BuildRollbackGraph(ctx, []*model.NodeInstance{web}, []*model.NodeInstance{db}, false)

	// --- Assert ---
	require.NoError(t, err)
	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "workflow.rollback")
}
