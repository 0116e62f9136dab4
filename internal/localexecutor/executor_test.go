package localexecutor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/policy"
	"github.com/specialistvlad/instancegraph/internal/task"
	"github.com/specialistvlad/instancegraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func instance() *model.NodeInstance {
	node := testutil.Node("web", testutil.Ops("a", "b", "c", "d")...)
	return testutil.Instance("web_1", node, model.StateStarted)
}

// TestExecute_ParallelDiamond verifies that independent branches overlap and
// that the join waits for both of them.
func TestExecute_ParallelDiamond(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	inst := instance()
	g := dag.New()
	sub := g.Subgraph(inst.ID)
	a := g.Operation(inst, "a", nil)
	b := g.Operation(inst, "b", nil)
	c := g.Operation(inst, "c", nil)
	d := g.Operation(inst, "d", nil)
	require.NoError(t, sub.Sequence().Add(a).Fork(b, c).Add(d).Err())

	rec := testutil.NewRecordingDispatcher(50 * time.Millisecond)
	exec := New(rec, 4)

	// --- Act ---
	report, err := exec.Execute(ctx, g)

	// --- Assert ---
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID(), b.ID(), c.ID(), d.ID()}, report.Completed())
	assert.False(t, report.IsDegraded())

	ra, _ := rec.Execution(a.ID())
	rb, _ := rec.Execution(b.ID())
	rc, _ := rec.Execution(c.ID())
	rd, _ := rec.Execution(d.ID())
	require.NotNil(t, ra)
	require.NotNil(t, rd)

	assert.False(t, rb.Start.Before(ra.End), "b started before a finished")
	assert.False(t, rc.Start.Before(ra.End), "c started before a finished")
	assert.True(t, rb.Start.Before(rc.End) && rc.Start.Before(rb.End), "b and c did not overlap")
	assert.False(t, rd.Start.Before(rb.End), "d started before b finished")
	assert.False(t, rd.Start.Before(rc.End), "d started before c finished")
}

func TestExecute_DispatchesEveryTaskKind(t *testing.T) {
	ctx, _ := testutil.Context(t)
	inst := instance()
	g := dag.New()
	sub := g.Subgraph(inst.ID)
	require.NoError(t, sub.Sequence().
		Add(g.SetState(inst, model.StateStopping)).
		Add(g.Event(inst, "Stopping node instance")).
		Add(g.Operation(inst, "a", nil)).
		Add(g.Operation(inst, "undeclared", nil)).
		Err())

	rec := testutil.NewRecordingDispatcher(0)
	report, err := New(rec, 1).Execute(ctx, g)

	require.NoError(t, err)
	assert.Len(t, report.Completed(), 4)
	assert.Equal(t, []string{"stopping"}, rec.States(inst.ID))
	assert.Equal(t, []string{"Stopping node instance"}, rec.Events(inst.ID))
	assert.Equal(t, []string{"a"}, rec.Operations(inst.ID), "no-op operations are never dispatched")
}

func TestExecute_IgnoredFailure(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	inst := instance()
	g := dag.New()
	sub := g.Subgraph(inst.ID).ForInstance(inst.ID)
	a := g.Operation(inst, "a", nil)
	b := g.Operation(inst, "b", nil)
	require.NoError(t, sub.Sequence().Add(a, b).Err())
	policy.IgnoreFailures(g, sub)

	rec := testutil.NewRecordingDispatcher(0)
	rec.FailOperation(inst.ID, "a", errBoom)

	// --- Act ---
	report, err := New(rec, 2).Execute(ctx, g)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID()}, report.Ignored())
	assert.Equal(t, []string{b.ID()}, report.Completed())
	assert.Equal(t, map[string]string{sub.ID(): a.ID()}, report.Degraded())
	assert.Equal(t, []string{"a", "b"}, rec.Operations(inst.ID))

	events := rec.Events(inst.ID)
	require.Len(t, events, 1)
	assert.Contains(t, events[0], "ignoring")
	assert.Contains(t, events[0], "boom")
}

func TestExecute_AbsorbedRelationshipFailure(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	inst := instance()
	g := dag.New()
	sub := g.Subgraph(inst.ID).ForInstance(inst.ID)
	rels := sub.Subgraph("unlink")
	rels.SetHandler(policy.RelationshipAbsorber{})
	first := g.Operation(inst, "a", nil)
	second := g.Operation(inst, "b", nil)
	require.NoError(t, rels.Sequence().Add(first, second).Err())
	after := g.Operation(inst, "c", nil)
	require.NoError(t, sub.Sequence().Add(rels, after).Err())

	rec := testutil.NewRecordingDispatcher(0)
	rec.FailOperation(inst.ID, "a", errBoom)

	// --- Act ---
	report, err := New(rec, 2).Execute(ctx, g)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, rec.Operations(inst.ID))
	assert.Equal(t, []string{second.ID()}, report.Discarded())
	assert.Equal(t, []string{after.ID()}, report.Completed())
	assert.Equal(t, map[string]string{sub.ID(): first.ID()}, report.Degraded())
}

func TestExecute_UnhandledFailure(t *testing.T) {
	ctx, logs := testutil.Context(t)
	inst := instance()
	g := dag.New()
	a := g.Operation(inst, "a", nil)
	b := g.Operation(inst, "b", nil)
	require.NoError(t, g.Subgraph(inst.ID).Sequence().Add(a, b).Err())

	rec := testutil.NewRecordingDispatcher(0)
	rec.FailOperation(inst.ID, "a", errBoom)

	report, err := New(rec, 2).Execute(ctx, g)

	require.Error(t, err)
	require.NotNil(t, report)
	var taskErr *executor.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, a.ID(), taskErr.TaskID)
	assert.Equal(t, inst.ID, taskErr.InstanceID)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"a"}, rec.Operations(inst.ID), "dependents of a failed task must not run")
	assert.Contains(t, logs.String(), "Task failure was not absorbed")
}

func TestExecute_Cancellation(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inst := instance()
	g := dag.New()
	require.NoError(t, g.Subgraph(inst.ID).Sequence().
		Add(g.Operation(inst, "a", nil)).
		Add(g.Operation(inst, "b", nil)).
		Err())

	rec := testutil.NewRecordingDispatcher(0)
	rec.OnExecute(func(_ context.Context, t *task.Task) {
		if t.Operation() == "a" {
			cancel()
		}
	})

	_, err := New(rec, 1).Execute(ctx, g)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, rec.Operations(inst.ID))
}

func TestExecute_RejectsCycles(t *testing.T) {
	ctx, _ := testutil.Context(t)
	inst := instance()
	g := dag.New()
	a := g.Operation(inst, "a", nil)
	b := g.Operation(inst, "b", nil)
	require.NoError(t, g.Subgraph(inst.ID).Sequence().Add(a, b).Err())
	require.NoError(t, g.AddDependency(a, b))

	_, err := New(testutil.NewRecordingDispatcher(0), 2).Execute(ctx, g)

	require.ErrorIs(t, err, dag.ErrCycle)
}

func TestExecute_EmptyGraph(t *testing.T) {
	ctx, _ := testutil.Context(t)

	report, err := New(testutil.NewRecordingDispatcher(0), 0).Execute(ctx, dag.New())

	require.NoError(t, err)
	assert.Empty(t, report.Completed())
}
