package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events    []string
	failed    map[string]string
	discarded []string
}

func newRecorder() *recorder {
	return &recorder{failed: map[string]string{}}
}

func (r *recorder) SendEvent(_ context.Context, instanceID, message string) error {
	r.events = append(r.events, instanceID+": "+message)
	return nil
}

func (r *recorder) MarkFailed(subgraphID, taskID string) { r.failed[subgraphID] = taskID }
func (r *recorder) Discard(subgraphID string)            { r.discarded = append(r.discarded, subgraphID) }

func fixture(t *testing.T) (*dag.Graph, *dag.Subgraph, *dag.Subgraph, *task.Task) {
	t.Helper()
	node := model.NewNode("web", nil, []model.Operation{{Name: "cloudify.interfaces.lifecycle.stop", Implementation: "x"}}, nil)
	inst := &model.NodeInstance{ID: "web_1", Node: node, State: model.StateStarting}

	g := dag.New()
	sub := g.Subgraph("web_1").ForInstance("web_1")
	rel := sub.Subgraph("unlink")
	require.NoError(t, rel.Add(g.Event(inst, "rel")))
	stop := g.Operation(inst, "cloudify.interfaces.lifecycle.stop", nil)
	require.NoError(t, sub.Sequence().Add(stop, rel).Err())
	return g, sub, rel, stop
}

func TestIgnoreFailures(t *testing.T) {
	g, sub, _, _ := fixture(t)
	IgnoreFailures(g, sub)

	for _, tk := range sub.Tasks() {
		assert.IsType(t, IgnoreHandler{}, g.TaskHandler(tk.ID()), "task %s", tk.ID())
	}
}

func TestIgnoreHandler(t *testing.T) {
	_, sub, _, failed := fixture(t)

	t.Run("continues and reports", func(t *testing.T) {
		rec := newRecorder()
		verdict := IgnoreHandler{}.HandleFailure(context.Background(), dag.Failure{
			Task: failed, Owner: sub, Err: errors.New("boom"), Events: rec, Tracker: rec,
		})

		assert.Equal(t, dag.VerdictContinue, verdict)
		require.Len(t, rec.events, 1)
		assert.Contains(t, rec.events[0], "web_1: Task cloudify.interfaces.lifecycle.stop failed on node instance web_1, ignoring: boom")
		assert.Equal(t, failed.ID(), rec.failed[sub.ID()])
	})

	t.Run("observes cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := newRecorder()

		verdict := IgnoreHandler{}.HandleFailure(ctx, dag.Failure{Task: failed, Owner: sub, Err: errors.New("boom"), Events: rec, Tracker: rec})

		assert.Equal(t, dag.VerdictCancelled, verdict)
		assert.Empty(t, rec.events)
		assert.Empty(t, rec.failed)
	})
}

func TestRelationshipAbsorber(t *testing.T) {
	_, sub, rel, _ := fixture(t)
	failed := rel.Tasks()[0]

	t.Run("discards and marks the containing subgraph", func(t *testing.T) {
		rec := newRecorder()
		verdict := RelationshipAbsorber{}.HandleFailure(context.Background(), dag.Failure{
			Task: failed, Owner: rel, Subgraph: rel, Err: errors.New("boom"), Tracker: rec,
		})

		assert.Equal(t, dag.VerdictContinue, verdict)
		assert.Equal(t, []string{rel.ID()}, rec.discarded)
		assert.Equal(t, failed.ID(), rec.failed[sub.ID()])
	})

	t.Run("observes cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := newRecorder()

		verdict := RelationshipAbsorber{}.HandleFailure(ctx, dag.Failure{Task: failed, Subgraph: rel, Tracker: rec})
		assert.Equal(t, dag.VerdictCancelled, verdict)
		assert.Empty(t, rec.discarded)
	})

	t.Run("fails without a tracker", func(t *testing.T) {
		verdict := RelationshipAbsorber{}.HandleFailure(context.Background(), dag.Failure{Task: failed, Subgraph: rel})
		assert.Equal(t, dag.VerdictFail, verdict)
	})
}
