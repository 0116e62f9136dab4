package workflow

import (
	"context"
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/builder"
	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/lifecycle"
	"github.com/specialistvlad/instancegraph/internal/linker"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/policy"
	"github.com/specialistvlad/instancegraph/internal/task"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("instancegraph.workflow")

// StubPrefix prefixes the subgraph id of every intact node instance.
const StubPrefix = "stub_"

// subgraphFunc builds the subgraph of one active node instance.
type subgraphFunc func(g *dag.Graph, inst *model.NodeInstance) (*dag.Subgraph, error)

// BuildRollbackGraph builds a graph that rolls back targets, which are
// usually the output of FilterUnresolved. intact lists the instances related
// to targets that are not rolled back themselves.
func BuildRollbackGraph(ctx context.Context, targets, intact []*model.NodeInstance, ignoreFailure bool) (*dag.Graph, error) {
	return build(ctx, "workflow.rollback", targets, intact, false, ignoreFailure,
		func(g *dag.Graph, inst *model.NodeInstance) (*dag.Subgraph, error) {
			return builder.Rollback(g, inst, ignoreFailure)
		})
}

// BuildInstallGraph builds a graph that installs added. related lists the
// existing instances added ones connect to.
func BuildInstallGraph(ctx context.Context, added, related []*model.NodeInstance) (*dag.Graph, error) {
	return build(ctx, "workflow.install", added, related, true, false, builder.Install)
}

// BuildUninstallGraph builds a graph that uninstalls removed regardless of
// their recorded state. related lists the remaining instances connected to
// removed ones.
func BuildUninstallGraph(ctx context.Context, removed, related []*model.NodeInstance, ignoreFailure bool) (*dag.Graph, error) {
	return build(ctx, "workflow.uninstall", removed, related, false, ignoreFailure,
		func(g *dag.Graph, inst *model.NodeInstance) (*dag.Subgraph, error) {
			return builder.Uninstall(g, inst, ignoreFailure)
		})
}

// FilterUnresolved returns the instances that matter for a rollback: those
// matching f whose recorded state shows an interrupted install.
func FilterUnresolved(instances []*model.NodeInstance, f lifecycle.Filter) []*model.NodeInstance {
	return lifecycle.FilterUnresolved(instances, f)
}

func build(ctx context.Context, name string, active, intact []*model.NodeInstance, install, ignoreFailure bool, newSubgraph subgraphFunc) (g *dag.Graph, err error) {
	ctx, span := tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.Int("workflow.active_count", len(active)),
			attribute.Int("workflow.intact_count", len(intact)),
			attribute.Bool("workflow.ignore_failure", ignoreFailure),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("workflow.graph_id", g.ID()))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	logger := ctxlog.FromContext(ctx).With("workflow", name)
	g = dag.New()
	logger.Debug("Building workflow graph.", "graph", g.ID(), "active", len(active), "intact", len(intact))

	subgraphs := make(map[string]*dag.Subgraph, len(active)+len(intact))
	for _, inst := range active {
		sub, err := newSubgraph(g, inst)
		if err != nil {
			return nil, err
		}
		subgraphs[inst.ID] = sub
	}
	for _, inst := range intact {
		if _, ok := subgraphs[inst.ID]; ok {
			return nil, fmt.Errorf("node instance %s is both active and intact", inst.ID)
		}
		subgraphs[inst.ID] = g.Subgraph(StubPrefix + inst.ID).ForInstance(inst.ID)
	}

	activeIdx := model.Index(active)
	intactIdx := model.Index(intact)
	l := linker.New(g, subgraphs)
	if err := l.Link(ctx, active, activeIdx, intactIdx, install, nil); err != nil {
		return nil, err
	}
	obs := relationshipOperations{graph: g, install: install, ignoreFailure: ignoreFailure}
	if err := l.Link(ctx, intact, activeIdx, nil, install, obs); err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%s graph is invalid: %w", name, err)
	}
	logger.Debug("Workflow graph built.", "graph", g.ID(), "tasks", len(g.Tasks()))
	return g, nil
}

// relationshipOperations appends the relationship operation an intact
// instance owes a changing neighbour onto the intact instance's stub.
type relationshipOperations struct {
	graph         *dag.Graph
	install       bool
	ignoreFailure bool
}

func (r relationshipOperations) DependencyAdded(_ context.Context, source *model.NodeInstance, rel model.Relationship, seq *dag.Sequence) error {
	op := builder.RelUnlink
	if r.install {
		op = builder.RelEstablish
	}
	for _, group := range builder.RelationshipOperations(r.graph, source, []model.Relationship{rel}, op) {
		seq.Fork(group...)
		if r.install || !r.ignoreFailure {
			continue
		}
		for _, v := range group {
			if t, ok := v.(*task.Task); ok {
				r.graph.SetTaskHandler(t, policy.IgnoreHandler{})
			}
		}
	}
	return seq.Err()
}
