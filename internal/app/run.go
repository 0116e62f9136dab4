package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/lifecycle"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/scale"
	"github.com/specialistvlad/instancegraph/internal/workflow"
)

// Workflow names a graph the app can build.
type Workflow string

const (
	WorkflowRollback  Workflow = "rollback"
	WorkflowInstall   Workflow = "install"
	WorkflowUninstall Workflow = "uninstall"
)

// Workflows lists every Workflow in display order.
var Workflows = []Workflow{WorkflowRollback, WorkflowInstall, WorkflowUninstall}

// GraphOptions selects the instances a graph is built for.
type GraphOptions struct {
	Filter        lifecycle.Filter
	IgnoreFailure bool
}

// Instances returns the current instances in registration order.
func (a *App) Instances(ctx context.Context) []*model.NodeInstance {
	return a.topology.AllInstances(ctx)
}

// Properties returns the stored runtime properties of an instance.
func (a *App) Properties(ctx context.Context, instanceID string) (map[string]any, error) {
	return a.properties.All(ctx, instanceID)
}

// BuildGraph builds the named workflow's graph without running it. The
// rollback workflow targets unresolved instances matching the filter; the
// others target every matching instance. Instances connected to the targets
// take part as intact instances.
func (a *App) BuildGraph(ctx context.Context, wf Workflow, opts GraphOptions) (*dag.Graph, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	all := a.Instances(ctx)

	var active []*model.NodeInstance
	if wf == WorkflowRollback {
		active = workflow.FilterUnresolved(all, opts.Filter)
	} else {
		for _, inst := range all {
			if opts.Filter.Match(inst) {
				active = append(active, inst)
			}
		}
	}
	intact := relatedTo(active, all)
	a.logger.Debug("Building graph.", "workflow", wf, "active", len(active), "intact", len(intact))

	switch wf {
	case WorkflowRollback:
		return workflow.BuildRollbackGraph(ctx, active, intact, opts.IgnoreFailure)
	case WorkflowInstall:
		return workflow.BuildInstallGraph(ctx, active, intact)
	case WorkflowUninstall:
		return workflow.BuildUninstallGraph(ctx, active, intact, opts.IgnoreFailure)
	default:
		return nil, fmt.Errorf("unknown workflow %q", wf)
	}
}

// Execute runs g with the app's executor.
func (a *App) Execute(ctx context.Context, g *dag.Graph) (*executor.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("Starting concurrent execution.", "graph", g.ID(), "tasks", len(g.Tasks()))
	report, err := a.executor.Execute(ctx, g)
	if err != nil {
		return report, fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.", "graph", g.ID(), "degraded", report.IsDegraded())
	return report, nil
}

// Scale runs one scale transaction against the topology.
func (a *App) Scale(ctx context.Context, req scale.Request) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return a.coordinator.Run(ctx, req)
}

// RemoveCohort removes every instance tagged with value by an earlier scale
// transaction.
func (a *App) RemoveCohort(ctx context.Context, field, value string, ignoreFailure bool) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return a.coordinator.RemoveCohort(ctx, a.Instances(ctx), field, value, ignoreFailure)
}

// relatedTo returns the instances outside active that active instances
// depend on or that depend on an active instance, in input order.
func relatedTo(active, all []*model.NodeInstance) []*model.NodeInstance {
	activeIdx := model.Index(active)
	targets := make(map[string]struct{})
	for _, inst := range active {
		for _, rel := range inst.Relationships {
			targets[rel.TargetID] = struct{}{}
		}
	}

	var out []*model.NodeInstance
	for _, inst := range all {
		if _, ok := activeIdx[inst.ID]; ok {
			continue
		}
		_, isTarget := targets[inst.ID]
		isSource := slices.ContainsFunc(inst.Relationships, func(rel model.Relationship) bool {
			_, ok := activeIdx[rel.TargetID]
			return ok
		})
		if isTarget || isSource {
			out = append(out, inst)
		}
	}
	return out
}
