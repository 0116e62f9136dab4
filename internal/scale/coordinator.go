package scale

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/propertystore"
	"github.com/specialistvlad/instancegraph/internal/topologystore"
	"github.com/specialistvlad/instancegraph/internal/workflow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "instancegraph.scale"

// DefaultTransactionField is the runtime property that carries the
// transaction tag when Request.TransactionField is empty.
const DefaultTransactionField = "_transaction_id"

// ErrUnexpectedRemoval is returned when the modification selects an
// instance for removal that the caller did not expect to lose.
var ErrUnexpectedRemoval = errors.New("modification removes unexpected node instances")

// Request describes one scale transaction.
type Request struct {
	// GroupCounts maps scaling group (node id) to the desired instance count.
	GroupCounts map[string]int
	// PropertyUpdates maps node id to one property map per added instance of
	// that node, applied in the order the modification lists them.
	PropertyUpdates map[string][]map[string]any
	// TransactionField names the property the tag is written to. Defaults to
	// DefaultTransactionField.
	TransactionField string
	// TransactionTag, when set, is written to every added instance so the
	// cohort can later be found and removed together.
	TransactionTag string
	// ExpectedRemovedIDs, when non-nil, lists every instance id the caller
	// allows the modification to remove.
	ExpectedRemovedIDs []string
	// RemovalHints are passed to the modifier as preferred victims.
	RemovalHints []string
	// IgnoreFailure uninstalls removed instances with failures ignored.
	IgnoreFailure bool
}

// Coordinator runs scale transactions.
type Coordinator struct {
	modifier   topologystore.Modifier
	properties propertystore.Store
	executor   executor.Executor
	tracer     trace.Tracer
	meter      metric.Meter

	metricsOnce  sync.Once
	transactions metric.Int64Counter
	added        metric.Int64Counter
	removed      metric.Int64Counter
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTracerProvider sets the provider spans are created from. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) { c.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the provider instruments are created from. The
// global provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Coordinator) { c.meter = mp.Meter(instrumentationName) }
}

// New creates a Coordinator.
func New(modifier topologystore.Modifier, properties propertystore.Store, exec executor.Executor, opts ...Option) *Coordinator {
	c := &Coordinator{
		modifier:   modifier,
		properties: properties,
		executor:   exec,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// initMetrics lazily creates the instruments. Instrument errors only cost
// observability, so they are logged and otherwise ignored.
func (c *Coordinator) initMetrics(ctx context.Context) {
	c.metricsOnce.Do(func() {
		var errs []error
		var err error
		c.transactions, err = c.meter.Int64Counter("scale_transactions_total",
			metric.WithDescription("Number of scale transactions by outcome"))
		errs = append(errs, err)
		c.added, err = c.meter.Int64Counter("scale_instances_added_total",
			metric.WithDescription("Number of node instances added by committed transactions"))
		errs = append(errs, err)
		c.removed, err = c.meter.Int64Counter("scale_instances_removed_total",
			metric.WithDescription("Number of node instances removed by committed transactions"))
		errs = append(errs, err)
		if err := errors.Join(errs...); err != nil {
			ctxlog.FromContext(ctx).Error("Failed to initialize scale metrics.", "error", err)
		}
	})
}

// Run executes one scale transaction.
func (c *Coordinator) Run(ctx context.Context, req Request) error {
	c.initMetrics(ctx)
	ctx, span := c.tracer.Start(ctx, "scale.transaction",
		trace.WithAttributes(attribute.Int("scale.group_count", len(req.GroupCounts))))
	defer span.End()

	logger := ctxlog.FromContext(ctx)
	m, err := c.modifier.StartModification(ctx, topologystore.ModificationRequest{
		Counts:       req.GroupCounts,
		RemovalHints: req.RemovalHints,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to start modification: %w", err)
	}

	ctx = ctxlog.With(ctx, "modification", m.ID())
	logger = ctxlog.FromContext(ctx)
	span.SetAttributes(attribute.String("scale.modification_id", m.ID()))

	added, removed, err := c.apply(ctx, m, req)
	if err == nil {
		if err = m.Finish(ctx); err != nil {
			err = fmt.Errorf("failed to finish modification: %w", err)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if rbErr := m.Rollback(ctx); rbErr != nil {
			logger.Error("Failed to roll back modification.", "error", rbErr)
		}
		c.count(ctx, "rollback", 0, 0)
		logger.Warn("Scale transaction rolled back.", "error", err)
		return err
	}

	span.SetStatus(codes.Ok, "")
	c.count(ctx, "commit", added, removed)
	logger.Info("Scale transaction committed.", "added", added, "removed", removed)
	return nil
}

func (c *Coordinator) count(ctx context.Context, outcome string, added, removed int) {
	if c.transactions != nil {
		c.transactions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if c.added != nil && added > 0 {
		c.added.Add(ctx, int64(added))
	}
	if c.removed != nil && removed > 0 {
		c.removed.Add(ctx, int64(removed))
	}
}

// apply runs the additions and removals of m and returns how many
// instances were added and removed.
func (c *Coordinator) apply(ctx context.Context, m topologystore.Modification, req Request) (int, int, error) {
	added, addRelated := split(m.Added(), model.ModificationAdded)
	removed, removeRelated := split(m.Removed(), model.ModificationRemoved)

	if req.ExpectedRemovedIDs != nil {
		var unexpected []string
		for _, inst := range removed {
			if !slices.Contains(req.ExpectedRemovedIDs, inst.ID) {
				unexpected = append(unexpected, inst.ID)
			}
		}
		if len(unexpected) > 0 {
			return 0, 0, fmt.Errorf("%w: %v not in %v", ErrUnexpectedRemoval, unexpected, req.ExpectedRemovedIDs)
		}
	}

	if len(added) > 0 {
		if err := c.writeProperties(ctx, added, req); err != nil {
			return 0, 0, err
		}
		if err := c.install(ctx, added, addRelated); err != nil {
			return 0, 0, err
		}
	}
	if len(removed) > 0 {
		if err := c.uninstall(ctx, "scale.uninstall", removed, removeRelated, req.IgnoreFailure); err != nil {
			return 0, 0, err
		}
	}
	return len(added), len(removed), nil
}

func (c *Coordinator) writeProperties(ctx context.Context, added []*model.NodeInstance, req Request) error {
	field := req.TransactionField
	if field == "" {
		field = DefaultTransactionField
	}
	seen := make(map[string]int)
	for _, inst := range added {
		values := make(map[string]any)
		if updates := req.PropertyUpdates[inst.NodeID()]; seen[inst.NodeID()] < len(updates) {
			maps.Copy(values, updates[seen[inst.NodeID()]])
		}
		seen[inst.NodeID()]++
		if req.TransactionTag != "" {
			values[field] = req.TransactionTag
		}
		if len(values) == 0 {
			continue
		}
		if err := c.properties.Update(ctx, inst.ID, values); err != nil {
			return fmt.Errorf("failed to write properties of %s: %w", inst.ID, err)
		}
	}
	return nil
}

// install installs added. On failure it tears down exactly added on a
// fresh graph, ignoring any further failure, and returns the install error.
func (c *Coordinator) install(ctx context.Context, added, related []*model.NodeInstance) error {
	ctx, span := c.tracer.Start(ctx, "scale.install",
		trace.WithAttributes(attribute.StringSlice("scale.instances", model.IDs(added))))
	defer span.End()

	g, err := workflow.BuildInstallGraph(ctx, added, related)
	if err == nil {
		err = c.execute(ctx, g)
	}
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	logger := ctxlog.FromContext(ctx)
	logger.Warn("Install of added node instances failed, tearing them down.", "instances", model.IDs(added), "error", err)
	if tdErr := c.uninstall(ctx, "scale.teardown", added, related, true); tdErr != nil {
		logger.Error("Teardown of added node instances failed.", "error", tdErr)
	}
	return fmt.Errorf("failed to install added node instances: %w", err)
}

func (c *Coordinator) uninstall(ctx context.Context, spanName string, removed, related []*model.NodeInstance, ignoreFailure bool) error {
	ctx, span := c.tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.StringSlice("scale.instances", model.IDs(removed))))
	defer span.End()

	g, err := workflow.BuildUninstallGraph(ctx, removed, related, ignoreFailure)
	if err == nil {
		err = c.execute(ctx, g)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to uninstall node instances: %w", err)
	}
	return nil
}

func (c *Coordinator) execute(ctx context.Context, g *dag.Graph) error {
	report, err := c.executor.Execute(ctx, g)
	if err != nil {
		return err
	}
	if report != nil && report.IsDegraded() {
		ctxlog.FromContext(ctx).Warn("Graph completed with ignored failures.", "graph", g.ID(), "degraded", report.Degraded())
	}
	return nil
}

// split separates the instances tagged tag from the related ones.
func split(instances []*model.NodeInstance, tag model.Modification) (tagged, related []*model.NodeInstance) {
	for _, inst := range instances {
		if inst.Modification == tag {
			tagged = append(tagged, inst)
		} else {
			related = append(related, inst)
		}
	}
	return tagged, related
}
