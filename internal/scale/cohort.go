package scale

import (
	"context"
	"fmt"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/model"
)

// RemoveCohort removes every instance among instances whose runtime
// property field equals value, typically the instances one tagged scale
// transaction added. It does nothing when no instance matches.
func (c *Coordinator) RemoveCohort(ctx context.Context, instances []*model.NodeInstance, field, value string, ignoreFailure bool) error {
	if field == "" {
		field = DefaultTransactionField
	}

	total := make(map[string]int)
	cohort := make(map[string]int)
	var ids []string
	for _, inst := range instances {
		total[inst.NodeID()]++
		v, ok, err := c.properties.Get(ctx, inst.ID, field)
		if err != nil {
			return fmt.Errorf("failed to read %s of %s: %w", field, inst.ID, err)
		}
		if !ok || v != value {
			continue
		}
		cohort[inst.NodeID()]++
		ids = append(ids, inst.ID)
	}
	if len(ids) == 0 {
		ctxlog.FromContext(ctx).Info("No node instances carry the transaction tag.", "field", field, "value", value)
		return nil
	}

	counts := make(map[string]int, len(cohort))
	for nodeID, n := range cohort {
		counts[nodeID] = total[nodeID] - n
	}
	return c.Run(ctx, Request{
		GroupCounts:        counts,
		ExpectedRemovedIDs: ids,
		RemovalHints:       ids,
		IgnoreFailure:      ignoreFailure,
	})
}
