package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/model"
	"gopkg.in/yaml.v3"
)

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// writeDescription prints a graph as an indented tree.
func writeDescription(w io.Writer, d dag.Description) {
	fmt.Fprintf(w, "graph %s\n", d.ID)
	for _, s := range d.Subgraphs {
		writeSubgraph(w, s, 1)
	}
}

func writeSubgraph(w io.Writer, s dag.SubgraphDescription, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s%s\n", indent, s.ID, after(s.DependsOn))
	for _, t := range s.Tasks {
		fmt.Fprintf(w, "%s  %s [%s] %s%s\n", indent, t.ID, t.Instance, t.Name, after(t.DependsOn))
	}
	for _, child := range s.Subgraphs {
		writeSubgraph(w, child, depth+1)
	}
}

func after(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return " (after " + strings.Join(ids, ", ") + ")"
}

func writeReport(w io.Writer, r *executor.Report) {
	fmt.Fprintf(w, "completed: %d, ignored: %d, discarded: %d\n", len(r.Completed()), len(r.Ignored()), len(r.Discarded()))
	degraded := r.Degraded()
	for _, instanceID := range slices.Sorted(maps.Keys(degraded)) {
		fmt.Fprintf(w, "degraded: %s (first failure %s)\n", instanceID, degraded[instanceID])
	}
}

func writeInstances(w io.Writer, instances []*model.NodeInstance) {
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\n", inst.ID, inst.NodeID(), inst.State)
	}
}
