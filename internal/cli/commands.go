package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/instancegraph/internal/app"
	"github.com/specialistvlad/instancegraph/internal/lifecycle"
	"github.com/specialistvlad/instancegraph/internal/scale"
)

// selection holds the flags that pick the instances a graph is built for.
type selection struct {
	nodes         []string
	instances     []string
	types         []string
	ignoreFailure bool
}

func (s *selection) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&s.nodes, "node", nil, "Only node instances of these nodes.")
	fs.StringSliceVar(&s.instances, "instance", nil, "Only these node instances.")
	fs.StringSliceVar(&s.types, "type", nil, "Only node instances whose node has one of these types.")
	fs.BoolVar(&s.ignoreFailure, "ignore-failure", false, "Turn teardown failures into events and continue.")
}

func (s *selection) options() app.GraphOptions {
	return app.GraphOptions{
		Filter: lifecycle.Filter{
			NodeIDs:     s.nodes,
			InstanceIDs: s.instances,
			TypeNames:   s.types,
		},
		IgnoreFailure: s.ignoreFailure,
	}
}

func parseWorkflow(name string) (app.Workflow, error) {
	wf := app.Workflow(name)
	if !slices.Contains(app.Workflows, wf) {
		return "", fmt.Errorf("unknown workflow %q: must be one of %v", name, app.Workflows)
	}
	return wf, nil
}

func newPlanCommand(flags *globalFlags) *cobra.Command {
	sel := &selection{}
	var output string
	cmd := &cobra.Command{
		Use:   "plan <rollback|install|uninstall>",
		Short: "Print the graph a workflow would run, without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := parseWorkflow(args[0])
			if err != nil {
				return usageError(err)
			}
			if output != "text" && output != "yaml" {
				return usageError(fmt.Errorf("invalid output %q: must be 'text' or 'yaml'", output))
			}
			a, err := flags.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			g, err := a.BuildGraph(cmd.Context(), wf, sel.options())
			if err != nil {
				return err
			}
			if output == "yaml" {
				return writeYAML(cmd.OutOrStdout(), g.Describe())
			}
			writeDescription(cmd.OutOrStdout(), g.Describe())
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format. Options: 'text' or 'yaml'.")
	return cmd
}

func newExecuteCommand(flags *globalFlags, wf app.Workflow, short string) *cobra.Command {
	sel := &selection{}
	cmd := &cobra.Command{
		Use:   string(wf),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			g, err := a.BuildGraph(cmd.Context(), wf, sel.options())
			if err != nil {
				return err
			}
			report, err := a.Execute(cmd.Context(), g)
			if report != nil {
				writeReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	sel.register(cmd)
	return cmd
}

func newScaleCommand(flags *globalFlags) *cobra.Command {
	var (
		counts        []string
		req           scale.Request
		expectRemoved []string
	)
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Change node instance counts in one transaction",
		Example: `  instancegraph scale -s deploy/ --count app=3 --tag canary
  instancegraph scale -s deploy/ --count app=1 --expect-removed app_3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := parseCounts(counts)
			if err != nil {
				return usageError(err)
			}
			req.GroupCounts = groups
			if cmd.Flags().Changed("expect-removed") {
				req.ExpectedRemovedIDs = expectRemoved
				if req.ExpectedRemovedIDs == nil {
					req.ExpectedRemovedIDs = []string{}
				}
			}

			a, err := flags.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Scale(cmd.Context(), req); err != nil {
				return err
			}
			writeInstances(cmd.OutOrStdout(), a.Instances(cmd.Context()))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringArrayVar(&counts, "count", nil, "Desired count as 'node=N'. Repeatable.")
	fs.StringVar(&req.TransactionTag, "tag", "", "Tag added node instances with this transaction value.")
	fs.StringVar(&req.TransactionField, "tag-field", scale.DefaultTransactionField, "Runtime property the tag is written to.")
	fs.StringSliceVar(&expectRemoved, "expect-removed", nil, "Abort unless every removed node instance is listed.")
	fs.StringSliceVar(&req.RemovalHints, "hint", nil, "Preferred node instances to remove.")
	fs.BoolVar(&req.IgnoreFailure, "ignore-failure", false, "Ignore failures while uninstalling removed node instances.")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func newRemoveCohortCommand(flags *globalFlags) *cobra.Command {
	var (
		tag           string
		field         string
		ignoreFailure bool
	)
	cmd := &cobra.Command{
		Use:   "remove-cohort",
		Short: "Remove every node instance a tagged scale transaction added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.RemoveCohort(cmd.Context(), field, tag, ignoreFailure); err != nil {
				return err
			}
			writeInstances(cmd.OutOrStdout(), a.Instances(cmd.Context()))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&tag, "tag", "", "Transaction value the cohort was tagged with.")
	fs.StringVar(&field, "tag-field", scale.DefaultTransactionField, "Runtime property holding the tag.")
	fs.BoolVar(&ignoreFailure, "ignore-failure", false, "Ignore failures while uninstalling.")
	_ = cmd.MarkFlagRequired("tag")
	return cmd
}

func newInstancesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "instances",
		Short: "List the node instances of the snapshot and their states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			writeInstances(cmd.OutOrStdout(), a.Instances(cmd.Context()))
			return nil
		},
	}
}

// parseCounts parses 'node=N' pairs.
func parseCounts(raw []string) (map[string]int, error) {
	out := make(map[string]int, len(raw))
	for _, pair := range raw {
		node, n, ok := strings.Cut(pair, "=")
		if !ok || node == "" {
			return nil, fmt.Errorf("invalid count %q: expected node=N", pair)
		}
		count, err := strconv.Atoi(n)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("invalid count %q: N must be a non-negative integer", pair)
		}
		out[node] = count
	}
	return out, nil
}
