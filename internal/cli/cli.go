package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/instancegraph/internal/app"
	"github.com/specialistvlad/instancegraph/internal/hcl_adapter"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError reports invalid user input with exit code 2.
func usageError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: 2, Message: err.Error()}
}

// globalFlags are shared by every command.
type globalFlags struct {
	configFile      string
	snapshots       []string
	logFormat       string
	logLevel        string
	workers         int
	redisURL        string
	eventsURL       string
	eventsNamespace string
	failOperations  []string
}

// Run executes the command line in args. Command output goes to outW and
// logs to errW.
func Run(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the full command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "instancegraph",
		Short: "Build and run lifecycle dependency graphs for node instances",
		Long: `instancegraph loads a deployment snapshot (HCL node and instance blocks),
builds rollback, install and uninstall graphs for its node instances and runs
them, or scales node groups inside a modification transaction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML config file. Flags override its values.")
	pf.StringSliceVarP(&flags.snapshots, "snapshot", "s", nil, "Path to a snapshot .hcl file or directory. Repeatable.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.IntVar(&flags.workers, "workers", app.DefaultWorkerCount, "Number of concurrent workers for the executor.")
	pf.StringVar(&flags.redisURL, "redis-url", "", "Keep runtime properties in Redis instead of memory.")
	pf.StringVar(&flags.eventsURL, "events-url", "", "Forward progress events to this socket.io server.")
	pf.StringVar(&flags.eventsNamespace, "events-namespace", "", "socket.io namespace for progress events.")
	pf.StringSliceVar(&flags.failOperations, "fail-operation", nil, "Simulate a failure of '[instance:]operation'. Repeatable.")

	root.AddCommand(
		newPlanCommand(flags),
		newExecuteCommand(flags, app.WorkflowRollback, "Roll back node instances left mid-install"),
		newExecuteCommand(flags, app.WorkflowInstall, "Install node instances"),
		newExecuteCommand(flags, app.WorkflowUninstall, "Uninstall node instances"),
		newScaleCommand(flags),
		newRemoveCohortCommand(flags),
		newInstancesCommand(flags),
	)
	return root
}

// config layers the flags the user set over the config file and validates
// the result.
func (f *globalFlags) config(cmd *cobra.Command) (*app.Config, error) {
	var cfg app.Config
	if f.configFile != "" {
		fileCfg, err := app.LoadConfigFile(f.configFile)
		if err != nil {
			return nil, usageError(err)
		}
		cfg = fileCfg
	}

	changed := cmd.Flags().Changed
	if changed("snapshot") || len(cfg.SnapshotPaths) == 0 {
		cfg.SnapshotPaths = f.snapshots
	}
	if changed("log-format") || cfg.LogFormat == "" {
		cfg.LogFormat = f.logFormat
	}
	if changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = f.logLevel
	}
	if changed("workers") || cfg.WorkerCount == 0 {
		cfg.WorkerCount = f.workers
	}
	if changed("redis-url") {
		cfg.RedisURL = f.redisURL
	}
	if changed("events-url") {
		cfg.EventsURL = f.eventsURL
	}
	if changed("events-namespace") {
		cfg.EventsNamespace = f.eventsNamespace
	}
	if changed("fail-operation") {
		cfg.FailOperations = f.failOperations
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI configuration resolved.", "config", config)
	return config, nil
}

// newApp resolves the configuration and constructs the app for cmd.
func (f *globalFlags) newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := f.config(cmd)
	if err != nil {
		return nil, err
	}
	return app.NewApp(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, hcl_adapter.NewLoader())
}
