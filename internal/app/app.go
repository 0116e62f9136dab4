package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/executor"
	"github.com/specialistvlad/instancegraph/internal/hcl_adapter"
	"github.com/specialistvlad/instancegraph/internal/inmemorystore"
	"github.com/specialistvlad/instancegraph/internal/inmemorytopology"
	"github.com/specialistvlad/instancegraph/internal/localexecutor"
	"github.com/specialistvlad/instancegraph/internal/propertystore"
	"github.com/specialistvlad/instancegraph/internal/redisstore"
	"github.com/specialistvlad/instancegraph/internal/scale"
	"github.com/specialistvlad/instancegraph/modules/print"
	"github.com/specialistvlad/instancegraph/modules/socketio"
)

// Loader reads a deployment snapshot from a set of paths.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*hcl_adapter.Snapshot, error)
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW        io.Writer
	logger      *slog.Logger
	config      *Config
	topology    *inmemorytopology.Store
	properties  propertystore.Store
	executor    executor.Executor
	coordinator *scale.Coordinator
	closers     []func() error
}

// NewApp is the constructor for the main application. It loads the snapshot,
// registers it in a fresh topology store and wires the execution stack.
// Operation output goes to outW and logs to logW.
func NewApp(ctx context.Context, outW, logW io.Writer, cfg *Config, loader Loader) (_ *App, err error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{outW: outW, logger: logger, config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	snap, err := loader.Load(ctx, cfg.SnapshotPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	logger.Debug("Snapshot loaded.", "nodes", len(snap.Nodes), "instances", len(snap.Instances))

	if a.properties, err = a.newPropertyStore(ctx); err != nil {
		return nil, err
	}
	a.topology = inmemorytopology.New()
	if err := snap.Populate(ctx, a.topology, a.properties); err != nil {
		return nil, fmt.Errorf("failed to register snapshot: %w", err)
	}

	dispatcher, err := a.newDispatcher(ctx)
	if err != nil {
		return nil, err
	}
	a.executor = localexecutor.New(dispatcher, cfg.WorkerCount)
	a.coordinator = scale.New(a.topology, a.properties, a.executor)
	logger.Debug("Execution stack wired.", "workers", cfg.WorkerCount)

	return a, nil
}

func (a *App) newPropertyStore(ctx context.Context) (propertystore.Store, error) {
	if a.config.RedisURL == "" {
		return inmemorystore.New(), nil
	}
	store, err := redisstore.New(ctx, redisstore.Options{URL: a.config.RedisURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create property store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	a.logger.Debug("Using Redis property store.")
	return store, nil
}

func (a *App) newDispatcher(ctx context.Context) (executor.Dispatcher, error) {
	opts := []print.Option{print.WithStateRecorder(a.topology)}
	for _, rule := range a.config.FailOperations {
		id, op, err := print.ParseFailure(rule)
		if err != nil {
			return nil, err
		}
		opts = append(opts, print.WithFailure(id, op))
	}
	var d executor.Dispatcher = print.New(a.outW, opts...)

	if a.config.EventsURL == "" {
		return d, nil
	}
	fwd, err := socketio.Connect(ctx, d, socketio.Options{
		URL:       a.config.EventsURL,
		Namespace: a.config.EventsNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect event forwarder: %w", err)
	}
	a.closers = append(a.closers, func() error {
		fwd.Close()
		return nil
	})
	return fwd, nil
}

// Close releases every connection the app opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
