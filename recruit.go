// Package recruit assembles a recruitment engine, its store and its
// inspection service from a support.Config.
package recruit

import (
	"context"
	"errors"
	"fmt"

	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/core/support/service"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/engine"
	"github.com/project-flogo/recruit/inspect"
	"github.com/project-flogo/recruit/linkage"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/state"
	"github.com/project-flogo/recruit/store"
	"github.com/project-flogo/recruit/store/badgerstore"
	"github.com/project-flogo/recruit/store/memstore"
	"github.com/project-flogo/recruit/store/pgstore"
	"github.com/project-flogo/recruit/support"
)

// Runtime is an engine wired to its store, recorder and services
type Runtime struct {
	config   *support.Config
	store    store.Store
	engine   *engine.Engine
	recorder state.Recorder
	services []service.Service
	loader   *support.DefinitionLoader
	logger   log.Logger
}

// New builds a runtime from cfg, a nil provider uses the
// DefaultExtensionProvider
func New(ctx context.Context, cfg *support.Config, ep ExtensionProvider) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := cfg.RecordingMode()
	if err != nil {
		return nil, err
	}
	if ep == nil {
		ep = NewDefaultExtensionProvider()
	}

	logger := log.ChildLogger(log.RootLogger(), "recruit")

	s, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{config: cfg, store: s, logger: logger, loader: support.NewDefinitionLoader(nil)}

	var options []engine.Option
	if mode != state.RecordingModeOff {
		rt.recorder = ep.GetStateRecorder()
		if rt.recorder != nil {
			options = append(options, engine.WithRecorder(rt.recorder, mode))
		}
	}
	if interviews := ep.GetInterviewService(); interviews != nil {
		options = append(options, engine.WithInterviews(linkage.NewBreakingInterviewService(interviews, cfg.Breaker)))
	}
	if tasks := ep.GetTaskService(); tasks != nil {
		options = append(options, engine.WithTasks(linkage.NewBreakingTaskService(tasks, cfg.Breaker)))
	}
	rt.engine = engine.New(s, options...)

	if cfg.Inspect.Enabled {
		var inspectOptions []inspect.Option
		if history, ok := rt.recorder.(inspect.History); ok {
			inspectOptions = append(inspectOptions, inspect.WithHistory(history))
		}
		rt.services = append(rt.services, inspect.New(rt.engine, inspect.Settings{
			Port:            cfg.Inspect.Port,
			BottleneckLimit: cfg.Inspect.BottleneckLimit,
		}, inspectOptions...))
	}

	logger.Infof("Runtime %s created with %s store, recording mode '%s'", Version(), cfg.Store.Driver, mode)
	return rt, nil
}

// OpenStore opens the store selected by the driver of cfg
func OpenStore(ctx context.Context, cfg support.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case support.DriverMemory, "":
		return memstore.New(), nil
	case support.DriverBadger:
		return badgerstore.Open(badgerstore.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			MaxRetries: cfg.Badger.MaxRetries,
		})
	case support.DriverPostgres:
		return pgstore.Open(ctx, pgstore.Config{
			URL:             cfg.Postgres.URL,
			PingTimeout:     cfg.Postgres.PingTimeout,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		})
	default:
		return nil, fmt.Errorf("unsupported store driver '%s'", cfg.Driver)
	}
}

func (rt *Runtime) Engine() *engine.Engine {
	return rt.engine
}

func (rt *Runtime) Store() store.Store {
	return rt.store
}

// Recorder returns the state recorder, nil when recording is off
func (rt *Runtime) Recorder() state.Recorder {
	return rt.recorder
}

// Import creates the processes defined at uris.  A process whose id already
// exists is left untouched, an imported process that was marked active is
// activated once created.
func (rt *Runtime) Import(ctx context.Context, uris ...string) ([]*definition.Definition, error) {
	var imported []*definition.Definition
	for _, uri := range uris {
		rep, err := rt.loader.Load(uri)
		if err != nil {
			return imported, err
		}

		if _, err := rt.engine.GetProcess(ctx, rep.ID); err == nil {
			rt.logger.Infof("Process[%s] from '%s' already exists, skipping", rep.ID, uri)
			continue
		} else if !model.IsNotFound(err) {
			return imported, err
		}

		activate := rep.Status == model.ProcessActive
		def, err := rt.engine.CreateProcess(ctx, rep)
		if err != nil {
			return imported, fmt.Errorf("error importing '%s': %w", uri, err)
		}
		if activate {
			if _, err := rt.engine.ActivateProcess(ctx, def.ID()); err != nil {
				return imported, fmt.Errorf("error activating '%s': %w", uri, err)
			}
			if def, err = rt.engine.GetProcess(ctx, def.ID()); err != nil {
				return imported, err
			}
		}
		imported = append(imported, def)
	}
	return imported, nil
}

// Start imports the configured processes and starts the services
func (rt *Runtime) Start(ctx context.Context) error {
	if _, err := rt.Import(ctx, rt.config.Processes...); err != nil {
		return err
	}
	for _, svc := range rt.services {
		if err := svc.Start(); err != nil {
			return fmt.Errorf("error starting service '%s': %w", svc.Name(), err)
		}
	}
	return nil
}

// Stop stops the services and closes the store
func (rt *Runtime) Stop() error {
	var errs []error
	for _, svc := range rt.services {
		if err := svc.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("error stopping service '%s': %w", svc.Name(), err))
		}
	}
	if err := rt.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
