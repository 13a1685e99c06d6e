package cli

import (
	"time"

	"go.uber.org/zap"

	"github.com/kamiazya/scopes/internal/alias"
	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/aspectdef"
	"github.com/kamiazya/scopes/internal/config"
	"github.com/kamiazya/scopes/internal/contextview"
	"github.com/kamiazya/scopes/internal/scope"
	"github.com/kamiazya/scopes/internal/store"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
)

// App holds the wired services a command needs. Built once per invocation
// after flags are parsed.
type App struct {
	Config   config.Config
	Store    *store.Store
	Registry *aspect.Registry
	Scopes   *scope.Service
	Aliases  *alias.Service
	Contexts *contextview.ActiveContextService
	Logger   *zap.Logger
	Out      *OutputFormatter
}

// openApp loads configuration, opens the database, and wires the services.
func openApp(opts *RootOptions) (*App, error) {
	logger := zap.NewNop()
	if opts.Verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, WrapExitError(ExitCommandError, "build logger", err)
		}
	}

	path := opts.ConfigPath
	if path == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "resolve config", err)
		}
		path = dir + "/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	registry := aspect.NewRegistry()
	if cfg.AspectDefinitions != "" {
		defs, err := aspectdef.Load(cfg.AspectDefinitions)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "load aspect definitions", err)
		}
		for _, d := range defs {
			if err := registry.Register(d); err != nil {
				st.Close()
				return nil, WrapExitError(ExitCommandError, "register aspect definitions", err)
			}
		}
	}

	limits := scope.Limits{MaxDepth: &cfg.MaxDepth, MaxChildren: &cfg.MaxChildren}

	return &App{
		Config:   cfg,
		Store:    st,
		Registry: registry,
		Scopes:   scope.NewService(st.Scopes(), limits),
		Aliases:  alias.NewService(st.Aliases(), time.Now),
		Contexts: contextview.NewActiveContextService(st.ContextViews()),
		Logger:   logger,
		Out:      &OutputFormatter{Format: opts.Format, Writer: opts.Stdout, Verbose: opts.Verbose},
	}, nil
}

// NewOrchestrator wires a sync orchestrator over the app's store.
func (a *App) NewOrchestrator(transport syncpkg.Transport, policy syncpkg.Policy) *syncpkg.Orchestrator {
	return syncpkg.NewOrchestrator(
		a.Store.SyncStates(),
		a.Store.Events(),
		transport,
		a.Store.Conflicts(),
		a.Store.Applier(),
		policy,
		a.deviceID(),
		a.Logger,
		time.Now,
	)
}

// Close releases the app's resources.
func (a *App) Close() error {
	a.Logger.Sync()
	return a.Store.Close()
}
