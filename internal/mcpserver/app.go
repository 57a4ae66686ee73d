// Package mcpserver is the composition root: it wires the vocabulary,
// provider, subagents, orchestrator, store, and operation registry together
// and exposes the operation surface as an MCP server over stdio. No business
// logic lives here, only wiring.
package mcpserver

import (
	"context"
	"fmt"

	"craftfolio/internal/config"
	"craftfolio/internal/fallback"
	"craftfolio/internal/logging"
	"craftfolio/internal/orchestrator"
	"craftfolio/internal/provider"
	"craftfolio/internal/store"
	"craftfolio/internal/subagent"
	"craftfolio/internal/tools"
	"craftfolio/internal/vocab"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App is the assembled application: everything the operation surface needs.
type App struct {
	Config   *config.Config
	Store    *store.SQLiteStore
	Vocab    *vocab.Provider
	Profile  vocab.BusinessProfile
	Orch     *orchestrator.Orchestrator
	Registry *tools.Registry

	watcher *vocab.Watcher
	events  chan orchestrator.TurnEvent
	drainCh chan struct{}
}

// NewApp assembles the application from configuration. The provider adapter
// degrades to the deterministic-only path when disabled or missing an API
// key; nothing downstream needs to know.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	voc := vocab.Default()
	if cfg.Vocab.Path != "" {
		loaded, err := vocab.Load(cfg.Vocab.Path)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		voc = loaded
	}
	vocProvider := vocab.NewProvider(voc)

	var profile vocab.BusinessProfile
	if cfg.Vocab.ProfilePath != "" {
		p, err := vocab.LoadProfile(cfg.Vocab.ProfilePath)
		if err != nil {
			return nil, fmt.Errorf("load business profile: %w", err)
		}
		profile = *p
	}

	var adapter provider.Adapter = provider.Disabled{}
	if cfg.Provider.Enabled && cfg.Provider.APIKey != "" {
		gcfg := provider.DefaultGeminiConfig(cfg.Provider.APIKey)
		gcfg.Model = cfg.Provider.Model
		gcfg.Timeout = cfg.ProviderTimeout()
		gcfg.MinRequestInterval = cfg.MinRequestInterval()
		g, err := provider.NewGeminiAdapter(ctx, gcfg)
		if err != nil {
			// Provider trouble is a soft failure: run deterministic-only.
			logging.Provider("generation provider unavailable, using deterministic path: %v", err)
		} else {
			adapter = g
		}
	}

	extractor := fallback.New(vocProvider)
	scfg := subagent.DefaultSpawnerConfig()
	scfg.Timeout = cfg.SubagentTimeout()
	scfg.MaxParallel = cfg.Orchestrator.MaxParallelSubagents
	spawner := subagent.NewSpawner(adapter, scfg)

	events := make(chan orchestrator.TurnEvent, 64)
	orch := orchestrator.New(
		spawner,
		subagent.NewStory(vocProvider, extractor),
		subagent.NewDesign(vocProvider),
		subagent.NewQuality(),
		events,
	)

	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	app := &App{
		Config:   cfg,
		Store:    st,
		Vocab:    vocProvider,
		Profile:  profile,
		Orch:     orch,
		Registry: tools.NewRegistry(),
		events:   events,
		drainCh:  make(chan struct{}),
	}
	app.registerOperations()
	app.drainEvents()

	if cfg.Vocab.Watch && cfg.Vocab.Path != "" {
		w, err := vocab.NewWatcher(cfg.Vocab.Path, vocProvider)
		if err != nil {
			logging.Vocab("vocabulary watcher unavailable: %v", err)
		} else if err := w.Start(ctx); err != nil {
			logging.Vocab("vocabulary watcher failed to start: %v", err)
		} else {
			app.watcher = w
		}
	}

	return app, nil
}

// drainEvents forwards orchestration events to the debug log so the event
// stream always has a consumer.
func (a *App) drainEvents() {
	go func() {
		for {
			select {
			case <-a.drainCh:
				return
			case ev := <-a.events:
				logging.OrchestratorDebug("event %s subagent=%s: %s", ev.Type, ev.Subagent, ev.Message)
			}
		}
	}()
}

// Close releases the app's resources.
func (a *App) Close() error {
	close(a.drainCh)
	if a.watcher != nil {
		a.watcher.Stop()
	}
	return a.Store.Close()
}
