package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/common"
	"github.com/ternarybob/findata/internal/httpclient"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/services/catalog"
	"github.com/ternarybob/findata/internal/services/extractor"
	"github.com/ternarybob/findata/internal/services/runner"
	"github.com/ternarybob/findata/internal/services/urls"
	"github.com/ternarybob/findata/internal/storage/filestore"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage and roster
	Store   interfaces.ArtifactStore
	Catalog interfaces.Catalog

	// Portal access
	Transport  interfaces.Transport
	URLBuilder *urls.Builder

	// Extraction
	ExtractorService *extractor.Service
	Runner           *runner.Runner
	Scheduler        *runner.Scheduler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("data_dir", cfg.Storage.DataDir).
		Str("catalog_dir", cfg.Catalog.Dir).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the artifact store and the catalog
func (a *App) initStorage() error {
	store, err := filestore.New(a.Config.Storage.DataDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create artifact store: %w", err)
	}
	a.Store = store

	a.Catalog = catalog.New(a.Config.Catalog.Dir, a.Config.Catalog.StartFrom, a.Logger)

	a.Logger.Debug().Str("data_dir", store.DataDir()).Msg("Artifact store initialized")
	return nil
}

// initServices wires the transport, the extractor and the runner
func (a *App) initServices() error {
	transportCfg := a.Config.Transport

	retry := httpclient.NewRetryPolicy()
	retry.MaxAttempts = transportCfg.MaxAttempts
	retry.InitialBackoff = transportCfg.InitialBackoffDuration()
	retry.MaxBackoff = transportCfg.MaxBackoffDuration()

	a.Transport = httpclient.NewTransport(a.Logger,
		httpclient.WithTimeout(transportCfg.TimeoutDuration()),
		httpclient.WithUserAgent(transportCfg.UserAgent),
		httpclient.WithRetryPolicy(retry),
		httpclient.WithRateLimit(transportCfg.RequestsPerSecond, transportCfg.Burst),
	)

	sources := a.Config.Sources
	a.URLBuilder = &urls.Builder{
		LegacyBaseURL:             sources.Legacy.BaseURL,
		RegulatorBaseURL:          sources.Regulator.BaseURL,
		RegulatorBootstrapBaseURL: sources.Regulator.BootstrapBaseURL,
		RegulatorBootstrapSeq:     sources.Regulator.BootstrapSequence,
	}

	a.ExtractorService = extractor.NewService(a.Transport, a.Store, a.URLBuilder, a.Logger)
	a.Runner = runner.New(a.Catalog, a.ExtractorService, a.Logger)
	a.Scheduler = runner.NewScheduler(a.Runner, a.Logger)

	a.Logger.Debug().
		Str("legacy_base_url", sources.Legacy.BaseURL).
		Str("regulator_base_url", sources.Regulator.BaseURL).
		Float64("requests_per_second", transportCfg.RequestsPerSecond).
		Int("max_attempts", transportCfg.MaxAttempts).
		Msg("Extraction services initialized")
	return nil
}

// RunOnce performs a single extraction run over the whole roster
func (a *App) RunOnce(ctx context.Context) (*runner.Stats, error) {
	return a.Runner.Run(ctx)
}

// StartScheduler begins periodic runs; ctx cancels a run in progress
func (a *App) StartScheduler(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx, a.Config.Scheduler.Schedule); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Close stops the scheduler, waiting for a run in progress
func (a *App) Close() error {
	if a.Scheduler != nil && a.Config.Scheduler.Enabled {
		a.Scheduler.Stop()
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}
