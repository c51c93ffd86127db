// Package internal contains core application functionality
package internal

import (
	"fmt"
	"log/slog"

	"github.com/karloscodes/cartridge"

	"linkbio/internal/clicks"
	"linkbio/internal/config"
	"linkbio/internal/database"
	"linkbio/internal/jobs"
	"linkbio/internal/landing"
	"linkbio/internal/pkg/geoip"
	"linkbio/internal/pkg/metrics"
	"linkbio/internal/settings"
	"linkbio/web"
)

// Application wraps cartridge.Application with linkbio-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // DB manager with migration methods
	Recorder  *clicks.Recorder
	Scheduler *jobs.Scheduler
	Metrics   *metrics.Metrics
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config and
// the default routes.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	return NewAppWithRoutes(cfg, nil)
}

// NewAppWithRoutes creates a new application. A nil routeMount mounts the
// default routes over the application's dependencies.
func NewAppWithRoutes(cfg *config.Config, routeMount func(*cartridge.Server)) (*Application, error) {
	// Create logger
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize database manager with migration methods
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db := dbManager.GetConnection()
	if err := settings.SetupDefaultSettings(db, logger, settings.Defaults(cfg.DefaultLandingSlug)); err != nil {
		return nil, fmt.Errorf("failed to set up default settings: %w", err)
	}

	landingSlug, err := settings.GetSettingOr(db, settings.KeyLandingSlug, cfg.DefaultLandingSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to read landing slug: %w", err)
	}
	landingTitle, err := settings.GetSettingOr(db, settings.KeyLandingTitle, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read landing title: %w", err)
	}
	if _, err := landing.EnsureLandingPage(db, logger, landingSlug, landingTitle); err != nil {
		// A slug taken by a plain link leaves / on the not found page
		logger.Warn("Failed to ensure landing page", slog.String("slug", landingSlug), slog.Any("error", err))
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	m := metrics.NewMetrics()
	locator := geoip.NewLocator(cfg, logger)
	recorder := clicks.NewRecorder(dbManager, logger, locator,
		clicks.WithMetrics(m),
		clicks.WithTrackingLogger(clicks.NewTrackingLogger(cfg)),
		clicks.WithTimeout(cfg.GetTrackingTimeout()))

	// Only a MaxMind database can be reloaded from disk
	var geoDB jobs.Reloader
	if maxmind, ok := locator.(*geoip.MaxMindLocator); ok {
		geoDB = maxmind
	}

	// Initialize jobs system
	scheduler, err := jobs.NewScheduler(dbManager, logger, cfg, geoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	if routeMount == nil {
		routeMount = NewRouteMount(&Dependencies{
			Config:   cfg,
			Recorder: recorder,
			Metrics:  m,
			Renderer: renderer,
		})
	}

	// Create the cartridge application with the route mount
	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    routeMount,
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler, recorder},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Recorder:    recorder,
		Scheduler:   scheduler,
		Metrics:     m,
	}, nil
}
