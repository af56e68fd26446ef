// Package application wires shelfmark's components together.
package application

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/logging"
	"github.com/shelfmark/shelfmark/internal/services"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

// Overrides carries command-line values that take precedence over the
// config file and environment.
type Overrides struct {
	CatalogPath string
	LogLevel    string
}

// NewContainer creates the container with every provider registered.
// Nothing is opened until first invoked.
func NewContainer(overrides Overrides) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, overrides)

	// Core infrastructure
	do.Provide(injector, ProvideConfig)
	do.Provide(injector, ProvideLogger)

	// Stores
	do.Provide(injector, ProvideDatabase)
	do.Provide(injector, ProvideCatalog)

	// Guarded services
	do.Provide(injector, ProvideStatusService)
	do.Provide(injector, ProvideActionLogService)

	// Commands
	do.Provide(injector, ProvideTracker)

	return injector
}

// Tracker resolves the command surface, opening everything it depends on.
func Tracker(injector do.Injector) (*usecase.Tracker, error) {
	return do.Invoke[*usecase.Tracker](injector)
}

// ProvideConfig loads the configuration and applies overrides.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	overrides := do.MustInvoke[Overrides](i)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if overrides.CatalogPath != "" {
		cfg.CatalogPath = overrides.CatalogPath
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	return cfg, nil
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logging.New(cfg.LogLevel)
	log.Debug("configuration loaded",
		"data_dir", cfg.DataDir,
		"database", cfg.DBPath,
		"action_log", cfg.LogPath,
		"catalog", cfg.CatalogPath,
	)
	return log, nil
}

// DatabaseHandle owns the open database so the container can close it.
type DatabaseHandle struct {
	*database.Context
}

// Shutdown closes the database.
func (h *DatabaseHandle) Shutdown() error {
	return database.CloseDatabase(h.Context)
}

// ProvideDatabase opens the status database, creating it if needed.
func ProvideDatabase(i do.Injector) (*DatabaseHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	dbCtx, err := database.CreateDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &DatabaseHandle{Context: dbCtx}, nil
}

// ProvideCatalog loads the catalog file once.
func ProvideCatalog(i do.Injector) (*catalog.Catalog, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Debug("catalog loaded", "path", cfg.CatalogPath, "items", cat.Len())
	return cat, nil
}

// ProvideStatusService provides the guarded status store.
func ProvideStatusService(i do.Injector) (*services.StatusService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	log := do.MustInvoke[*slog.Logger](i)
	return services.NewStatusService(db.Context, log), nil
}

// ProvideActionLogService provides the guarded flat action log.
func ProvideActionLogService(i do.Injector) (*services.ActionLogService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	return services.NewActionLogService(cfg.LogPath, log), nil
}

// ProvideTracker provides the command surface.
func ProvideTracker(i do.Injector) (*usecase.Tracker, error) {
	statuses := do.MustInvoke[*services.StatusService](i)
	actions := do.MustInvoke[*services.ActionLogService](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	log := do.MustInvoke[*slog.Logger](i)
	return usecase.NewTracker(statuses, actions, cat, log), nil
}
