// Package app wires settings into the long-lived components shared by the
// CLI commands: database, data root, metrics, ingestion and the HTTP server.
package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/patrickmn/go-cache"

	"github.com/xailab/xai-review/internal/api"
	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/conf"
	"github.com/xailab/xai-review/internal/datastore"
	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/observability"
	"github.com/xailab/xai-review/internal/securefs"
)

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// App holds the components built from one Settings.
type App struct {
	Settings  *conf.Settings
	Build     *buildinfo.Context
	Manager   *datastore.Manager
	Store     *repository.Store
	FS        *securefs.SecureFS
	Metrics   *observability.Metrics
	ImageSets *cache.Cache
	Ingest    *ingest.Service
}

// OpenDatabase connects to the configured database without migrating.
func OpenDatabase(ctx context.Context, settings *conf.Settings) (*datastore.Manager, error) {
	return datastore.Open(ctx, &datastore.Config{
		URL:                settings.Database.URL,
		MaxOpenConns:       settings.Database.MaxOpenConns,
		MaxIdleConns:       settings.Database.MaxIdleConns,
		ConnMaxLifetime:    settings.Database.ConnMaxLifetime,
		SlowQueryThreshold: settings.Database.SlowQueryThreshold,
	})
}

// New opens and migrates the database, opens the data root and builds the
// ingestion service. The data root directory is created if missing.
func New(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) (*App, error) {
	if err := os.MkdirAll(settings.Images.Path, 0o750); err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryFileIO).
			FileContext(settings.Images.Path).
			Build()
	}

	sfs, err := securefs.New(settings.Images.Path)
	if err != nil {
		return nil, err
	}
	sfs.SetMaxReadFileSize(settings.Images.MaxFileSize)

	manager, err := OpenDatabase(ctx, settings)
	if err != nil {
		_ = sfs.Close()
		return nil, err
	}
	if err := manager.Migrate(ctx); err != nil {
		_ = manager.Close()
		_ = sfs.Close()
		return nil, err
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		_ = manager.Close()
		_ = sfs.Close()
		return nil, err
	}

	a := &App{
		Settings:  settings,
		Build:     build,
		Manager:   manager,
		Store:     repository.NewStore(manager.DB(), manager.Dialect()),
		FS:        sfs,
		Metrics:   metrics,
		ImageSets: api.NewImageSetCache(settings.Images.CacheTTL),
	}

	lockFile := settings.Images.LockFile
	if lockFile != "" && !filepath.IsAbs(lockFile) {
		lockFile = filepath.Join(settings.Images.Path, lockFile)
	}
	a.Ingest = ingest.NewService(sfs, a.Store, settings.Images.PatientNumberWidth,
		ingest.WithLockFile(lockFile),
		ingest.WithRecorder(metrics.Ingest),
		api.FlushImageSetsOnIngest(a.ImageSets))

	GetLogger().Info("Application initialized",
		logger.String("version", build.Version()),
		logger.String("database", manager.Location()),
		logger.String("data_root", sfs.BaseDir()),
		logger.String("lock_file", a.Ingest.LockPath()))

	return a, nil
}

// NewServer builds the HTTP server on top of the app's components.
func (a *App) NewServer() (*api.Server, error) {
	return api.New(a.Settings,
		api.WithStore(a.Store),
		api.WithSecureFS(a.FS),
		api.WithIngestService(a.Ingest),
		api.WithMetrics(a.Metrics),
		api.WithPinger(a.Manager),
		api.WithBuildInfo(a.Build),
		api.WithImageSetCache(a.ImageSets))
}

// Close releases the database and the data root.
func (a *App) Close() error {
	return errors.Join(a.Manager.Close(), a.FS.Close())
}
