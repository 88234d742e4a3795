// Package datastore opens the review database and owns its schema.
// Data access lives in the repository subpackage.
package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xailab/xai-review/internal/datastore/entities"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
)

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// Config holds connection settings for Open.
type Config struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	SlowQueryThreshold time.Duration
	// Logger receives SQL tracing. Defaults to the datastore module logger.
	Logger logger.Logger
}

// Manager owns the database connection.
type Manager struct {
	db     *gorm.DB
	target DatabaseTarget
}

// Open connects to the database named by cfg.URL. It does not migrate.
func Open(ctx context.Context, cfg *Config) (*Manager, error) {
	target, err := ParseDatabaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = GetLogger()
	}

	var dialector gorm.Dialector
	switch target.Dialect {
	case DialectSQLite:
		if err := ensureSQLiteDirectory(target.DSN, target.Memory); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(target.DSN)
	case DialectMySQL:
		dialector = mysql.Open(target.DSN)
	case DialectPostgres:
		dialector = postgres.Open(target.DSN)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", target.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log.Module("sql"), cfg.SlowQueryThreshold),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open %s database: %w", target.Dialect, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("database", target.Display).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	switch {
	case target.Memory:
		// Every new connection to :memory: is a fresh, empty database.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	default:
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.New(fmt.Errorf("database ping failed: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("database", target.Display).
			Build()
	}

	log.Info("Database connected",
		logger.String("dialect", string(target.Dialect)),
		logger.String("database", target.Display))

	return &Manager{db: db, target: target}, nil
}

// ensureSQLiteDirectory creates the parent directory of a file-backed database.
func ensureSQLiteDirectory(dsn string, memory bool) error {
	if memory {
		return nil
	}
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.New(fmt.Errorf("failed to create database directory: %w", err)).
			Component("datastore").
			Category(errors.CategoryFileIO).
			FileContext(dir).
			Build()
	}
	return nil
}

// Migrate creates or updates the schema for all entities.
func (m *Manager) Migrate(ctx context.Context) error {
	start := time.Now()
	if err := m.db.WithContext(ctx).AutoMigrate(entities.All()...); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Timing("auto-migrate", time.Since(start)).
			Build()
	}
	GetLogger().Debug("Schema migrated",
		logger.String("dialect", string(m.target.Dialect)),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// DB returns the underlying GORM database.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Dialect returns the backend in use.
func (m *Manager) Dialect() Dialect {
	return m.target.Dialect
}

// Location returns the redacted database URL.
func (m *Manager) Location() string {
	return m.target.Display
}

// Ping checks that the database is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
