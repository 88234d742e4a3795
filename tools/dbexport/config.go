package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/xailab/xai-review/internal/datastore"
)

const (
	defaultBatchSize = 1000
	maxBatchSize     = 10000
)

// Config holds the configuration for the export tool.
type Config struct {
	SourceURL string
	TargetURL string

	BatchSize   int
	Clean       bool
	AutoMigrate bool
	SkipVerify  bool
	Verbose     bool

	// Config file path for the source fallback
	ConfigPath string
}

// Load validates the configuration, reading the source URL from config.yaml
// when no --source flag was given.
func (c *Config) Load() error {
	if c.SourceURL == "" {
		if err := c.loadFromConfigFile(); err != nil || c.SourceURL == "" {
			return fmt.Errorf("--source is required (or provide config.yaml with database.url)")
		}
	}
	if c.TargetURL == "" {
		return fmt.Errorf("--target is required")
	}
	if c.SourceURL == c.TargetURL {
		return fmt.Errorf("source and target are the same database")
	}

	source, err := datastore.ParseDatabaseURL(c.SourceURL)
	if err != nil {
		return err
	}
	if _, err := datastore.ParseDatabaseURL(c.TargetURL); err != nil {
		return err
	}

	// Opening a missing SQLite file would create an empty source.
	if source.Dialect == datastore.DialectSQLite && !source.Memory {
		if _, err := os.Stat(sqlitePath(source.DSN)); os.IsNotExist(err) {
			return fmt.Errorf("SQLite database not found: %s", source.Display)
		}
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch-size must be at least 1")
	}
	if c.BatchSize > maxBatchSize {
		return fmt.Errorf("batch-size too large (max %d)", maxBatchSize)
	}

	return nil
}

// loadFromConfigFile reads database.url from config.yaml.
func (c *Config) loadFromConfigFile() error {
	v := viper.New()

	configPath := c.ConfigPath
	if configPath == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			p := filepath.Join(homeDir, ".config", "xai-review", "config.yaml")
			if _, statErr := os.Stat(p); statErr == nil {
				configPath = p
			}
		}
		if configPath == "" {
			configPath = "config.yaml"
		}
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	c.SourceURL = v.GetString("database.url")
	return nil
}

// sqlitePath strips the file: scheme and driver parameters from a SQLite DSN.
func sqlitePath(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return path
}
