// Package conf loads xai-review settings from defaults, config.yaml and the
// environment, in increasing order of precedence.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
)

// Settings contains all configuration options for the service.
type Settings struct {
	Debug    bool                 `yaml:"debug" mapstructure:"debug"`
	Server   ServerSettings       `yaml:"server" mapstructure:"server"`
	Database DatabaseSettings     `yaml:"database" mapstructure:"database"`
	Images   ImagesSettings       `yaml:"images" mapstructure:"images"`
	Logging  logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Sentry   SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Metrics  MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
}

// ServerSettings configures the HTTP listener
type ServerSettings struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	BodyLimit       string        `yaml:"body_limit" mapstructure:"body_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// IngestRateLimit is the number of ingestion triggers allowed per second
	// per client; 0 disables the limiter.
	IngestRateLimit float64 `yaml:"ingest_rate_limit" mapstructure:"ingest_rate_limit"`
}

// DatabaseSettings configures the relational store
type DatabaseSettings struct {
	// URL selects the backend: postgres://, mysql://, sqlite:// or a bare sqlite path.
	URL                string        `yaml:"url" mapstructure:"url"`
	MaxOpenConns       int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
}

// ImagesSettings configures the data root and ingestion
type ImagesSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
	// PatientNumberWidth is the zero-padding width of patient folder names.
	PatientNumberWidth int           `yaml:"patient_number_width" mapstructure:"patient_number_width"`
	LockFile           string        `yaml:"lock_file" mapstructure:"lock_file"`
	CacheTTL           time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxFileSize        int64         `yaml:"max_file_size" mapstructure:"max_file_size"`
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration into a new Settings instance. An explicit
// configFile must exist; otherwise config.yaml is looked up in the default
// paths and a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := applyLogDirectives(settings, viper.GetString("logging.default_level")); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and environment bindings, then reads the config file
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file %s: %w", configFile, err)).
				Category(errors.CategoryConfiguration).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range DefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// DefaultConfigPaths returns the directories searched for config.yaml
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "xai-review"))
	}
	return append(paths, "/etc/xai-review")
}

// GetSettings returns the most recently loaded settings, or nil
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the config file that was read, if any
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// MarshalRedactedYAML renders settings with secrets masked, for `config show`
func (s *Settings) MarshalRedactedYAML() ([]byte, error) {
	redacted := *s
	redacted.Database.URL = logger.RedactSensitiveData(s.Database.URL)
	if redacted.Sentry.DSN != "" {
		redacted.Sentry.DSN = "[REDACTED]"
	}
	return yaml.Marshal(&redacted)
}
