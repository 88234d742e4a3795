package conf

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/xailab/xai-review/internal/logger"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// getEnvBindings returns the environment variables the service honours.
// The names match the deployment's existing .env files.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"database.url", "DATABASE_URL", nil},
		{"server.addr", "SERVER_ADDR", validateEnvAddr},
		{"logging.default_level", "LOG_LEVEL", validateEnvLogDirectives},
		{"images.path", "IMAGES_PATH", nil},
		{"sentry.dsn", "SENTRY_DSN", nil},
	}
}

// bindEnvVars binds environment variables and validates any that are set
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvAddr(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	return nil
}

func validateEnvLogDirectives(value string) error {
	_, _, err := parseLogDirectives(value)
	return err
}

// parseLogDirectives accepts either a bare level ("debug") or a filter list
// such as "info,datastore=trace,api=warn". Directives for unknown targets are
// kept; the logger simply never asks for them.
func parseLogDirectives(value string) (defaultLevel string, modules map[string]string, err error) {
	for part := range strings.SplitSeq(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		target, level, hasTarget := strings.Cut(part, "=")
		if !hasTarget {
			level, target = target, ""
		}
		level = strings.ToLower(strings.TrimSpace(level))
		if !logger.ValidLevel(level) {
			return "", nil, fmt.Errorf("unknown log level %q", level)
		}
		if target == "" {
			defaultLevel = level
			continue
		}
		if modules == nil {
			modules = make(map[string]string)
		}
		modules[strings.TrimSpace(target)] = level
	}
	return defaultLevel, modules, nil
}

// applyLogDirectives splits a LOG_LEVEL style value into the default level
// and per-module overrides. Explicit module_levels from the config file win.
func applyLogDirectives(settings *Settings, value string) error {
	if !strings.ContainsAny(value, ",=") {
		return nil
	}
	defaultLevel, modules, err := parseLogDirectives(value)
	if err != nil {
		return err
	}
	if defaultLevel == "" {
		defaultLevel = logger.DefaultLogLevel
	}
	settings.Logging.DefaultLevel = defaultLevel
	if settings.Logging.ModuleLevels == nil {
		settings.Logging.ModuleLevels = make(map[string]string, len(modules))
	}
	for module, level := range modules {
		if _, exists := settings.Logging.ModuleLevels[module]; !exists {
			settings.Logging.ModuleLevels[module] = level
		}
	}
	return nil
}
