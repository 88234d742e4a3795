package conf

import (
	"fmt"
	"net"
	"strings"

	"github.com/labstack/gommon/bytes"

	"github.com/xailab/xai-review/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateServerSettings(&settings.Server); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateImagesSettings(&settings.Images); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}
	if settings.Metrics.Enabled && !strings.HasPrefix(settings.Metrics.Path, "/") {
		ve.Errors = append(ve.Errors, fmt.Sprintf("metrics path must start with '/', got %q", settings.Metrics.Path))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateServerSettings(settings *ServerSettings) error {
	if _, _, err := net.SplitHostPort(settings.Addr); err != nil {
		return fmt.Errorf("server address %q is not host:port: %w", settings.Addr, err)
	}
	if settings.BodyLimit != "" {
		if _, err := bytes.Parse(settings.BodyLimit); err != nil {
			return fmt.Errorf("invalid body limit %q: %w", settings.BodyLimit, err)
		}
	}
	if settings.IngestRateLimit < 0 {
		return fmt.Errorf("ingest rate limit must not be negative, got %v", settings.IngestRateLimit)
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	if strings.TrimSpace(settings.URL) == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	if settings.MaxOpenConns < 0 || settings.MaxIdleConns < 0 {
		return fmt.Errorf("connection pool sizes must not be negative")
	}
	return nil
}

func validateImagesSettings(settings *ImagesSettings) error {
	if strings.TrimSpace(settings.Path) == "" {
		return fmt.Errorf("images path is required (set IMAGES_PATH)")
	}
	if settings.PatientNumberWidth < 1 || settings.PatientNumberWidth > 9 {
		return fmt.Errorf("patient number width must be between 1 and 9, got %d", settings.PatientNumberWidth)
	}
	if settings.MaxFileSize < 0 {
		return fmt.Errorf("max file size must not be negative")
	}
	return nil
}

func validateLoggingSettings(settings *logger.LoggingConfig) error {
	if settings.DefaultLevel != "" && !logger.ValidLevel(settings.DefaultLevel) {
		return fmt.Errorf("unknown log level %q", settings.DefaultLevel)
	}
	for module, level := range settings.ModuleLevels {
		if !logger.ValidLevel(level) {
			return fmt.Errorf("unknown log level %q for module %s", level, module)
		}
	}
	return nil
}
