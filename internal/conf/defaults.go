package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers default values for every setting
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("server.addr", "0.0.0.0:3000")
	viper.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("server.body_limit", "1M")
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.ingest_rate_limit", 1.0)

	viper.SetDefault("database.url", "sqlite://xai-review.db")
	viper.SetDefault("database.max_open_conns", 5)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Hour)
	viper.SetDefault("database.slow_query_threshold", 200*time.Millisecond)

	viper.SetDefault("images.path", "data")
	viper.SetDefault("images.patient_number_width", 3)
	viper.SetDefault("images.lock_file", "")
	viper.SetDefault("images.cache_ttl", 5*time.Minute)
	viper.SetDefault("images.max_file_size", 32<<20)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.color", "auto")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
