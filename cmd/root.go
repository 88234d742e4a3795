// Package cmd assembles the xai-review command line.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xailab/xai-review/cmd/config"
	"github.com/xailab/xai-review/cmd/ingest"
	"github.com/xailab/xai-review/cmd/migrate"
	"github.com/xailab/xai-review/cmd/serve"
	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/conf"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/telemetry"
)

// telemetryFlushTimeout bounds how long exit waits for queued error reports.
const telemetryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command. Subcommands share
// settings, which are filled in before any of them runs.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "xai-review",
		Short:         "Review server for explainability masks of video frames",
		Version:       build.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		ingest.Command(settings, build),
		migrate.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(configFile, settings, build)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown(telemetryFlushTimeout)
		_ = logger.Global().Flush()
	}

	return rootCmd
}

// initialize loads settings and sets up logging and telemetry before any
// subcommand runs.
func initialize(configFile string, settings *conf.Settings, build *buildinfo.Context) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug && settings.Logging.DefaultLevel == logger.DefaultLogLevel {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = settings.Logging.DefaultLevel
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if path := conf.ConfigFileUsed(); path != "" {
		central.Module("conf").Debug("Loaded config file", logger.String("path", path))
	}

	if err := telemetry.InitSentry(settings, build); err != nil {
		// Telemetry is optional; keep running without it.
		central.Module("telemetry").Warn("Sentry initialization failed", logger.Error(err))
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/xai-review, /etc/xai-review)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "", "Default log level, or directives like info,ingest=debug")

	if err := viper.BindPFlags(flags); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("logging.default_level", flags.Lookup("log-level")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
