// Package serve implements the HTTP server command.
package serve

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xailab/xai-review/internal/app"
	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/conf"
	"github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/logger"
)

// Command creates a new cobra.Command that runs the HTTP server.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review HTTP server",
		Long:  "Serve the review API until SIGINT or SIGTERM. The database is migrated on startup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr := viper.GetString("serve.addr"); addr != "" {
				settings.Server.Addr = addr
			}
			return run(cmd.Context(), settings, build, viper.GetBool("serve.ingest_on_start"))
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags defines flags specific to the serve command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "Listen address, overrides server.addr")
	cmd.Flags().Bool("ingest-on-start", false, "Run an incremental ingestion once the server is up")

	_ = viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.ingest_on_start", cmd.Flags().Lookup("ingest-on-start"))
}

func run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context, ingestOnStart bool) error {
	a, err := app.New(ctx, settings, build)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			app.GetLogger().Warn("Failed to close application", logger.Error(err))
		}
	}()

	server, err := a.NewServer()
	if err != nil {
		return err
	}

	if ingestOnStart {
		go startupIngest(ctx, a.Ingest)
	}

	return server.StartWithGracefulShutdown(ctx)
}

// startupIngest runs one incremental ingestion and only logs the outcome.
func startupIngest(ctx context.Context, svc *ingest.Service) {
	log := app.GetLogger()
	report, err := svc.Run(ctx)
	if err != nil {
		log.Warn("Startup ingestion failed", logger.Error(err))
		return
	}
	log.Info("Startup ingestion finished",
		logger.String("run_id", report.RunID),
		logger.Int("records_created", report.RecordsCreated()),
		logger.Int("errors", len(report.Errors)))
}
