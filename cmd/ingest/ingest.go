// Package ingest implements the one-shot ingestion command.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xailab/xai-review/internal/app"
	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/conf"
	ingestion "github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/observability/metrics"
)

// Command creates a new cobra.Command that ingests the image tree once.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scan the image tree and record new frames and masks",
		Long: `Scan the image directory and insert frames and masks that are not yet
recorded. Without --patient only directories above the highest known patient
number are scanned; with --patient the named directories are rescanned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options{
				patients: viper.GetStringSlice("ingest.patients"),
				strict:   viper.GetBool("ingest.strict"),
				json:     viper.GetBool("ingest.json"),
			}
			return run(cmd, settings, build, opts)
		},
	}

	setupFlags(cmd)

	return cmd
}

type options struct {
	patients []string
	strict   bool
	json     bool
}

// setupFlags defines flags specific to the ingest command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("patient", "p", nil, "Patient directory to rescan, repeatable")
	cmd.Flags().Bool("strict", false, "Exit non-zero when any directory or file failed")
	cmd.Flags().Bool("json", false, "Print the report as JSON")

	_ = viper.BindPFlag("ingest.patients", cmd.Flags().Lookup("patient"))
	_ = viper.BindPFlag("ingest.strict", cmd.Flags().Lookup("strict"))
	_ = viper.BindPFlag("ingest.json", cmd.Flags().Lookup("json"))
}

func run(cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context, opts options) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, settings, build)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			app.GetLogger().Warn("Failed to close application", logger.Error(err))
		}
	}()

	var report *ingestion.Report
	if len(opts.patients) > 0 {
		report, err = a.Ingest.RunPatients(ctx, opts.patients)
	} else {
		report, err = a.Ingest.Run(ctx)
	}

	if report != nil {
		if perr := printReport(cmd.OutOrStdout(), report, opts.json); perr != nil {
			return perr
		}
	}

	return exitError(report, err, opts.strict)
}

// exitError maps a run outcome to the command's error.
func exitError(report *ingestion.Report, err error, strict bool) error {
	switch ingestion.RunStatus(report, err) {
	case metrics.StatusFailed:
		if err == nil {
			err = fmt.Errorf("ingestion produced no report")
		}
		return err
	case metrics.StatusPartial:
		if strict {
			return fmt.Errorf("ingestion finished with %d error(s)", len(report.Errors))
		}
	}
	return nil
}

func printReport(w io.Writer, report *ingestion.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err := io.WriteString(w, renderReport(report))
	return err
}
