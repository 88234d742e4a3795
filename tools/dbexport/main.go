// Package main provides a CLI tool for copying review data between database
// backends, for example from a local SQLite file into MySQL or PostgreSQL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (can be set via ldflags during build)
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dbexport",
	Short: "Copy xai-review data between database backends",
	Long: `Copy users, frames, masks and preferences from one database into another.

Both ends are database URLs as accepted by xai-review (sqlite://, mysql://,
postgres://). Primary keys are preserved, so mask ids referenced by existing
preferences stay valid. Rows already present in the target are skipped.`,
	SilenceUsage: true,
	RunE:         runExport,
}

var cfg Config

func init() {
	rootCmd.Flags().StringVar(&cfg.SourceURL, "source", "", "Source database URL (default: database.url from config.yaml)")
	rootCmd.Flags().StringVar(&cfg.TargetURL, "target", "", "Target database URL")

	rootCmd.Flags().IntVar(&cfg.BatchSize, "batch-size", defaultBatchSize, "Number of records per batch")
	rootCmd.Flags().BoolVar(&cfg.Clean, "clean", false, "Delete all rows from target tables before copying")
	rootCmd.Flags().BoolVar(&cfg.AutoMigrate, "auto-migrate", true, "Create tables in the target database before copying")
	rootCmd.Flags().BoolVar(&cfg.SkipVerify, "skip-verify", false, "Skip post-copy verification")
	rootCmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose output")

	rootCmd.Flags().StringVar(&cfg.ConfigPath, "config", "", "Path to config.yaml (for the source fallback)")

	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

func runExport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if v, _ := cmd.Flags().GetBool("version"); v {
		_, err := fmt.Fprintf(out, "dbexport version %s\n", version)
		return err
	}

	if err := cfg.Load(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx := cmd.Context()
	migrator, err := NewMigrator(ctx, &cfg, out)
	if err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}
	defer migrator.Close()

	if cfg.Verbose {
		_, _ = fmt.Fprintf(out, "Source: %s\nTarget: %s\nBatch size: %d\n",
			migrator.source.Location(), migrator.target.Location(), cfg.BatchSize)
	}

	stats, err := migrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	stats.Print(out)

	if !cfg.SkipVerify {
		_, _ = fmt.Fprintln(out, "\n--- Verification ---")
		verifier := NewVerifier(migrator.source.DB(), migrator.target.DB(), out)
		if err := verifier.Verify(ctx); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		_, _ = fmt.Fprintln(out, "Verification passed!")
	}

	return nil
}
