// Package migrate implements the schema migration command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xailab/xai-review/internal/app"
	"github.com/xailab/xai-review/internal/conf"
	"github.com/xailab/xai-review/internal/logger"
)

// Command creates a new cobra.Command that migrates the database schema.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.OpenDatabase(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() {
				if err := manager.Close(); err != nil {
					app.GetLogger().Warn("Failed to close database", logger.Error(err))
				}
			}()

			if err := manager.Migrate(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s, %s)\n", manager.Dialect(), manager.Location())
			return err
		},
	}
}
