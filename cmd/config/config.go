// Package config implements the configuration inspection commands.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xailab/xai-review/internal/conf"
)

// Command creates the config command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(showCommand(settings))
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := settings.MarshalRedactedYAML()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if path := conf.ConfigFileUsed(); path != "" {
				if _, err := fmt.Fprintf(w, "# config file: %s\n", path); err != nil {
					return err
				}
			}
			_, err = w.Write(out)
			return err
		},
	}
}
