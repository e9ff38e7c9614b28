package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"workflowdesk/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the workflowdesk config file",
		// The file may not exist yet, so it is not loaded here.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.setupOutput()
			return nil
		},
	}
	cmd.AddCommand(newConfigPathCommand(app), newConfigInitCommand(app))
	return cmd
}

func newConfigPathCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.flags.configPath
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return app.fail(err)
				}
				path = p
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigInitCommand(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings.

The file goes to --config when given, otherwise to the user config
directory, which is created if needed. An existing file is kept unless
--force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(app.flags.configPath, force)
			if err != nil {
				return app.fail(err)
			}
			app.Printer.Success("Wrote " + path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
