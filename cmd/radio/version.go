package main

import (
	"fmt"

	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/spf13/cobra"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s v%s\n", config.AppName, config.AppVersion)
			fmt.Fprintln(out, config.AppDescription)
			if configPath, err := config.GetConfigPath(); err == nil {
				fmt.Fprintf(out, "Config file: %s\n", configPath)
			}
			return nil
		},
	}
}

func cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the logo cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove all cached station logos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			removed, err := app.images.Clear()
			if err != nil {
				return fmt.Errorf("failed to clean cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached logos from %s\n", removed, app.images.Dir())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), app.images.Dir())
			if app.debug {
				fmt.Fprintln(cmd.OutOrStdout(), app.images.LogPath())
			}
			return nil
		},
	})

	return cmd
}
