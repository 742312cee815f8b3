package cmd

import (
	"fmt"

	"github.com/killallgit/webbuilder/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file with the default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := cfgFile
		if path == "" {
			path = config.DefaultConfigFile
		}
		written, err := config.InitializeDefaults(path, force)
		if err != nil {
			return err
		}
		if !written {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, use --force to replace it\n", path)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolP("force", "f", false, "replace an existing settings file (the old one is kept as a backup)")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
