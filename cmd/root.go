package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/webbuilder/pkg/config"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "webbuilder",
	Short: "Describe a web page, watch it being built",
	Long: `webbuilder turns plain language descriptions into HTML pages using an
OpenAI-compatible model endpoint. Running it without a subcommand starts the
builder in your browser.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .webbuilder/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("base-url", "", "OpenAI-compatible endpoint, e.g. http://localhost:1234/v1")
	viper.BindPFlag("endpoint.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
}

// loadConfig reads settings and starts the file logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(); err != nil {
		return nil, err
	}
	if used := config.GetConfigFileUsed(); used != "" {
		logger.Info("Using config file: %s", used)
	}
	return cfg, nil
}
