package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/killallgit/webbuilder/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the builder in the browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Close()
	addr := cfg.Server.Addr

	app, err := newApplication(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(app.workspace, server.Options{Lister: app.client})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Builder running on http://%s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}
