package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models",
	Long: `List the models offered in the model dropdown. With --remote the endpoint
is asked which models it actually serves.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetBool("remote")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Close()

		served := map[string]bool{}
		if remote {
			client, err := chat.NewClientWithTimeout(cfg.Endpoint.BaseURL, cfg.Endpoint.APIKey, cfg.Endpoint.Timeout)
			if err != nil {
				return err
			}
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing models: %w", err)
			}
			for _, m := range models {
				served[m.ID] = true
			}
		}

		marker := lipgloss.NewStyle().Foreground(lipgloss.Color("#32CD32"))
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS")
		for i, m := range catalogue(cfg) {
			status := ""
			if i == 0 {
				status = "default"
			}
			if remote {
				if served[m.ID] {
					status = joinStatus(status, marker.Render("served"))
				} else {
					status = joinStatus(status, "not served")
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, status)
		}
		return w.Flush()
	},
}

func joinStatus(a, b string) string {
	if a == "" {
		return b
	}
	return a + ", " + b
}

func init() {
	modelsCmd.Flags().Bool("remote", false, "ask the endpoint which models it serves")
	rootCmd.AddCommand(modelsCmd)
}
