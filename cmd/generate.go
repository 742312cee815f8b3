package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/killallgit/webbuilder/pkg/headless"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/killallgit/webbuilder/pkg/tokens"
	"github.com/killallgit/webbuilder/pkg/transcript"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one page from a prompt without the browser",
	Example: `  webbuilder generate -p "a landing page for a bakery" -o site/index.html
  webbuilder generate -p "a pricing table" --model mistral-7b --pretty`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		output, _ := cmd.Flags().GetString("output")
		model, _ := cmd.Flags().GetString("model")
		pretty, _ := cmd.Flags().GetBool("pretty")
		quiet, _ := cmd.Flags().GetBool("quiet")
		countTokens, _ := cmd.Flags().GetBool("tokens")

		if prompt == "" {
			return fmt.Errorf("--prompt is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Close()

		app, err := newApplication(cfg)
		if err != nil {
			return err
		}
		if model != "" {
			if err := app.workspace.SelectModel(model); err != nil {
				return err
			}
		}

		opts := headless.Options{
			Out:        cmd.OutOrStdout(),
			ErrOut:     cmd.ErrOrStderr(),
			OutputFile: output,
			Quiet:      quiet,
		}
		if countTokens {
			opts.Counter = tokens.NewCounter(app.workspace.Snapshot().SelectedModel)
		}
		if pretty {
			opts.Formatter = transcript.NewFormatter(100, false)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		_, err = headless.Run(ctx, app.workspace, prompt, opts)
		return err
	},
}

func init() {
	generateCmd.Flags().StringP("prompt", "p", "", "description of the page to build")
	generateCmd.Flags().StringP("output", "o", "", "write the preview document to this file")
	generateCmd.Flags().StringP("model", "m", "", "model id (default is the first configured model)")
	generateCmd.Flags().Bool("pretty", false, "print a highlighted transcript instead of raw streaming output")
	generateCmd.Flags().BoolP("quiet", "q", false, "do not echo the reply while it streams")
	generateCmd.Flags().Bool("tokens", false, "report prompt and reply token counts")
	rootCmd.AddCommand(generateCmd)
}
