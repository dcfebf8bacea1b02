package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/output"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List selectable review models",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		list := models.All()
		if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
			list = models.ByProvider(provider)
		}

		rendered, err := output.NewFormatter(format).FormatModels(list)
		if err != nil {
			return err
		}
		return writeOutput(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().String("provider", "", "only list models for this provider (anthropic, google)")
	addOutputFlags(modelsCmd)
}
