package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/medvision-runner/internal/output"
	"github.com/daryltucker/medvision-runner/internal/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage the built-in prompt templates",
}

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Write the built-in prompt templates to a directory for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output.Logger.Info("Exporting prompts...", "target", args[0])

		written, err := prompt.Export(args[0])
		for _, path := range written {
			output.Logger.Info("Exported prompt", "path", path)
		}
		if err != nil {
			return err
		}

		output.Logger.Info("Export Complete", "total_files", len(written))
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(promptsCmd)
}
