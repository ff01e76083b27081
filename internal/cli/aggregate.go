package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/medvision-runner/internal/aggregate"
)

var (
	aggregateFolders []string
	aggregateOut     string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Combine per-folder sum.xlsx files into one workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(aggregateFolders) > 0 {
			cfg.Folders = aggregateFolders
		}
		if aggregateOut != "" {
			cfg.CombinedFile = aggregateOut
		}
		if len(cfg.Folders) == 0 {
			return fmt.Errorf("no folders given (use --folders or 'folders' in the config file)")
		}

		report, err := aggregate.Combine(cfg.Folders, cfg.CombinedFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Combined %d sheets into %s (%d missing)\n",
			len(report.Sheets), report.Dest, len(report.Missing))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringSliceVar(&aggregateFolders, "folders", nil, "Comma-separated result folders (overrides config)")
	aggregateCmd.Flags().StringVar(&aggregateOut, "out", "", "Combined workbook path (default combined_sum.xlsx)")
}
