/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the batch for one provider.

REQUIREMENTS:
  User-specified:
  - Run every (temperature, try) over every case.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config, internal/provider/registry

ERROR HANDLING:
  - Returns error if config load, provider setup or the run fails.
  - Quota exhaustion surfaces as an error, so the process exits 1.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Build Provider -> Engine.Run.

USAGE:
  medvision-runner run --provider anthropic --temperatures 0,0.5

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/medvision-runner/internal/config"
	"github.com/daryltucker/medvision-runner/internal/engine"
	"github.com/daryltucker/medvision-runner/internal/output"
	"github.com/daryltucker/medvision-runner/internal/provider/registry"
)

var (
	providerOverride     string
	temperaturesOverride []float64
	triesOverride        int
	outputOverride       string
	promptFile           string
	inputOverride        string
	imageDirOverride     string
	metricsOverride      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the case batch against one provider",
	Long: `Sends every case of the input workbook to one provider, once per temperature
and try. Each (temperature, try) gets its own folder:

  <root>/<label>_result/<label>_result_temp_<T>_try<N>/<id>.png.txt

Cases whose result file already exists are skipped, so an interrupted batch
resumes where it stopped. Execution times go to <Label>_execution_times.xlsx and
failures to process_log_<label>.txt.`,
	Example: `  # Run with defaults (uses runner.yaml if present)
  medvision-runner run

  # Claude at two temperatures, three tries each
  medvision-runner run --provider anthropic --temperatures 0,1 --tries 3

  # Use a custom prompt template
  medvision-runner run -p ./prompts/case.tmpl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		p, err := registry.Build(cfg.Provider, cfg)
		if err != nil {
			return err
		}

		summary, err := engine.Run(cmd.Context(), cfg, p)
		output.Logger.Info("Run finished",
			"provider", p.Name(),
			"done", summary.Done,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"missing_image", summary.Missing,
		)
		return err
	},
}

func applyRunOverrides(cmd *cobra.Command, cfg *config.Config) {
	if providerOverride != "" {
		cfg.Provider = providerOverride
	}
	if len(temperaturesOverride) > 0 {
		cfg.Temperatures = temperaturesOverride
	}
	if cmd.Flags().Changed("tries") {
		cfg.Tries = triesOverride
	}
	if outputOverride != "" {
		cfg.ResultRoot = outputOverride
	}
	if promptFile != "" {
		cfg.PromptFile = promptFile
	}
	if inputOverride != "" {
		cfg.InputFile = inputOverride
	}
	if imageDirOverride != "" {
		cfg.ImageDir = imageDirOverride
	}
	if metricsOverride != "" {
		cfg.MetricsFile = metricsOverride
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&providerOverride, "provider", "", "Provider to query: openai, anthropic or gemini")
	runCmd.Flags().Float64SliceVar(&temperaturesOverride, "temperatures", nil, "Comma-separated sampling temperatures")
	runCmd.Flags().IntVar(&triesOverride, "tries", 1, "Repetitions per temperature")
	runCmd.Flags().StringVarP(&outputOverride, "output-dir", "o", "", "Root directory for result folders, timing and log files")
	runCmd.Flags().StringVarP(&promptFile, "prompt-file", "p", "", "Path to a case prompt template (overrides config)")
	runCmd.Flags().StringVar(&inputOverride, "input", "", "Input case workbook (.xlsx)")
	runCmd.Flags().StringVar(&imageDirOverride, "images", "", "Directory holding <id>.png images")
	runCmd.Flags().StringVar(&metricsOverride, "metrics-file", "", "Write Prometheus metrics to this file when the run ends")
}
