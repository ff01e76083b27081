/*
PURPOSE:
  Defines the 'classify' subcommand.
  Splits every answer in the result folders into six sections and writes
  one sum.xlsx per folder.

REQUIREMENTS:
  User-specified:
  - Two strategies: line heuristic or model-assisted JSON extraction.
  - Report files with empty sections.

  Implementation-discovered:
  - Result files are named after case ids, so the ids come from the case
    workbook unless --count asks for 1..N.

ARCHITECTURE INTEGRATION:
  - Calls: internal/classify.ProcessFolder, internal/aggregate.Combine
  - Uses: internal/dataset, internal/prompt, internal/cache, internal/provider/registry

ERROR HANDLING:
  - A folder that fails is logged and the next folder is processed.

IMPLEMENTATION RULES:
  - The model strategy always uses the OpenAI JSON mode client.

USAGE:
  medvision-runner classify --strategy model --folders gpt4o_result/gpt4o_result_temp_0_try1

SELF-HEALING INSTRUCTIONS:
  - If the cache is unreachable, the command runs without it.

RELATED FILES:
  - internal/classify/folder.go
  - internal/cli/aggregate.go

MAINTENANCE:
  - Add new strategies to newClassifier.
*/

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/daryltucker/medvision-runner/internal/aggregate"
	"github.com/daryltucker/medvision-runner/internal/cache"
	"github.com/daryltucker/medvision-runner/internal/classify"
	"github.com/daryltucker/medvision-runner/internal/config"
	"github.com/daryltucker/medvision-runner/internal/dataset"
	"github.com/daryltucker/medvision-runner/internal/output"
	"github.com/daryltucker/medvision-runner/internal/prompt"
	"github.com/daryltucker/medvision-runner/internal/provider/registry"
)

var (
	strategy       string
	foldersFlag    []string
	countFlag      int
	combineFlag    bool
	combinedTarget string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Split answers into six sections and write sum.xlsx per folder",
	Example: `  # Heuristic split of the folders listed in runner.yaml
  medvision-runner classify

  # Model-assisted split, then combine everything
  medvision-runner classify --strategy model --combine`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(foldersFlag) > 0 {
			cfg.Folders = foldersFlag
		}
		if len(cfg.Folders) == 0 {
			return fmt.Errorf("no folders given (use --folders or 'folders' in the config file)")
		}

		ids, err := caseIDs(cfg)
		if err != nil {
			return err
		}

		c, closeFn, err := newClassifier(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		var reports []classify.FolderReport
		for _, folder := range cfg.Folders {
			output.Logger.Info("Processing folder", "folder", folder, "strategy", c.Name())
			report, err := classify.ProcessFolder(cmd.Context(), folder, ids, cfg.ImageExt, c)
			if err != nil {
				output.Logger.Error("Folder failed", "folder", folder, "error", err)
				if cmd.Context().Err() != nil {
					return err
				}
				continue
			}
			reports = append(reports, report)
		}

		if combineFlag {
			if combinedTarget != "" {
				cfg.CombinedFile = combinedTarget
			}
			if _, err := aggregate.Combine(cfg.Folders, cfg.CombinedFile); err != nil {
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), "\n"+classify.FormatProblems(reports))
		return nil
	},
}

func caseIDs(cfg *config.Config) ([]string, error) {
	if countFlag > 0 {
		ids := make([]string, countFlag)
		for i := range ids {
			ids[i] = strconv.Itoa(i + 1)
		}
		return ids, nil
	}
	cases, err := dataset.LoadCases(cfg.InputFile, cfg.InputSheet, cfg.IDColumn)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}
	return ids, nil
}

func newClassifier(cmd *cobra.Command, cfg *config.Config) (classify.Classifier, func(), error) {
	noop := func() {}
	switch strategy {
	case "heuristic", "":
		return classify.Heuristic{}, noop, nil
	case "model":
	default:
		return nil, noop, fmt.Errorf("unknown strategy %q (heuristic or model)", strategy)
	}

	prompts, err := prompt.LoadClassifier()
	if err != nil {
		return nil, noop, err
	}
	client, err := registry.OpenAI(cfg, cfg.Classifier.Model)
	if err != nil {
		return nil, noop, err
	}

	var store cache.Cache
	closeFn := noop
	if cc := cfg.Env.Cache; cc.Enable {
		rc := cache.NewRedisCache(cc.Addr, cc.Password, cc.DB, cc.TTL)
		if err := rc.Ping(cmd.Context()); err != nil {
			output.Logger.Warn("Cache unreachable, continuing without it", "addr", cc.Addr, "error", err)
			rc.Close()
		} else {
			store = rc
			closeFn = func() { rc.Close() }
		}
	}

	m := classify.NewModel(client, prompts, cfg.Classifier.Model, cfg.Classifier.Temperature, cfg.Classifier.MaxTokens, store)
	return m, closeFn, nil
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&strategy, "strategy", "heuristic", "Classification strategy: heuristic or model")
	classifyCmd.Flags().StringSliceVar(&foldersFlag, "folders", nil, "Comma-separated result folders (overrides config)")
	classifyCmd.Flags().IntVar(&countFlag, "count", 0, "Classify <1..count><ext>.txt instead of the ids in the case workbook")
	classifyCmd.Flags().BoolVar(&combineFlag, "combine", false, "Combine the summaries afterwards")
	classifyCmd.Flags().StringVar(&combinedTarget, "out", "", "Combined workbook path when --combine is set")
}
