/*
PURPOSE:
  Defines the 'providers' subcommand.
  Helps check credentials and model settings before a long batch.

REQUIREMENTS:
  User-specified:
  - List available providers.

  Implementation-discovered:
  - Useful validation step before a full run; a missing key otherwise
    only shows up when the run starts.

ARCHITECTURE INTEGRATION:
  - Calls: internal/provider/registry.Names()

ERROR HANDLING:
  - Only config loading can fail.

IMPLEMENTATION RULES:
  - Simple output to stdout. Never print key material.

USAGE:
  medvision-runner providers

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/config/env.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/medvision-runner/internal/provider/registry"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers, their models and whether a credential is set",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, name := range registry.Names() {
			s := cfg.ProviderSettings(name)
			key := "missing"
			if cfg.Env.Credentials.APIKey(name) != "" {
				key = "set"
			}
			marker := " "
			if name == cfg.Provider {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-10s model=%s label=%s max_tokens=%d key=%s endpoint=%s\n",
				marker, name, s.Model, s.Label, s.MaxTokens, key, cfg.Env.Credentials.BaseURL(name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
