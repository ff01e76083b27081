/*
PURPOSE:
  Defines the root Cobra command for the MedVision Runner CLI.
  Handles global flags, configuration loading and logger setup.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config and --log-level.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Every subcommand loads the same config, so loading lives here.
  - Ctrl-C must reach the request loop so the timing table is saved.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/medvision-runner/main.go
  - Calls: Child commands (run, classify, aggregate, providers, prompts)

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/medvision-runner/main.go
  - internal/config/config.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daryltucker/medvision-runner/internal/config"
	"github.com/daryltucker/medvision-runner/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "medvision-runner",
		Short: "Batch vision-model queries over medical image cases",
		Long: `Queries vision-capable chat models with medical images and a six-part question,
stores the free-text answers, and summarises them into spreadsheets.
Use 'run --help' for batch options.`,
		SilenceUsage: true,
	}
)

// Execute executes the root command. SIGINT/SIGTERM cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the configuration and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	output.SetLevel(output.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./runner.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
