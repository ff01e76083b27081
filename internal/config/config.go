/*
PURPOSE:
  Defines the configuration structure and loading logic for MedVision Runner.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of input sheet, image folder, providers, temperatures and tries.
  - API credentials come from the environment, never from the file.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs environment parsing for credentials, endpoints and the Redis cache.
  - Retry ceilings and image limits must be tunable for tests.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/provider, internal/classify
  - Dependencies: gopkg.in/yaml.v3, github.com/caarlos0/env/v11

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config files fall back to defaults.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults match the Radiographics q401 data set layout.

USAGE:
  cfg, err := config.Load("runner.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/config/env.go
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MiB is one mebibyte.
const MiB = 1024 * 1024

// ProviderConfig tunes a single provider.
type ProviderConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	// Label overrides the folder/file prefix, e.g. "gpt4o" or "Claude".
	Label string `yaml:"label"`
}

// ClassifierConfig tunes the model-assisted classifier.
type ClassifierConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Config represents the full configuration for MedVision Runner.
type Config struct {
	InputFile  string `yaml:"input_file"`
	InputSheet string `yaml:"input_sheet"` // empty means the first sheet
	IDColumn   string `yaml:"id_column"`   // empty means `no.` then `random_rank`
	ImageDir   string `yaml:"image_dir"`
	ImageExt   string `yaml:"image_ext"`
	ResultRoot string `yaml:"result_root"`

	Provider     string                    `yaml:"provider"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Temperatures []float64                 `yaml:"temperatures"`
	Tries        int                       `yaml:"tries"`

	MaxAttempts    int           `yaml:"max_attempts"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryDelay     time.Duration `yaml:"retry_delay"`

	MaxImageBytes  int     `yaml:"max_image_bytes"`
	MinImageSide   int     `yaml:"min_image_side"`
	EncodeAttempts int     `yaml:"encode_attempts"`
	ShrinkRatio    float64 `yaml:"shrink_ratio"`

	PromptFile        string `yaml:"prompt_file"`
	TimingFilePattern string `yaml:"timing_file_pattern"` // %s is the provider label
	LogFilePattern    string `yaml:"log_file_pattern"`    // %s is the provider label
	MetricsFile       string `yaml:"metrics_file"`
	LogLevel          string `yaml:"log_level"`

	Classifier   ClassifierConfig `yaml:"classifier"`
	Folders      []string         `yaml:"folders"`
	CombinedFile string           `yaml:"combined_file"`

	// Env holds values parsed from the environment; never read from YAML.
	Env Env `yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		InputFile:  "Radiographics_text_q401_final.xlsx",
		ImageDir:   "q401_image",
		ImageExt:   ".png",
		ResultRoot: ".",
		Provider:   "openai",
		Providers: map[string]ProviderConfig{
			"openai":    {Model: "gpt-4o", MaxTokens: 1024, Label: "gpt4o"},
			"anthropic": {Model: "claude-3-opus-20240229", MaxTokens: 1024, Label: "Claude"},
			"gemini":    {Model: "gemini-1.5-pro", MaxTokens: 1024, Label: "Gemini"},
		},
		Temperatures:      []float64{0, 0.5, 1},
		Tries:             1,
		MaxAttempts:       10,
		RequestTimeout:    5 * time.Minute,
		MaxImageBytes:     20 * MiB,
		MinImageSide:      150,
		EncodeAttempts:    5,
		ShrinkRatio:       0.9,
		TimingFilePattern: "%s_execution_times.xlsx",
		LogFilePattern:    "process_log_%s.txt",
		LogLevel:          "info",
		Classifier: ClassifierConfig{
			Model:       "gpt-4o",
			Temperature: 0,
			MaxTokens:   1000,
		},
		CombinedFile: "combined_sum.xlsx",
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
// Environment values are parsed in every case.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		defaults := []string{"runner.yaml", "medvision.yaml", "medvision_runner.yaml"}
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name // record which file we loaded
				break
			}
		}
	}

	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Env = env

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make the run loop misbehave.
func (c *Config) Validate() error {
	switch {
	case c.MaxAttempts < 1:
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	case c.Tries < 1:
		return fmt.Errorf("tries must be at least 1, got %d", c.Tries)
	case len(c.Temperatures) == 0:
		return fmt.Errorf("temperatures must not be empty")
	case c.EncodeAttempts < 1:
		return fmt.Errorf("encode_attempts must be at least 1, got %d", c.EncodeAttempts)
	case c.ShrinkRatio <= 0 || c.ShrinkRatio >= 1:
		return fmt.Errorf("shrink_ratio must be in (0, 1), got %v", c.ShrinkRatio)
	case c.MaxImageBytes <= 0:
		return fmt.Errorf("max_image_bytes must be positive, got %d", c.MaxImageBytes)
	}
	return nil
}

// ProviderSettings returns the settings for name, with defaults filled in.
func (c *Config) ProviderSettings(name string) ProviderConfig {
	pc := c.Providers[name]
	if def, ok := DefaultConfig().Providers[name]; ok {
		if pc.Model == "" {
			pc.Model = def.Model
		}
		if pc.MaxTokens == 0 {
			pc.MaxTokens = def.MaxTokens
		}
		if pc.Label == "" {
			pc.Label = def.Label
		}
	}
	if pc.Label == "" {
		pc.Label = name
	}
	if pc.MaxTokens == 0 {
		pc.MaxTokens = 1024
	}
	return pc
}

// TimingFile returns the execution-time workbook for a provider label.
func (c *Config) TimingFile(label string) string {
	return fmt.Sprintf(c.TimingFilePattern, label)
}

// LogFile returns the append-only log file for a provider label.
func (c *Config) LogFile(label string) string {
	return fmt.Sprintf(c.LogFilePattern, strings.ToLower(label))
}
