// Package registry builds providers by name from configuration.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/daryltucker/medvision-runner/internal/config"
	"github.com/daryltucker/medvision-runner/internal/provider"
	"github.com/daryltucker/medvision-runner/internal/provider/anthropic"
	"github.com/daryltucker/medvision-runner/internal/provider/gemini"
	"github.com/daryltucker/medvision-runner/internal/provider/openai"
)

type factory func(key, baseURL, model string, timeout time.Duration) provider.Provider

var factories = map[string]factory{
	openai.Name: func(key, baseURL, model string, timeout time.Duration) provider.Provider {
		return openai.New(openai.Options{APIKey: key, BaseURL: baseURL, Model: model, Timeout: timeout})
	},
	anthropic.Name: func(key, baseURL, model string, timeout time.Duration) provider.Provider {
		return anthropic.New(anthropic.Options{APIKey: key, BaseURL: baseURL, Model: model, Timeout: timeout})
	},
	gemini.Name: func(key, baseURL, model string, timeout time.Duration) provider.Provider {
		return gemini.New(gemini.Options{APIKey: key, BaseURL: baseURL, Model: model, Timeout: timeout})
	},
}

// Names returns the registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build creates the provider called name.
// A missing API key is an error: every provider needs one.
func Build(name string, cfg *config.Config) (provider.Provider, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, Names())
	}
	key := cfg.Env.Credentials.APIKey(name)
	if key == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", name)
	}
	settings := cfg.ProviderSettings(name)
	return f(key, cfg.Env.Credentials.BaseURL(name), settings.Model, cfg.RequestTimeout), nil
}

// OpenAI creates the OpenAI client used for JSON-mode classification.
func OpenAI(cfg *config.Config, model string) (*openai.Client, error) {
	key := cfg.Env.Credentials.APIKey(openai.Name)
	if key == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", openai.Name)
	}
	return openai.New(openai.Options{
		APIKey:  key,
		BaseURL: cfg.Env.Credentials.BaseURL(openai.Name),
		Model:   model,
		Timeout: cfg.RequestTimeout,
	}), nil
}
