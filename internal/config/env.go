package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Env holds everything read from environment variables.
type Env struct {
	Credentials Credentials
	Cache       CacheConfig
}

// Credentials holds one API key (and optional endpoint) per provider.
type Credentials struct {
	OpenAIKey        string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AnthropicKey     string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	GoogleKey        string `env:"GOOGLE_API_KEY"`
	GoogleBaseURL    string `env:"GOOGLE_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
}

// CacheConfig configures the optional Redis cache for classifier responses.
type CacheConfig struct {
	Enable   bool          `env:"CACHE_ENABLE"`
	Addr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"720h"`
}

// LoadEnv parses the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// APIKey returns the credential for a provider name, or "" if unknown.
func (c Credentials) APIKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIKey
	case "anthropic":
		return c.AnthropicKey
	case "gemini":
		return c.GoogleKey
	}
	return ""
}

// BaseURL returns the endpoint for a provider name, or "" if unknown.
func (c Credentials) BaseURL(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIBaseURL
	case "anthropic":
		return c.AnthropicBaseURL
	case "gemini":
		return c.GoogleBaseURL
	}
	return ""
}
