package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/medvision-runner/internal/config"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"anthropic", "gemini", "openai"}, Names())
}

func TestBuild(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Env.Credentials.AnthropicKey = "sk-ant"
	cfg.Providers["anthropic"] = config.ProviderConfig{Model: "claude-3-5-sonnet"}

	p, err := Build("anthropic", cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-3-5-sonnet", p.Model())
}

func TestBuildErrors(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := Build("mistral", cfg)
	assert.ErrorContains(t, err, "unknown provider")

	_, err = Build("gemini", cfg)
	assert.ErrorContains(t, err, "no API key")

	_, err = OpenAI(cfg, "gpt-4o")
	assert.ErrorContains(t, err, "no API key")
}
