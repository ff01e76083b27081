package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: anthropic
temperatures: [0, 1]
tries: 2
retry_delay: 2s
providers:
  anthropic:
    model: claude-3-5-sonnet-20240620
`), 0644))
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, []float64{0, 1}, cfg.Temperatures)
	assert.Equal(t, 2, cfg.Tries)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, "sk-ant-test", cfg.Env.Credentials.APIKey("anthropic"))
	assert.Equal(t, "https://api.anthropic.com", cfg.Env.Credentials.BaseURL("anthropic"))

	s := cfg.ProviderSettings("anthropic")
	assert.Equal(t, "claude-3-5-sonnet-20240620", s.Model)
	assert.Equal(t, "Claude", s.Label)
	assert.Equal(t, 1024, s.MaxTokens)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shrink_ratio: 1.5\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "shrink_ratio")

	require.NoError(t, os.WriteFile(path, []byte("tries: [\n"), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestCacheEnv(t *testing.T) {
	t.Setenv("CACHE_ENABLE", "true")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_TTL", "1h")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.True(t, env.Cache.Enable)
	assert.Equal(t, "redis:6380", env.Cache.Addr)
	assert.Equal(t, time.Hour, env.Cache.TTL)
}

func TestFilePatterns(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Claude_execution_times.xlsx", cfg.TimingFile("Claude"))
	assert.Equal(t, "process_log_claude.txt", cfg.LogFile("Claude"))

	unknown := cfg.ProviderSettings("local")
	assert.Equal(t, "local", unknown.Label)
	assert.Equal(t, 1024, unknown.MaxTokens)
}
