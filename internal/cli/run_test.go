package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/medvision-runner/internal/config"
)

func TestApplyRunOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, runCmd.Flags().Parse([]string{
		"--provider", "gemini",
		"--temperatures", "0.2,0.7",
		"--tries", "3",
		"-o", "out",
	}))
	t.Cleanup(func() {
		providerOverride, temperaturesOverride, triesOverride, outputOverride = "", nil, 1, ""
		runCmd.Flags().Lookup("tries").Changed = false
		runCmd.Flags().Lookup("temperatures").Changed = false
	})

	applyRunOverrides(runCmd, cfg)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, []float64{0.2, 0.7}, cfg.Temperatures)
	assert.Equal(t, 3, cfg.Tries)
	assert.Equal(t, "out", cfg.ResultRoot)
	assert.Equal(t, "q401_image", cfg.ImageDir)
}

func TestApplyRunOverridesKeepsConfigTries(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tries = 4

	applyRunOverrides(runCmd, cfg)

	assert.Equal(t, 4, cfg.Tries)
	assert.Equal(t, "openai", cfg.Provider)
}

func TestCaseIDsCount(t *testing.T) {
	countFlag = 3
	t.Cleanup(func() { countFlag = 0 })

	ids, err := caseIDs(config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestNewClassifierRejectsUnknownStrategy(t *testing.T) {
	strategy = "regex"
	t.Cleanup(func() { strategy = "heuristic" })

	_, _, err := newClassifier(classifyCmd, config.DefaultConfig())
	assert.ErrorContains(t, err, "unknown strategy")
}
