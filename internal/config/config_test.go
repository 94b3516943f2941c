package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 4000, cfg.AI.MaxTokens)
	assert.Equal(t, 8192, cfg.AI.ModelMaxTokens)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 0.001)
	assert.Equal(t, "agent_tasks", cfg.Tasks.Dir)
	assert.InDelta(t, 70.0, cfg.Pipeline.QualityScoreThreshold, 0.001)
	assert.InDelta(t, 50.0, cfg.Pipeline.MinRiskScore, 0.001)
	assert.Equal(t, 2, cfg.Pipeline.ChunkConcurrency)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SEO_AI_MODEL", "gpt-4-turbo")
	t.Setenv("SEO_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4-turbo", cfg.AI.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
}
