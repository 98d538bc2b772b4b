package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "deepgram", cfg.Speech.STTProvider)
	assert.Equal(t, "cartesia", cfg.Speech.TTSProvider)
	assert.Equal(t, "clara", cfg.Speech.Cartesia.VoiceID)
	assert.Equal(t, "results", cfg.Eval.ResultsDir)
	require.NoError(t, cfg.Validate())
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gpt-4o
agent:
  temperature: 0.2
eval:
  concurrency: 4
  results_dir: out
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.Agent.Temperature)
	assert.Equal(t, 4, cfg.Eval.Concurrency)
	assert.Equal(t, "out", cfg.Eval.ResultsDir)
	// untouched values keep defaults
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
}

func TestLoader_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("does-not-exist.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "https://api.deepgram.com", cfg.Speech.Deepgram.BaseURL)
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("VOICEBENCH_LLM_MODEL", "gpt-4-turbo")
	t.Setenv("VOICEBENCH_EVAL_CONCURRENCY", "8")
	t.Setenv("VOICEBENCH_AGENT_TIMEOUT", "45s")
	t.Setenv("VOICEBENCH_TELEMETRY_ENABLED", "true")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.Eval.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Agent.Timeout)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoader_LegacyEnvAliases(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("DEEPGRAM_API_KEY", "dg-legacy")
	t.Setenv("CARTESIA_API_KEY", "ca-legacy")
	t.Setenv("CARTESIA_VOICE_ID", "nova")
	t.Setenv("DAILY_API_KEY", "daily-legacy")
	t.Setenv("DAILY_ROOM_URL", "https://example.daily.co/demo")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey)
	assert.Equal(t, "dg-legacy", cfg.Speech.Deepgram.APIKey)
	assert.Equal(t, "ca-legacy", cfg.Speech.Cartesia.APIKey)
	assert.Equal(t, "nova", cfg.Speech.Cartesia.VoiceID)
	assert.Equal(t, "daily-legacy", cfg.Transport.DailyAPIKey)
	assert.Equal(t, "https://example.daily.co/demo", cfg.Transport.RoomURL)
}

func TestLoader_PrefixedEnvBeatsLegacyAlias(t *testing.T) {
	t.Setenv("VOICEBENCH_LLM_API_KEY", "sk-prefixed")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-prefixed", cfg.LLM.APIKey)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("rejects bad temperature", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Agent.Temperature = 3
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown providers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Speech.STTProvider = "whisperx"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty results dir", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Eval.ResultsDir = ""
		assert.Error(t, cfg.Validate())
	})
}
