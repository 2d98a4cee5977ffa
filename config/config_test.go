package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge/core"
)

func TestLoad_MissingAPIKeyIsFatal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "OPENAI_API_KEY", cfgErr.Setting)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "whisper-1", cfg.OpenAI.STTModel)
	assert.Equal(t, "tts-1", cfg.OpenAI.TTSModel)
	assert.Equal(t, "alloy", cfg.OpenAI.TTSVoice)
	assert.InDelta(t, 0.3, float64(cfg.OpenAI.Temperature), 1e-6)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 10, cfg.Dialogue.MaxTurns)
	assert.Equal(t, time.Duration(0), cfg.Dialogue.SessionTTL)
	assert.NotEmpty(t, cfg.Dialogue.SystemPrompt)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_CHAT_MODEL", "gpt-4o")
	t.Setenv("TTS_VOICE", "nova")
	t.Setenv("MAX_TURNS", "3")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("SYSTEM_PROMPT", "You are terse.")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, "nova", cfg.OpenAI.TTSVoice)
	assert.Equal(t, 3, cfg.Dialogue.MaxTurns)
	assert.Equal(t, 15*time.Minute, cfg.Dialogue.SessionTTL)
	assert.Equal(t, "You are terse.", cfg.Dialogue.SystemPrompt)
}

func TestLoad_RejectsNonPositiveMaxTurns(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MAX_TURNS", "0")

	_, err := Load()
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MAX_TURNS", cfgErr.Setting)
}
