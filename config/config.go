package config

import (
	"time"

	"github.com/spf13/viper"

	"voicebridge/core"
)

const defaultSystemPrompt = "You are a concise, friendly hotel booking assistant. " +
	"Ask for missing details together (check-in/out, adults, children, pets, name, phone, parking). " +
	"Be brief and helpful."

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Dialogue DialogueConfig `mapstructure:"dialogue"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	ChatModel       string        `mapstructure:"chat_model"`
	STTModel        string        `mapstructure:"stt_model"`
	TTSModel        string        `mapstructure:"tts_model"`
	TTSVoice        string        `mapstructure:"tts_voice"`
	Temperature     float32       `mapstructure:"temperature"`
	PresencePenalty float32       `mapstructure:"presence_penalty"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type DialogueConfig struct {
	SystemPrompt string        `mapstructure:"system_prompt"`
	MaxTurns     int           `mapstructure:"max_turns"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

// Load reads configuration from the environment. The API credential is
// required; its absence is a startup error, never a request-time one.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8000)
	v.SetDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_STT_MODEL", "whisper-1")
	v.SetDefault("OPENAI_TTS_MODEL", "tts-1")
	v.SetDefault("TTS_VOICE", "alloy")
	v.SetDefault("CHAT_TEMPERATURE", 0.3)
	v.SetDefault("CHAT_PRESENCE_PENALTY", 0.0)
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("SYSTEM_PROMPT", defaultSystemPrompt)
	v.SetDefault("MAX_TURNS", 10)
	v.SetDefault("SESSION_TTL", "0")

	apiKey := v.GetString("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, &core.ConfigurationError{Setting: "OPENAI_API_KEY", Reason: "missing required env var"}
	}

	maxTurns := v.GetInt("MAX_TURNS")
	if maxTurns < 1 {
		return nil, &core.ConfigurationError{Setting: "MAX_TURNS", Reason: "must be at least 1"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("PORT"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          apiKey,
			ChatModel:       v.GetString("OPENAI_CHAT_MODEL"),
			STTModel:        v.GetString("OPENAI_STT_MODEL"),
			TTSModel:        v.GetString("OPENAI_TTS_MODEL"),
			TTSVoice:        v.GetString("TTS_VOICE"),
			Temperature:     float32(v.GetFloat64("CHAT_TEMPERATURE")),
			PresencePenalty: float32(v.GetFloat64("CHAT_PRESENCE_PENALTY")),
			Timeout:         v.GetDuration("UPSTREAM_TIMEOUT"),
		},
		Dialogue: DialogueConfig{
			SystemPrompt: v.GetString("SYSTEM_PROMPT"),
			MaxTurns:     maxTurns,
			SessionTTL:   v.GetDuration("SESSION_TTL"),
		},
	}

	return cfg, nil
}
