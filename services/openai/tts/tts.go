package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"

	"voicebridge/core"
)

// OpenAITTSService implements core.SynthesisService using the OpenAI speech
// API. Output is MP3.
type OpenAITTSService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// Config holds the configuration for the OpenAI synthesis service
type Config struct {
	APIKey  string
	Model   string
	Voice   string
	Timeout time.Duration
}

// NewOpenAITTSService creates a new instance of OpenAITTSService
func NewOpenAITTSService(config Config) *OpenAITTSService {
	return &OpenAITTSService{
		client: openai.NewClient(config.APIKey),
		config: config,
		logger: core.GetLogger().With(map[string]any{"service": "openai_tts"}),
	}
}

// Synthesize renders text with the configured voice and returns the encoded
// audio. Text is forwarded as-is: what the upstream does with unusual input
// (including empty text) is its own policy, surfaced here as an UpstreamError
// when it rejects the request.
func (s *OpenAITTSService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, &core.UpstreamError{Service: "tts", Err: fmt.Errorf("openai speech: %w", err)}
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &core.UpstreamError{Service: "tts", Err: fmt.Errorf("openai speech: read body: %w", err)}
	}

	s.logger.Debug("synthesis finished",
		"voice", s.config.Voice,
		"chars", len(text),
		"bytes", len(audio),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return audio, nil
}
