package stt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"voicebridge/core"
)

// OpenAISTTService implements core.TranscriptionService using the OpenAI
// audio transcription API (Whisper).
type OpenAISTTService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// Config holds the configuration for the OpenAI transcription service
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAISTTService creates a new instance of OpenAISTTService
func NewOpenAISTTService(config Config) *OpenAISTTService {
	return &OpenAISTTService{
		client: openai.NewClient(config.APIKey),
		config: config,
		logger: core.GetLogger().With(map[string]any{"service": "openai_stt"}),
	}
}

// Transcribe forwards the audio bytes to Whisper and returns the recognized
// text. filename carries the original upload name so the API can detect the
// container format from its extension.
func (s *OpenAISTTService) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	if filename == "" {
		filename = "audio.webm"
	}

	start := time.Now()
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.config.Model,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
	})
	if err != nil {
		return "", &core.UpstreamError{Service: "stt", Err: fmt.Errorf("openai transcription: %w", err)}
	}

	s.logger.Debug("transcription finished",
		"model", s.config.Model,
		"bytes", len(audio),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.Text, nil
}
