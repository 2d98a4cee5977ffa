package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"voicebridge/core"
)

// OpenAIChatService implements core.ChatService using OpenAI chat completions.
type OpenAIChatService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// Config holds the configuration for the OpenAI chat service
type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	PresencePenalty float32
	Timeout         time.Duration
}

// NewOpenAIChatService creates a new instance of OpenAIChatService
func NewOpenAIChatService(config Config) *OpenAIChatService {
	return &OpenAIChatService{
		client: openai.NewClient(config.APIKey),
		config: config,
		logger: core.GetLogger().With(map[string]any{"service": "openai_chat"}),
	}
}

// Complete sends the message window to the chat model and returns the single
// assistant reply. The call is bounded by the configured timeout; every
// failure surfaces as a core.UpstreamError.
func (s *OpenAIChatService) Complete(ctx context.Context, messages []core.Message) (string, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:           s.config.Model,
		Messages:        convertMessages(messages),
		Temperature:     s.config.Temperature,
		PresencePenalty: s.config.PresencePenalty,
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &core.UpstreamError{Service: "chat", Err: fmt.Errorf("openai chat completion: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return "", &core.UpstreamError{Service: "chat", Err: fmt.Errorf("openai chat completion: empty choices")}
	}

	s.logger.Debug("completion finished",
		"model", s.config.Model,
		"messages", len(messages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.Choices[0].Message.Content, nil
}

// convertMessages maps core messages to OpenAI chat messages. Roles share
// the same wire names, so the mapping is direct.
func convertMessages(messages []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}
