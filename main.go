package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voicebridge/config"
	"voicebridge/core"
	"voicebridge/dialogue"
	"voicebridge/server"
	"voicebridge/services/openai/llm"
	"voicebridge/services/openai/stt"
	"voicebridge/services/openai/tts"
)

func main() {
	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	cfg, err := config.Load()
	if err != nil {
		// Missing credential is a startup error; the process must not serve.
		logger.Fatal("invalid configuration", "error", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	chatService := llm.NewOpenAIChatService(llm.Config{
		APIKey:          cfg.OpenAI.APIKey,
		Model:           cfg.OpenAI.ChatModel,
		Temperature:     cfg.OpenAI.Temperature,
		PresencePenalty: cfg.OpenAI.PresencePenalty,
		Timeout:         cfg.OpenAI.Timeout,
	})
	sttService := stt.NewOpenAISTTService(stt.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.STTModel,
		Timeout: cfg.OpenAI.Timeout,
	})
	ttsService := tts.NewOpenAITTSService(tts.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.TTSModel,
		Voice:   cfg.OpenAI.TTSVoice,
		Timeout: cfg.OpenAI.Timeout,
	})

	store := dialogue.NewConversationStore(cfg.Dialogue.SystemPrompt)
	go store.RunSweeper(ctx, cfg.Dialogue.SessionTTL)

	orchestrator := dialogue.NewOrchestrator(store, chatService, cfg.Dialogue.MaxTurns)
	srv := server.NewServer(orchestrator, store, sttService, ttsService)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "chat_model", cfg.OpenAI.ChatModel)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}
