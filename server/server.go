package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"voicebridge/core"
	"voicebridge/dialogue"
)

// Server is the HTTP boundary: a thin transport layer over the dialogue
// orchestrator and the transcription/synthesis adapters. It owns no
// conversation state of its own.
type Server struct {
	engine       *gin.Engine
	orchestrator *dialogue.Orchestrator
	store        *dialogue.ConversationStore
	stt          core.TranscriptionService
	tts          core.SynthesisService
	upgrader     websocket.Upgrader
	logger       *core.Logger
}

func NewServer(
	orchestrator *dialogue.Orchestrator,
	store *dialogue.ConversationStore,
	stt core.TranscriptionService,
	tts core.SynthesisService,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:       gin.New(),
		orchestrator: orchestrator,
		store:        store,
		stt:          stt,
		tts:          tts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect cross-origin, same as the permissive
			// CORS policy on the HTTP routes.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: core.GetLogger().With(map[string]any{"component": "server"}),
	}

	s.engine.Use(gin.Recovery(), CORS(), RequestLogger())

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/chat", s.handleChat)
	s.engine.POST("/stt", s.handleSTT)
	s.engine.POST("/tts", s.handleTTS)
	s.engine.GET("/ws", s.handleWS)

	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
