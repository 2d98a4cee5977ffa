package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"voicebridge/audio"
	"voicebridge/core"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// errorResponse is the stable error payload shape for every route.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps the error taxonomy onto HTTP. Validation failures are the
// caller's fault (400); everything else surfaces under the route's fixed
// upstream tag (500). No request error crashes the process.
func writeError(c *gin.Context, err error, upstreamTag string) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Message: vErr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, errorResponse{Error: upstreamTag, Message: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleChat runs one dialogue turn. Unknown session ids are created on
// demand, so this route never 404s.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &core.ValidationError{Field: "body", Reason: "malformed JSON"}, "server_error")
		return
	}
	if req.SessionID == "" {
		writeError(c, &core.ValidationError{Field: "session_id", Reason: "must not be empty"}, "server_error")
		return
	}

	reply, err := s.orchestrator.HandleTurn(c.Request.Context(), req.SessionID, req.Text)
	if err != nil {
		writeError(c, err, "server_error")
		return
	}
	c.JSON(http.StatusOK, chatResponse{Reply: reply})
}

// handleSTT forwards the uploaded recording to the transcription service.
// An optional "encoding" form field (pcmu, pcma, pcm16) marks raw
// telephone-grade audio, which is decoded and wrapped into WAV first.
func (s *Server) handleSTT(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, &core.ValidationError{Field: "file", Reason: "missing audio upload"}, "stt_error")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		writeError(c, &core.ValidationError{Field: "file", Reason: "unreadable upload"}, "stt_error")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, &core.ValidationError{Field: "file", Reason: "unreadable upload"}, "stt_error")
		return
	}

	filename := fileHeader.Filename
	if encoding := c.PostForm("encoding"); encoding != "" {
		wav, err := audio.NormalizeToWAV(encoding, data)
		if err != nil {
			writeError(c, &core.ValidationError{Field: "encoding", Reason: err.Error()}, "stt_error")
			return
		}
		data = wav
		filename = "audio.wav"
	}

	text, err := s.stt.Transcribe(c.Request.Context(), data, filename)
	if err != nil {
		writeError(c, err, "stt_error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// handleTTS synthesizes the "text" form field and streams back MP3 bytes.
// The text is forwarded opaquely; whatever the synthesis service does with
// odd input (including empty text) is passed through or surfaced as a
// tts_error.
func (s *Server) handleTTS(c *gin.Context) {
	text := c.PostForm("text")

	data, err := s.tts.Synthesize(c.Request.Context(), text)
	if err != nil {
		writeError(c, err, "tts_error")
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", data)
}
