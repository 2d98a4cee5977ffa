package server

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voicebridge/core"
	"voicebridge/protocol"
)

// wsConn wraps a websocket connection with a write mutex so reply, audio
// header and binary frames never interleave.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) writeEnvelope(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) writeBinary(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

// handleWS serves a persistent chat channel over one websocket connection.
// The client sends chat envelopes; the server answers each with a reply
// envelope for the same session, sharing the store with the HTTP routes.
// With speak set, the reply is also synthesized and delivered as an audio
// header envelope followed by one binary frame (MP3).
func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	logger := s.logger.With(map[string]any{"transport": "websocket"})

	// Session id assigned on first turn for clients that supply none;
	// reused for the rest of the connection.
	var assignedSession string

	for {
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket closed unexpectedly", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			ws.writeEnvelope(protocol.MsgError, protocol.ErrorPayload{
				Error:   "validation_error",
				Message: "expected a JSON text frame",
			})
			continue
		}

		msgType, raw, err := protocol.Unmarshal(msg)
		if err != nil {
			ws.writeEnvelope(protocol.MsgError, protocol.ErrorPayload{
				Error:   "validation_error",
				Message: err.Error(),
			})
			continue
		}
		if msgType != protocol.MsgChat {
			ws.writeEnvelope(protocol.MsgError, protocol.ErrorPayload{
				Error:   "validation_error",
				Message: "unsupported message type " + string(msgType),
			})
			continue
		}

		payload, err := protocol.UnmarshalPayload[protocol.ChatPayload](raw)
		if err != nil {
			ws.writeEnvelope(protocol.MsgError, protocol.ErrorPayload{
				Error:   "validation_error",
				Message: err.Error(),
			})
			continue
		}

		sessionID := payload.SessionID
		if sessionID == "" {
			if assignedSession == "" {
				assignedSession = uuid.New().String()
				if err := ws.writeEnvelope(protocol.MsgSession, protocol.SessionPayload{SessionID: assignedSession}); err != nil {
					return
				}
			}
			sessionID = assignedSession
		}

		reply, err := s.orchestrator.HandleTurn(c.Request.Context(), sessionID, payload.Text)
		if err != nil {
			tag := "server_error"
			var vErr *core.ValidationError
			if errors.As(err, &vErr) {
				tag = "validation_error"
			}
			ws.writeEnvelope(protocol.MsgError, protocol.ErrorPayload{Error: tag, Message: err.Error()})
			continue
		}

		if err := ws.writeEnvelope(protocol.MsgReply, protocol.ReplyPayload{SessionID: sessionID, Reply: reply}); err != nil {
			return
		}

		if payload.Speak {
			audioData, err := s.tts.Synthesize(c.Request.Context(), reply)
			if err != nil {
				ws.writeEnvelope(protocol.MsgError, protocol.ErrorPayload{Error: "tts_error", Message: err.Error()})
				continue
			}
			header := protocol.AudioPayload{SessionID: sessionID, MimeType: "audio/mpeg", Size: len(audioData)}
			if err := ws.writeEnvelope(protocol.MsgAudio, header); err != nil {
				return
			}
			if err := ws.writeBinary(audioData); err != nil {
				return
			}
		}
	}
}
