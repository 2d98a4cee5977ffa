package protocol

import "encoding/json"

// MessageType enumerates all websocket chat channel message types.
type MessageType string

const (
	// Client -> server
	MsgChat MessageType = "chat"

	// Server -> client
	MsgSession MessageType = "session"
	MsgReply   MessageType = "reply"
	MsgAudio   MessageType = "audio"
	MsgError   MessageType = "error"
)

// Envelope is the outer JSON wrapper for all websocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChatPayload is one user turn sent by the client. SessionID may be empty on
// the first message; the server then assigns one and announces it with a
// session envelope. Speak requests a synthesized audio rendition of the
// reply, delivered as an audio envelope followed by one binary frame.
type ChatPayload struct {
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
	Speak     bool   `json:"speak,omitempty"`
}

// SessionPayload announces the server-assigned session id.
type SessionPayload struct {
	SessionID string `json:"session_id"`
}

// ReplyPayload carries the assistant reply for one turn.
type ReplyPayload struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// AudioPayload describes the binary frame that immediately follows it.
type AudioPayload struct {
	SessionID string `json:"session_id"`
	MimeType  string `json:"mime_type"`
	Size      int    `json:"size"`
}

// ErrorPayload reports a per-turn failure. The connection stays open.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
