package dialogue

import (
	"context"
	"strings"

	"voicebridge/core"
)

// Orchestrator turns stateless /chat requests into a coherent multi-turn
// dialogue. Each turn runs under the session's lock: fetch history, append
// the user message, send the bounded window upstream, append the reply,
// truncate, commit. A failed upstream call commits nothing, so the stored
// history is untouched and the same turn is safe to retry.
type Orchestrator struct {
	store    *ConversationStore
	chat     core.ChatService
	maxTurns int
	logger   *core.Logger
}

// NewOrchestrator wires the orchestrator to its store and chat backend.
// maxTurns bounds the retained history to one system message plus at most
// maxTurns user/assistant pairs.
func NewOrchestrator(store *ConversationStore, chat core.ChatService, maxTurns int) *Orchestrator {
	return &Orchestrator{
		store:    store,
		chat:     chat,
		maxTurns: maxTurns,
		logger:   core.GetLogger().With(map[string]any{"component": "orchestrator"}),
	}
}

// windowSize is the retention bound: system message + maxTurns exchange pairs.
func (o *Orchestrator) windowSize() int {
	return 2*o.maxTurns + 1
}

// HandleTurn appends userText to the session's conversation, asks the chat
// backend for a reply against the windowed history, and returns the reply.
// Empty or whitespace-only input is rejected with a ValidationError before
// any state is touched.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", &core.ValidationError{Field: "text", Reason: "must not be empty"}
	}

	unlock := o.store.LockSession(sessionID)
	defer unlock()

	history := o.store.GetOrCreate(sessionID)
	history = append(history, core.UserMessage(userText))

	// The upstream sees the same window the store would retain. Truncation
	// drops whole user/assistant pairs from the front and never index 0,
	// so the system instruction always survives.
	history = truncate(history, o.windowSize())

	reply, err := o.chat.Complete(ctx, history)
	if err != nil {
		// No Put on this path: the store still holds the pre-turn history.
		o.logger.Error("chat completion failed", "session_id", sessionID, "error", err)
		return "", err
	}

	history = append(history, core.AssistantMessage(reply))
	history = truncate(history, o.windowSize())
	o.store.Put(sessionID, history)

	o.logger.Debug("turn completed", "session_id", sessionID, "history_len", len(history))
	return reply, nil
}

// truncate drops the oldest user/assistant pairs until the history fits max.
// Index 0 (the system message) is never removed, and only whole pairs are
// dropped so the window never starts with an orphaned assistant turn.
func truncate(history []core.Message, max int) []core.Message {
	if len(history) <= max {
		return history
	}
	drop := len(history) - max
	if drop%2 != 0 {
		drop++
	}
	out := make([]core.Message, 0, len(history)-drop)
	out = append(out, history[0])
	out = append(out, history[1+drop:]...)
	return out
}
