package dialogue

import (
	"context"
	"sync"
	"time"

	"voicebridge/core"
)

// ConversationStore owns every session history in the process. A session is
// created lazily on first use, seeded with the system instruction, and lives
// until evicted (or for the process lifetime when eviction is disabled).
//
// The store hands out copies: callers mutate their own view and commit it
// back with Put. Each session carries two locks. The turn lock (LockSession)
// serializes whole read-append-call-append-write cycles so concurrent turns
// on one session cannot drop each other's messages; it is held across the
// upstream call but never blocks other sessions. The data lock guards the
// history slice itself so snapshots and commits stay atomic.
type ConversationStore struct {
	systemPrompt string

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	turnMu sync.Mutex

	dataMu     sync.Mutex
	history    []core.Message
	lastAccess time.Time
}

func NewConversationStore(systemPrompt string) *ConversationStore {
	return &ConversationStore{
		systemPrompt: systemPrompt,
		sessions:     make(map[string]*session),
	}
}

// lookup returns the session entry for id, creating an empty one if needed.
func (s *ConversationStore) lookup(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{lastAccess: time.Now()}
		s.sessions[id] = sess
	}
	return sess
}

// LockSession acquires the per-session turn lock for id and returns the
// unlock function. Turns on different sessions proceed independently.
func (s *ConversationStore) LockSession(id string) func() {
	sess := s.lookup(id)
	sess.turnMu.Lock()
	return sess.turnMu.Unlock
}

// GetOrCreate returns a copy of the history for id, seeding a brand-new
// session with the system message. The returned slice is the caller's own;
// mutating it does not touch stored state until Put.
func (s *ConversationStore) GetOrCreate(id string) []core.Message {
	sess := s.lookup(id)
	sess.dataMu.Lock()
	defer sess.dataMu.Unlock()
	sess.lastAccess = time.Now()
	if len(sess.history) == 0 {
		sess.history = []core.Message{core.SystemMessage(s.systemPrompt)}
	}
	return core.CloneHistory(sess.history)
}

// Put replaces the stored history for id unconditionally (last writer wins).
// The caller is expected to have truncated the history to its window bound.
func (s *ConversationStore) Put(id string, history []core.Message) {
	sess := s.lookup(id)
	sess.dataMu.Lock()
	defer sess.dataMu.Unlock()
	sess.lastAccess = time.Now()
	sess.history = core.CloneHistory(history)
}

// History returns a copy of the stored history for id, and whether the
// session exists.
func (s *ConversationStore) History(id string) ([]core.Message, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	sess.dataMu.Lock()
	defer sess.dataMu.Unlock()
	return core.CloneHistory(sess.history), true
}

// Len reports the number of live sessions.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops sessions whose last access is older than ttl. Sessions
// with a turn in flight (turn lock held) are skipped and picked up on a
// later sweep. Returns the number of sessions evicted.
func (s *ConversationStore) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if !sess.turnMu.TryLock() {
			continue
		}
		sess.dataMu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		sess.dataMu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
		sess.turnMu.Unlock()
	}
	return evicted
}

// RunSweeper evicts idle sessions every ttl/2 until ctx is cancelled.
// A ttl of zero disables eviction entirely; sessions then live for the
// process lifetime and memory grows with the number of distinct ids.
func (s *ConversationStore) RunSweeper(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	logger := core.GetLogger().With(map[string]any{"component": "conversation_store"})
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(ttl); n > 0 {
				logger.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}
