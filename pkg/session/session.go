// Package session holds the per-chat state that is deliberately not
// persisted: the consecutive-skip counter and the one-writer-per-transcript
// gate. Everything here resets on process restart.
package session

import (
	"sync"

	"yaari/pkg/utils"
)

// SkipTracker counts consecutive user skips in one group-chat session.
// The count equals the number of RecordSkip calls since the last
// RecordRealMessage and is never negative.
type SkipTracker struct {
	mu    sync.Mutex
	count int
}

// RecordSkip increments the counter and returns the new value.
func (t *SkipTracker) RecordSkip() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	return t.count
}

// RecordRealMessage resets the counter.
func (t *SkipTracker) RecordRealMessage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
}

func (t *SkipTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Session is the in-memory state for one active chat.
type Session struct {
	Tracker SkipTracker
	turn    sync.Mutex
}

// Begin claims the chat's single turn slot. It reports false when another
// turn is already in flight; callers must reject the new turn rather than
// interleave transcript writes.
func (s *Session) Begin() bool {
	return s.turn.TryLock()
}

// End releases the turn slot claimed by Begin.
func (s *Session) End() {
	s.turn.Unlock()
}

// Registry hands out sessions keyed by chat id (character or group id).
type Registry struct {
	sessions *utils.SyncMap[string, *Session]
}

func NewRegistry() *Registry {
	return &Registry{sessions: utils.NewSyncMap[string, *Session]()}
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	s, _ := r.sessions.LoadOrStore(id, &Session{})
	return s
}

// Drop forgets a chat's session, e.g. after its group is deleted.
func (r *Registry) Drop(id string) {
	r.sessions.Delete(id)
}
