// Package store persists whole-document JSON snapshots, one file per logical
// key, written only after an idle period following the last mutation. Flush
// failures are logged and swallowed; in-memory state stays authoritative.
package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"yaari/pkg/utils"
)

type Key string

const (
	KeyProfile    Key = "profile"
	KeyCharacters Key = "characters"
	KeyGroups     Key = "groups"
	KeyBackground Key = "background"
)

// DefaultIdle matches the five-minute debounce of the original client.
const DefaultIdle = 5 * time.Minute

type Store struct {
	dir  string
	idle time.Duration

	mu      sync.Mutex
	pending map[Key]any
	timers  map[Key]*time.Timer
	closed  bool
}

func New(dir string, idle time.Duration) *Store {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Store{
		dir:     dir,
		idle:    idle,
		pending: make(map[Key]any),
		timers:  make(map[Key]*time.Timer),
	}
}

func (s *Store) Path(key Key) string {
	return filepath.Join(s.dir, string(key)+".json")
}

// Load reads the current snapshot for key. A missing file yields the zero
// value, not an error state worth surfacing.
func Load[T any](s *Store, key Key) (T, error) {
	return utils.Load[T](s.Path(key))
}

// Put records v as the latest snapshot for key and (re)schedules that key's
// idle flush. A Put before the previous timer fires cancels and reschedules
// it; the payload is a whole document, so last writer wins.
func (s *Store) Put(key Key, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.pending[key] = v
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(s.idle, func() {
		s.flushKey(key)
	})
}

func (s *Store) flushKey(key Key) {
	s.mu.Lock()
	v, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
		delete(s.timers, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := utils.Save(s.Path(key), v); err != nil {
		log.Errorf("flush of %s failed: %v", key, err)
		return
	}
	log.Debugf("flushed %s", key)
}

// Flush writes every dirty key immediately. Called on shutdown.
func (s *Store) Flush() {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.pending))
	for key := range s.pending {
		if t, ok := s.timers[key]; ok {
			t.Stop()
		}
		keys = append(keys, key)
	}
	s.mu.Unlock()

	for _, key := range keys {
		s.flushKey(key)
	}
}

// Close flushes dirty keys and rejects further writes.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Flush()
}
