package conversation

import "sync"

// Session is the in-flight survey state for one chat. Answers fill in
// one per state; a re-send before advancing overwrites only its own
// field.
type Session struct {
	ChatID      int64
	State       State
	Budget      string
	Skills      string
	TimePerWeek string
}

// SessionStore maps chat ids to live sessions. Injected into the
// engine so a bounded cache or external store can replace it without
// touching the state machine.
type SessionStore interface {
	Get(chatID int64) (*Session, bool)
	Put(s *Session)
	Delete(chatID int64)
}

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[int64]*Session)}
}

func (m *memorySessionStore) Get(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

func (m *memorySessionStore) Put(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ChatID] = &cp
}

func (m *memorySessionStore) Delete(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
