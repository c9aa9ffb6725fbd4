package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one browser conversation's server-side state: an ordered,
// append-only message list plus the active persona. The mutex guards
// both; handlers touch sessions from concurrent requests.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	persona  Persona
	messages []Message
}

func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Content: content, Timestamp: time.Now()})
}

// History returns a copy of the message list in append order.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reset clears the conversation wholesale.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

func (s *Session) Persona() Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

func (s *Session) SetPersona(p Persona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = p
}

// Sessions is the in-memory session registry. Nothing is persisted;
// sessions live for the lifetime of the process.
type Sessions struct {
	mu sync.RWMutex
	m  map[uuid.UUID]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[uuid.UUID]*Session)}
}

func (r *Sessions) Create(p Persona) *Session {
	s := &Session{ID: uuid.New(), persona: p}
	r.mu.Lock()
	r.m[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Sessions) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[id]
	return s, ok
}
