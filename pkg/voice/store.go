package voice

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound signals a turn or end event for a call the store does
// not know about. Callers recover by recreating a session, never by
// failing the call.
var ErrSessionNotFound = errors.New("call session not found")

// Store is the process-wide registry of active call sessions. It is the
// sole owner of Session values. A crash loses in-flight sessions; the next
// event for a lost call recreates a fresh one.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for callID, creating it if absent.
// Creation is idempotent: a duplicate start for an existing id returns the
// existing session untouched, and concurrent creators for the same id see
// a single winner. The supplied caller/tenant are ignored for an existing
// session since they were fixed at creation.
func (s *Store) GetOrCreate(callID, callerNumber, tenantID string, now time.Time) (sess *Session, created bool) {
	s.mu.RLock()
	sess = s.sessions[callID]
	s.mu.RUnlock()
	if sess != nil {
		return sess, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.sessions[callID]; existing != nil {
		return existing, false
	}
	sess = newSession(callID, callerNumber, tenantID, now)
	s.sessions[callID] = sess
	return sess, true
}

// Get returns the session for callID or ErrSessionNotFound.
func (s *Store) Get(callID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.sessions[callID]
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove deletes the session for callID. Removing an absent id is a no-op.
func (s *Store) Remove(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
