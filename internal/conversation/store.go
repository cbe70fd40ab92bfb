package conversation

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// SessionNotFoundError reports an operation against a nonexistent or expired
// session id.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// Store is the volatile in-memory session store. Sessions do not survive a
// process restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (s *Store) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, &SessionNotFoundError{ID: id}
	}
	return session, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupExpired removes sessions idle for longer than maxAge and returns
// the ids it dropped, so per-session side state can be swept with them.
func (s *Store) CleanupExpired(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, session := range s.sessions {
		if session.idleSince(cutoff) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		log.Printf(`{"level":"info","component":"session-store","event":"cleanup","removed":%d,"remaining":%d}`, len(removed), len(s.sessions))
	}
	return removed
}
