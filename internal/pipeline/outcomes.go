package pipeline

import "sync"

// OutcomeStore retains the latest pipeline outcome per session so the
// generated project can be exported after the run. Like the session store it
// is volatile; entries are dropped alongside their session.
type OutcomeStore struct {
	mu       sync.RWMutex
	outcomes map[string]*Outcome
}

func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{outcomes: make(map[string]*Outcome)}
}

func (s *OutcomeStore) Put(sessionID string, outcome *Outcome) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[sessionID] = outcome
}

func (s *OutcomeStore) Get(sessionID string) (*Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.outcomes[sessionID]
	return outcome, ok
}

func (s *OutcomeStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outcomes, sessionID)
}
