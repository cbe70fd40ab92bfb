package conversation

import (
	"fmt"
	"sync"
	"time"
)

// Role of a conversation message. The set is closed.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status of a session. Advances forward only, except the terminal jump to
// failed which is allowed from any non-terminal state.
type Status string

const (
	StatusGathering  Status = "gathering"
	StatusReady      Status = "ready"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

var validTransitions = map[Status][]Status{
	StatusGathering:  {StatusReady, StatusFailed},
	StatusReady:      {StatusGenerating, StatusFailed},
	StatusGenerating: {StatusComplete, StatusFailed},
	StatusComplete:   {},
	StatusFailed:     {},
}

// Message is one immutable entry of a session transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectSpec is the structured specification accumulated during the
// gathering phase.
type ProjectSpec struct {
	Name      string   `json:"name"`
	Purpose   string   `json:"purpose"`
	Framework string   `json:"framework"`
	Backend   string   `json:"backend"`
	Database  string   `json:"database"`
	Features  []string `json:"features"`
}

// Complete reports whether the minimal field set is populated. Optional
// fields never influence readiness.
func (s ProjectSpec) Complete() bool {
	return s.Name != "" && s.Purpose != "" && s.Framework != ""
}

// clone copies the spec including its feature slice so a snapshot cannot
// alias live state.
func (s ProjectSpec) clone() ProjectSpec {
	out := s
	out.Features = append([]string(nil), s.Features...)
	return out
}

// Session is one conversation's full state. It is owned by the Manager and
// mutated only through conversation turns and status transitions.
type Session struct {
	ID           string      `json:"id"`
	Idea         string      `json:"project_idea"`
	Messages     []Message   `json:"messages"`
	Status       Status      `json:"status"`
	Spec         ProjectSpec `json:"spec"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`

	frozen *ProjectSpec

	// Serializes turns and status transitions; a session never has two
	// in-flight turns.
	turnMu sync.Mutex

	// Guards Messages, Spec, Status and LastActivity for readers that do
	// not hold turnMu (expiry sweep, serialization). Writers hold both.
	mu sync.RWMutex
}

// SessionView is a point-in-time copy of a session, safe to serialize while
// turns continue on the live session.
type SessionView struct {
	ID           string      `json:"id"`
	Idea         string      `json:"project_idea"`
	Messages     []Message   `json:"messages"`
	Status       Status      `json:"status"`
	Spec         ProjectSpec `json:"spec"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
}

// View copies the session state under the field lock.
func (s *Session) View() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionView{
		ID:           s.ID,
		Idea:         s.Idea,
		Messages:     append([]Message(nil), s.Messages...),
		Status:       s.Status,
		Spec:         s.Spec.clone(),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

// commitTurn appends transcript entries and installs the updated spec.
// Callers hold turnMu.
func (s *Session) commitTurn(now time.Time, spec ProjectSpec, msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msgs...)
	s.Spec = spec
	s.LastActivity = now
}

// touch records activity without a transcript change. Callers hold turnMu.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.LastActivity = now
	s.mu.Unlock()
}

// idleSince reports whether the session saw no activity after cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActivity.Before(cutoff)
}

// advance moves the session to the given status if the transition table
// allows it.
func (s *Session) advance(to Status) error {
	for _, allowed := range validTransitions[s.Status] {
		if allowed == to {
			s.mu.Lock()
			s.Status = to
			s.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("invalid session transition: %s -> %s", s.Status, to)
}

// freeze takes the read-only snapshot handed to handlers. Taken once, at the
// transition out of gathering; later turns cannot reach it.
func (s *Session) freeze() {
	if s.frozen == nil {
		snapshot := s.Spec.clone()
		s.frozen = &snapshot
	}
}

// Snapshot returns the frozen spec, or false if the session is still
// gathering.
func (s *Session) Snapshot() (ProjectSpec, bool) {
	if s.frozen == nil {
		return ProjectSpec{}, false
	}
	return s.frozen.clone(), true
}
