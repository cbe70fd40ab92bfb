package pipeline

import (
	"sync"

	"github.com/andresclaroavocado/project-launcher-backend/internal/tools"
)

// Event is one progress update from a pipeline run.
type Event struct {
	Step   string             `json:"step,omitempty"`
	Status tools.ResultStatus `json:"status"`
	Error  string             `json:"error,omitempty"`
	Done   bool               `json:"done"`
}

// Tracker fans pipeline progress out to streaming subscribers, keyed by
// session id. Subscribers receive every event published after they joined;
// slow subscribers drop events rather than block the pipeline.
type Tracker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for one session plus a cancel
// function the subscriber must call when done.
func (t *Tracker) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	t.mu.Lock()
	if t.subs[sessionID] == nil {
		t.subs[sessionID] = make(map[chan Event]struct{})
	}
	t.subs[sessionID][ch] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if set, ok := t.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(t.subs, sessionID)
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the session.
func (t *Tracker) Publish(sessionID string, event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ch := range t.subs[sessionID] {
		select {
		case ch <- event:
		default:
			// Subscriber is not draining; drop instead of stalling the run.
		}
	}
}
