package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/andresclaroavocado/project-launcher-backend/internal/provider"
)

const (
	contextMessageWindow = 6
	contextContentLimit  = 150
)

// CompletionGateway is the slice of the provider gateway the manager needs
// for follow-up question generation.
type CompletionGateway interface {
	Complete(ctx context.Context, prompt string, opts provider.Options) (*provider.Completion, error)
}

// StateError rejects an operation against a session whose status does not
// allow it: a turn after gathering ended, or a generate request on a session
// that is not ready. Session state stays untouched.
type StateError struct {
	ID     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("session %s is %s: no further turns accepted", e.ID, e.Status)
}

// TurnResult is what a conversation turn returns: either the next follow-up
// question or the ready signal.
type TurnResult struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Status    Status `json:"status"`
	Ready     bool   `json:"ready"`
}

// Manager owns per-session dialogue state. It appends messages, extracts
// spec fields from answers, asks follow-up questions through the provider
// gateway, and flips a session to ready when the minimal field set is
// populated.
type Manager struct {
	gw       CompletionGateway
	store    *Store
	opts     provider.Options
	maxTurns int
	tracer   trace.Tracer
}

func NewManager(gw CompletionGateway, store *Store, opts provider.Options, maxTurns int) *Manager {
	return &Manager{
		gw:       gw,
		store:    store,
		opts:     opts,
		maxTurns: maxTurns,
		tracer:   otel.Tracer("conversation-manager"),
	}
}

// Start opens a session around an initial project idea. The session is only
// stored once the opening response has been generated, so a provider outage
// leaves no half-built state behind.
func (m *Manager) Start(ctx context.Context, idea string) (*TurnResult, error) {
	ctx, span := m.tracer.Start(ctx, "start_conversation")
	defer span.End()

	spec := ProjectSpec{Name: slugify(idea)}
	applyExtraction(&spec, idea, "")

	prompt := fmt.Sprintf(`You are a helpful assistant. A user wants to build: %s

Respond naturally and helpfully, then ask one focused question about the project's %s.`, idea, nextMissingField(spec))

	completion, err := m.gw.Complete(ctx, prompt, m.opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generate opening response: %w", err)
	}

	now := time.Now().UTC()
	session := &Session{
		ID:     uuid.NewString(),
		Idea:   idea,
		Status: StatusGathering,
		Spec:   spec,
		Messages: []Message{
			{Role: RoleUser, Content: idea, Timestamp: now},
			{Role: RoleAssistant, Content: completion.Text, Timestamp: now},
		},
		CreatedAt:    now,
		LastActivity: now,
	}
	m.store.Put(session)

	span.SetAttributes(attribute.String("session_id", session.ID))
	log.Printf(`{"level":"info","component":"conversation","event":"session_started","session_id":%q,"project_name":%q}`, session.ID, spec.Name)

	return &TurnResult{
		SessionID: session.ID,
		Response:  completion.Text,
		Status:    session.Status,
	}, nil
}

// Continue processes one answer for an open session. Nothing is committed
// until the whole turn has succeeded: a provider failure leaves the
// transcript and spec exactly as they were, and the same question can be
// retried.
func (m *Manager) Continue(ctx context.Context, sessionID, answer string) (*TurnResult, error) {
	ctx, span := m.tracer.Start(ctx, "continue_conversation",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	session, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	if session.Status != StatusGathering {
		return nil, &StateError{ID: session.ID, Status: session.Status}
	}
	if len(session.Messages) >= m.maxTurns {
		return nil, fmt.Errorf("session %s reached the conversation length limit (%d messages)", session.ID, m.maxTurns)
	}

	candidate := session.Spec.clone()
	applyExtraction(&candidate, answer, nextMissingField(candidate))

	now := time.Now().UTC()

	if candidate.Complete() {
		if err := session.advance(StatusReady); err != nil {
			return nil, err
		}

		readyText := fmt.Sprintf("Your project specification for %q is complete. Generation can start whenever you are ready.", candidate.Name)
		session.commitTurn(now, candidate,
			Message{Role: RoleUser, Content: answer, Timestamp: now},
			Message{Role: RoleAssistant, Content: readyText, Timestamp: now})
		session.freeze()

		log.Printf(`{"level":"info","component":"conversation","event":"session_ready","session_id":%q,"project_name":%q}`, session.ID, candidate.Name)
		return &TurnResult{
			SessionID: session.ID,
			Response:  readyText,
			Status:    session.Status,
			Ready:     true,
		}, nil
	}

	transcript := append(append([]Message(nil), session.Messages...), Message{Role: RoleUser, Content: answer, Timestamp: now})
	prompt := fmt.Sprintf(`You are a helpful assistant continuing a conversation about a project.

Project: %s
Recent conversation: %s
User's input: %s

Respond naturally and helpfully, then ask one focused question about the project's %s.`,
		session.Idea, buildContext(transcript), answer, nextMissingField(candidate))

	completion, err := m.gw.Complete(ctx, prompt, m.opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generate follow-up question: %w", err)
	}

	session.commitTurn(now, candidate,
		Message{Role: RoleUser, Content: answer, Timestamp: now},
		Message{Role: RoleAssistant, Content: completion.Text, Timestamp: now})

	return &TurnResult{
		SessionID: session.ID,
		Response:  completion.Text,
		Status:    session.Status,
	}, nil
}

// Get returns a stored session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	return m.store.Get(sessionID)
}

// BeginGeneration moves a ready session to generating and hands out the
// frozen spec snapshot the pipeline must operate on.
func (m *Manager) BeginGeneration(sessionID string) (ProjectSpec, error) {
	session, err := m.store.Get(sessionID)
	if err != nil {
		return ProjectSpec{}, err
	}

	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	if session.Status != StatusReady {
		return ProjectSpec{}, &StateError{ID: session.ID, Status: session.Status}
	}
	if err := session.advance(StatusGenerating); err != nil {
		return ProjectSpec{}, err
	}
	snapshot, ok := session.Snapshot()
	if !ok {
		return ProjectSpec{}, fmt.Errorf("session %s has no frozen spec", session.ID)
	}
	return snapshot, nil
}

// CompleteGeneration marks a generating session complete.
func (m *Manager) CompleteGeneration(sessionID string) error {
	return m.transition(sessionID, StatusComplete)
}

// Fail moves a session to the terminal failed state.
func (m *Manager) Fail(sessionID string) error {
	return m.transition(sessionID, StatusFailed)
}

func (m *Manager) transition(sessionID string, to Status) error {
	session, err := m.store.Get(sessionID)
	if err != nil {
		return err
	}

	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	if err := session.advance(to); err != nil {
		return err
	}
	session.touch(time.Now().UTC())
	return nil
}

// buildContext renders the last few transcript messages for a follow-up
// prompt, clamping long contents.
func buildContext(messages []Message) string {
	start := 0
	if len(messages) > contextMessageWindow {
		start = len(messages) - contextMessageWindow
	}

	parts := make([]string, 0, contextMessageWindow)
	for _, msg := range messages[start:] {
		role := "Assistant"
		if msg.Role == RoleUser {
			role = "User"
		}
		content := msg.Content
		if runes := []rune(content); len(runes) > contextContentLimit {
			content = string(runes[:contextContentLimit]) + "..."
		}
		parts = append(parts, role+": "+content)
	}
	return strings.Join(parts, " | ")
}
