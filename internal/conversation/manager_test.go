package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresclaroavocado/project-launcher-backend/internal/provider"
)

type stubGateway struct {
	text    string
	err     error
	prompts []string
}

func (g *stubGateway) Complete(ctx context.Context, prompt string, opts provider.Options) (*provider.Completion, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return nil, g.err
	}
	return &provider.Completion{Text: g.text}, nil
}

func newTestManager(gw *stubGateway) (*Manager, *Store) {
	store := NewStore()
	m := NewManager(gw, store, provider.Options{Model: "claude-3-5-sonnet-20241022", MaxTokens: 4000, Temperature: 0.7}, 50)
	return m, store
}

func TestManager_Start(t *testing.T) {
	gw := &stubGateway{text: "Sounds great! What is the app for?"}
	m, store := newTestManager(gw)

	result, err := m.Start(context.Background(), "task tracker app")

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, StatusGathering, result.Status)
	assert.False(t, result.Ready)
	assert.Equal(t, gw.text, result.Response)

	session, err := store.Get(result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "task-tracker-app", session.Spec.Name)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, RoleUser, session.Messages[0].Role)
	assert.Equal(t, RoleAssistant, session.Messages[1].Role)

	require.Len(t, gw.prompts, 1)
	assert.Contains(t, gw.prompts[0], "task tracker app")
	assert.Contains(t, gw.prompts[0], "purpose")
}

func TestManager_StartProviderFailureStoresNothing(t *testing.T) {
	gw := &stubGateway{err: errors.New("all providers down")}
	m, store := newTestManager(gw)

	_, err := m.Start(context.Background(), "task tracker app")

	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestManager_ConversationReachesReady(t *testing.T) {
	gw := &stubGateway{text: "Tell me more."}
	m, _ := newTestManager(gw)

	started, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)

	turn, err := m.Continue(context.Background(), started.SessionID, "framework=react")
	require.NoError(t, err)
	assert.False(t, turn.Ready)
	assert.Equal(t, StatusGathering, turn.Status)

	turn, err = m.Continue(context.Background(), started.SessionID, "purpose: personal todo list")
	require.NoError(t, err)
	assert.True(t, turn.Ready)
	assert.Equal(t, StatusReady, turn.Status)

	session, err := m.Get(started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "react", session.Spec.Framework)
	assert.Equal(t, "personal todo list", session.Spec.Purpose)

	snapshot, ok := session.Snapshot()
	require.True(t, ok, "spec must be frozen at ready")
	assert.True(t, snapshot.Complete())
}

func TestManager_FreeTextAnswersFillPendingFields(t *testing.T) {
	gw := &stubGateway{text: "Got it."}
	m, _ := newTestManager(gw)

	started, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)

	// First follow-up targets purpose, so plain text lands there.
	turn, err := m.Continue(context.Background(), started.SessionID, "personal todo list")
	require.NoError(t, err)
	assert.False(t, turn.Ready)

	turn, err = m.Continue(context.Background(), started.SessionID, "react")
	require.NoError(t, err)
	assert.True(t, turn.Ready)
}

func TestManager_ProviderFailureLeavesTurnUncommitted(t *testing.T) {
	gw := &stubGateway{text: "What is it for?"}
	m, _ := newTestManager(gw)

	started, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)

	session, err := m.Get(started.SessionID)
	require.NoError(t, err)
	messagesBefore := len(session.Messages)
	specBefore := session.Spec

	gw.err = errors.New("all providers down")
	_, err = m.Continue(context.Background(), started.SessionID, "framework=react")
	require.Error(t, err)

	assert.Len(t, session.Messages, messagesBefore, "failed turn must not append messages")
	assert.Equal(t, specBefore, session.Spec, "failed turn must not mutate the spec")
	assert.Equal(t, StatusGathering, session.Status)

	// The same answer succeeds once the provider recovers.
	gw.err = nil
	turn, err := m.Continue(context.Background(), started.SessionID, "framework=react")
	require.NoError(t, err)
	assert.Equal(t, StatusGathering, turn.Status)
}

func TestManager_RejectsTurnsAfterGathering(t *testing.T) {
	gw := &stubGateway{text: "ok"}
	m, _ := newTestManager(gw)

	started, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)

	_, err = m.Continue(context.Background(), started.SessionID, "purpose: todo, and use react")
	require.NoError(t, err)

	session, err := m.Get(started.SessionID)
	require.NoError(t, err)
	require.Equal(t, StatusReady, session.Status)
	frozen, ok := session.Snapshot()
	require.True(t, ok)

	_, err = m.Continue(context.Background(), started.SessionID, "framework=vue")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StatusReady, stateErr.Status)

	// Generation sees the same snapshot despite the rejected turn.
	snapshot, err := m.BeginGeneration(started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, frozen, snapshot)

	_, err = m.Continue(context.Background(), started.SessionID, "framework=vue")
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StatusGenerating, stateErr.Status)
}

func TestManager_GenerationLifecycle(t *testing.T) {
	gw := &stubGateway{text: "ok"}
	m, _ := newTestManager(gw)

	started, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)

	_, err = m.BeginGeneration(started.SessionID)
	assert.Error(t, err, "gathering session cannot start generation")

	_, err = m.Continue(context.Background(), started.SessionID, "purpose: todo list, built with react")
	require.NoError(t, err)

	snapshot, err := m.BeginGeneration(started.SessionID)
	require.NoError(t, err)
	assert.True(t, snapshot.Complete())

	require.NoError(t, m.CompleteGeneration(started.SessionID))

	session, err := m.Get(started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, session.Status)
}

func TestManager_FailIsTerminal(t *testing.T) {
	gw := &stubGateway{text: "ok"}
	m, _ := newTestManager(gw)

	started, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)

	require.NoError(t, m.Fail(started.SessionID))
	assert.Error(t, m.Fail(started.SessionID))

	_, err = m.Continue(context.Background(), started.SessionID, "anything")
	var stateErr *StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestManager_UnknownSession(t *testing.T) {
	gw := &stubGateway{text: "ok"}
	m, _ := newTestManager(gw)

	_, err := m.Continue(context.Background(), "nope", "hello")
	var notFound *SessionNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestBuildContext(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'x'
	}

	messages := []Message{
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
		{Role: RoleUser, Content: "three"},
		{Role: RoleAssistant, Content: "four"},
		{Role: RoleUser, Content: "five"},
		{Role: RoleAssistant, Content: "six"},
		{Role: RoleUser, Content: string(long)},
	}

	got := buildContext(messages)

	assert.NotContains(t, got, "one", "only the last six messages are kept")
	assert.Contains(t, got, "Assistant: two")
	assert.Contains(t, got, "...", "long contents are clamped")
	assert.NotContains(t, got, string(long))
}

// Turns, expiry sweeps and serialization snapshots run on separate
// goroutines in production wiring; run them together so the race detector
// can check every Session field access is guarded.
func TestManager_ConcurrentTurnsSweepAndView(t *testing.T) {
	gw := &stubGateway{text: "Could you tell me more?"}
	m, store := newTestManager(gw)

	result, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)
	id := result.SessionID

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, _ = m.Continue(context.Background(), id, "   ")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			store.CleanupExpired(time.Hour)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if session, getErr := store.Get(id); getErr == nil {
				view := session.View()
				assert.Equal(t, id, view.ID)
			}
		}
	}()
	wg.Wait()

	session, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusGathering, session.Status)
}

func TestManager_BeginGenerationRequiresReady(t *testing.T) {
	gw := &stubGateway{text: "What is it for?"}
	m, _ := newTestManager(gw)

	result, err := m.Start(context.Background(), "task tracker app")
	require.NoError(t, err)

	_, err = m.BeginGeneration(result.SessionID)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StatusGathering, stateErr.Status)
}
