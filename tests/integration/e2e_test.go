package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andresclaroavocado/project-launcher-backend/internal/auth"
	"github.com/andresclaroavocado/project-launcher-backend/internal/conversation"
	"github.com/andresclaroavocado/project-launcher-backend/internal/gateway"
	"github.com/andresclaroavocado/project-launcher-backend/internal/pipeline"
	"github.com/andresclaroavocado/project-launcher-backend/internal/provider"
	"github.com/andresclaroavocado/project-launcher-backend/internal/tools"
	"github.com/andresclaroavocado/project-launcher-backend/tests/helpers"
)

const (
	operatorEmail    = "operator@example.com"
	operatorPassword = "integration-password"
)

// failableGit wraps the command formatter so a test can force the git step
// to fail.
type failableGit struct {
	fail bool
}

func (g *failableGit) Run(ctx context.Context, operation, message string) (string, error) {
	if g.fail {
		return "", context.DeadlineExceeded
	}
	return tools.CommandGit{}.Run(ctx, operation, message)
}

type env struct {
	srv       *httptest.Server
	anthropic *helpers.FakeAnthropic
	goose     *helpers.FakeGooseAI
	git       *failableGit
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	anthropic := helpers.NewFakeAnthropic("Here is the generated content. What is the project's purpose?")
	t.Cleanup(anthropic.Close)
	goose := helpers.NewFakeGooseAI("goose generated content")
	t.Cleanup(goose.Close)

	anthropicClient := provider.NewAnthropicClient("test-key", 5*time.Second)
	anthropicClient.SetBaseURL(anthropic.Server.URL)
	gooseClient := provider.NewGooseAIClient("test-key", 5*time.Second)
	gooseClient.SetBaseURL(goose.Server.URL)

	gw, err := provider.NewGateway(nil, anthropicClient, gooseClient)
	require.NoError(t, err)

	opts := provider.Options{Model: "claude-3-5-sonnet-20241022", MaxTokens: 4000, Temperature: 0.7}
	git := &failableGit{}
	handlers := tools.NewHandlers(gw, git, tools.CommandInstaller{}, tools.CommandDeployer{}, opts)
	dispatcher := tools.NewDispatcher(tools.DefaultRegistry(), handlers)

	store := conversation.NewStore()
	manager := conversation.NewManager(gw, store, opts, 50)

	tracker := pipeline.NewTracker()
	runner := pipeline.NewRunner(dispatcher, tracker)
	outcomes := pipeline.NewOutcomeStore()

	jwtManager, err := auth.NewJWTManager("integration-secret")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.MinCost)
	require.NoError(t, err)

	handler := gateway.NewHandler(gw, dispatcher, manager, runner, outcomes, jwtManager, operatorEmail, string(hash))
	streamer := gateway.NewWebSocketStreamer(manager, tracker)

	r := gin.New()
	gateway.RegisterRoutes(r, handler, streamer, jwtManager)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &env{srv: srv, anthropic: anthropic, goose: goose, git: git}
}

func (e *env) post(t *testing.T, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (e *env) login(t *testing.T) string {
	t.Helper()
	resp, body := e.post(t, "/api/v1/auth/login", "", gin.H{"email": operatorEmail, "password": operatorPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string)
}

func steps(t *testing.T, body map[string]interface{}) []map[string]interface{} {
	t.Helper()
	raw, ok := body["steps"].([]interface{})
	require.True(t, ok, "outcome must carry steps")
	out := make([]map[string]interface{}, len(raw))
	for i, s := range raw {
		out[i] = s.(map[string]interface{})
	}
	return out
}

// A conversation that supplies framework and purpose over two follow-up
// turns becomes ready on the third turn, and generation then returns
// structure, code and documentation results in order.
func TestConversationToGeneratedProject(t *testing.T) {
	e := newEnv(t)
	token := e.login(t)

	resp, body := e.post(t, "/api/v1/conversations", "", gin.H{"project_idea": "task tracker app"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := body["session_id"].(string)

	resp, body = e.post(t, "/api/v1/conversations/"+sessionID+"/messages", "", gin.H{"message": "framework=react"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["ready"])

	resp, body = e.post(t, "/api/v1/conversations/"+sessionID+"/messages", "", gin.H{"message": "purpose: personal todo list"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ready"])

	resp, body = e.post(t, "/api/v1/conversations/"+sessionID+"/generate", token, gin.H{
		"files": []gin.H{{"type": "component", "content": "todo list view"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	results := steps(t, body)
	require.GreaterOrEqual(t, len(results), 3)
	assert.Equal(t, "structure", results[0]["step"])
	assert.Equal(t, "code", results[1]["step"])
	assert.Equal(t, "documentation", results[2]["step"])
	for _, s := range results[:3] {
		result := s["result"].(map[string]interface{})
		assert.Equal(t, "success", result["status"], s["step"])
	}

	// The finished project stays downloadable as a ZIP archive.
	dl, err := http.Get(e.srv.URL + "/api/v1/conversations/" + sessionID + "/download")
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, "application/zip", dl.Header.Get("Content-Type"))
}

// A deploy call missing its required dependencies parameter is rejected
// before any provider traffic happens.
func TestDeployValidationMakesNoProviderCall(t *testing.T) {
	e := newEnv(t)
	token := e.login(t)
	before := e.anthropic.Requests.Load()

	resp, body := e.post(t, "/api/v1/tools/execute", token, gin.H{
		"tool_name":  "deploy_project",
		"parameters": gin.H{"platform": "vercel"},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing parameter: dependencies", body["error"])
	assert.Equal(t, before, e.anthropic.Requests.Load())
	assert.EqualValues(t, 0, e.goose.Requests.Load())
}

// A git-init failure halts the pipeline after documentation: the outcome
// lists the three successful steps and the failing one, and never reaches
// installation or deployment.
func TestPipelineFailFastAtGitInit(t *testing.T) {
	e := newEnv(t)
	token := e.login(t)

	resp, body := e.post(t, "/api/v1/conversations", "", gin.H{"project_idea": "task tracker app"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := body["session_id"].(string)

	_, _ = e.post(t, "/api/v1/conversations/"+sessionID+"/messages", "", gin.H{"message": "purpose: todo list, built with react"})

	e.git.fail = true
	resp, body = e.post(t, "/api/v1/conversations/"+sessionID+"/generate", token, gin.H{
		"files": []gin.H{{"type": "component", "content": "todo list view"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["success"])
	assert.Equal(t, "git-init", body["failed_step"])

	results := steps(t, body)
	byStep := map[string]string{}
	for _, s := range results {
		byStep[s["step"].(string)] = s["result"].(map[string]interface{})["status"].(string)
	}
	assert.Equal(t, "success", byStep["structure"])
	assert.Equal(t, "success", byStep["code"])
	assert.Equal(t, "success", byStep["documentation"])
	assert.Equal(t, "error", byStep["git-init"])
	assert.NotContains(t, byStep, "dependency-install")
	assert.NotContains(t, byStep, "deploy")

	// The session lands in the terminal failed state.
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/v1/conversations/"+sessionID, nil)
	require.NoError(t, err)
	getResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer getResp.Body.Close()
	var session map[string]interface{}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&session))
	assert.Equal(t, "failed", session["status"])
}

// When the primary provider is down, the secondary answers the same prompt
// and the conversation proceeds.
func TestProviderFallback(t *testing.T) {
	e := newEnv(t)

	e.anthropic.Fail.Store(true)

	resp, body := e.post(t, "/api/v1/conversations", "", gin.H{"project_idea": "task tracker app"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["session_id"])
	assert.Equal(t, "goose generated content", body["response"])
	assert.GreaterOrEqual(t, e.goose.Requests.Load(), int64(1))
}

// When every provider fails, the turn surfaces an aggregated provider error
// naming each backend, and the session state stays retryable.
func TestAllProvidersFail(t *testing.T) {
	e := newEnv(t)
	e.anthropic.Fail.Store(true)
	e.goose.Fail.Store(true)

	resp, body := e.post(t, "/api/v1/conversations", "", gin.H{"project_idea": "task tracker app"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errText, _ := body["error"].(string)
	assert.Contains(t, errText, "anthropic")
	assert.Contains(t, errText, "goose_ai")

	// Recovery: with providers back the same request succeeds.
	e.anthropic.Fail.Store(false)
	e.goose.Fail.Store(false)
	resp, _ = e.post(t, "/api/v1/conversations", "", gin.H{"project_idea": "task tracker app"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
