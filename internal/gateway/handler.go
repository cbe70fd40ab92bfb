package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/andresclaroavocado/project-launcher-backend/internal/auth"
	"github.com/andresclaroavocado/project-launcher-backend/internal/conversation"
	"github.com/andresclaroavocado/project-launcher-backend/internal/models"
	"github.com/andresclaroavocado/project-launcher-backend/internal/pipeline"
	"github.com/andresclaroavocado/project-launcher-backend/internal/provider"
	"github.com/andresclaroavocado/project-launcher-backend/internal/tools"
)

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	providers  *provider.Gateway
	dispatcher *tools.Dispatcher
	manager    *conversation.Manager
	runner     *pipeline.Runner
	outcomes   *pipeline.OutcomeStore
	jwtManager *auth.JWTManager

	operatorEmail        string
	operatorPasswordHash string
}

// NewHandler creates a new gateway handler
func NewHandler(providers *provider.Gateway, dispatcher *tools.Dispatcher, manager *conversation.Manager, runner *pipeline.Runner, outcomes *pipeline.OutcomeStore, jwtManager *auth.JWTManager, operatorEmail, operatorPasswordHash string) *Handler {
	return &Handler{
		providers:            providers,
		dispatcher:           dispatcher,
		manager:              manager,
		runner:               runner,
		outcomes:             outcomes,
		jwtManager:           jwtManager,
		operatorEmail:        operatorEmail,
		operatorPasswordHash: operatorPasswordHash,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login godoc
// @Summary Operator login
// @Description Authenticate the configured operator and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	if h.operatorEmail == "" || req.Email != h.operatorEmail {
		log.Printf(`{"level":"warn","message":"Unknown operator","email":%q}`, req.Email)
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password", Code: models.ErrCodeUnauthorized})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.operatorPasswordHash), []byte(req.Password)); err != nil {
		log.Printf(`{"level":"warn","message":"Invalid password","email":%q}`, req.Email)
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password", Code: models.ErrCodeUnauthorized})
		return
	}

	token, err := h.jwtManager.GenerateToken(c.Request.Context(), "operator", req.Email, []string{"operator"}, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, UserID: "operator"})
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	Token string `json:"token" binding:"required"`
}

// Refresh godoc
// @Summary Refresh token
// @Description Exchange a valid token for a fresh one
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Current token"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	token, err := h.jwtManager.RefreshToken(c.Request.Context(), req.Token, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired token", Code: models.ErrCodeUnauthorized})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, UserID: "operator"})
}

// Status godoc
// @Summary Service status
// @Description Provider availability, registry size and capability list
// @Tags tools
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /status [get]
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":        "project-launcher",
		"providers":      h.providers.Status(c.Request.Context()),
		"provider_order": h.providers.Order(),
		"total_tools":    h.dispatcher.Registry().Size(),
		"capabilities": []string{
			"Tool calling",
			"Action execution",
			"Project generation",
			"Code generation",
			"Documentation creation",
			"Git operations",
			"Dependency management",
			"Project deployment",
		},
	})
}

// ListTools godoc
// @Summary List tools
// @Description All registered tool definitions
// @Tags tools
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /tools [get]
func (h *Handler) ListTools(c *gin.Context) {
	defs := h.dispatcher.Registry().List()
	c.JSON(http.StatusOK, gin.H{
		"tools":       defs,
		"total_tools": len(defs),
	})
}

// ExecuteToolRequest represents a tool execution request
type ExecuteToolRequest struct {
	ToolName   string                 `json:"tool_name" binding:"required"`
	Parameters map[string]interface{} `json:"parameters"`
	SessionID  string                 `json:"session_id"`
}

// ExecuteTool godoc
// @Summary Execute a tool
// @Description Validate a tool call against the registry and run its handler
// @Tags tools
// @Accept json
// @Produce json
// @Param request body ExecuteToolRequest true "Tool call"
// @Success 200 {object} tools.Result
// @Failure 400 {object} tools.Result
// @Security BearerAuth
// @Router /tools/execute [post]
func (h *Handler) ExecuteTool(c *gin.Context) {
	var req ExecuteToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	result := h.dispatcher.Dispatch(c.Request.Context(), tools.Call{
		Tool:      tools.Name(req.ToolName),
		Params:    req.Parameters,
		SessionID: req.SessionID,
	})

	// Validation failures are client errors; handler and provider failures
	// are structured results, not transport errors.
	if result.Status == tools.StatusError && result.Code == models.ErrCodeValidationFailed {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateProjectRequest represents a session-independent generation request
type CreateProjectRequest struct {
	ProjectName string                 `json:"project_name" binding:"required"`
	Purpose     string                 `json:"purpose"`
	Framework   string                 `json:"framework"`
	Backend     string                 `json:"backend"`
	Database    string                 `json:"database"`
	Files       []pipeline.FileRequest `json:"files"`
}

// CreateProject godoc
// @Summary Create a complete project
// @Description Run the structure, code, documentation and git-init pipeline
// @Tags pipeline
// @Accept json
// @Produce json
// @Param request body CreateProjectRequest true "Project description"
// @Success 200 {object} pipeline.Outcome
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /create-project [post]
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}
	if len(req.Files) > pipeline.MaxFileRequests {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("at most %d files per generation run", pipeline.MaxFileRequests),
			Code:  models.ErrCodeValidationFailed,
		})
		return
	}

	spec := conversation.ProjectSpec{
		Name:      req.ProjectName,
		Purpose:   req.Purpose,
		Framework: req.Framework,
		Backend:   req.Backend,
		Database:  req.Database,
	}

	outcome := h.runner.CreateProject(c.Request.Context(), "", spec, req.Files)
	c.JSON(http.StatusOK, outcome)
}

// DeployProjectRequest represents a deployment request
type DeployProjectRequest struct {
	Platform       string   `json:"platform"`
	PackageManager string   `json:"package_manager"`
	Dependencies   []string `json:"dependencies"`
	ProjectPath    string   `json:"project_path"`
}

// DeployProject godoc
// @Summary Deploy a project
// @Description Install dependencies, then deploy to the chosen platform
// @Tags pipeline
// @Accept json
// @Produce json
// @Param request body DeployProjectRequest true "Deployment description"
// @Success 200 {object} pipeline.Outcome
// @Failure 400 {object} pipeline.Outcome
// @Security BearerAuth
// @Router /deploy-project [post]
func (h *Handler) DeployProject(c *gin.Context) {
	var req DeployProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	params := map[string]interface{}{}
	if req.Platform != "" {
		params["platform"] = req.Platform
	}
	if req.PackageManager != "" {
		params["package_manager"] = req.PackageManager
	}
	if req.Dependencies != nil {
		params["dependencies"] = req.Dependencies
	}
	if req.ProjectPath != "" {
		params["project_path"] = req.ProjectPath
	}

	// Let the dispatcher report schema failures before any step runs.
	if verr := h.dispatcher.Validate(tools.Call{Tool: tools.NameDeployProject, Params: params}); verr != nil {
		c.JSON(http.StatusBadRequest, tools.Result{
			Status: tools.StatusError,
			Tool:   tools.NameDeployProject,
			Error:  verr.Error(),
			Code:   models.ErrCodeValidationFailed,
		})
		return
	}

	outcome := h.runner.DeployProject(c.Request.Context(), req.Platform, req.PackageManager, req.Dependencies, req.ProjectPath)
	c.JSON(http.StatusOK, outcome)
}

// Health godoc
// @Summary Health check
// @Description Liveness plus per-provider reachability
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	status := h.providers.Status(c.Request.Context())

	healthy := false
	for _, ok := range status {
		if ok {
			healthy = true
			break
		}
	}

	overall := "healthy"
	if !healthy {
		overall = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    overall,
		"providers": status,
	})
}

// StartConversationRequest represents the opening turn of a session
type StartConversationRequest struct {
	ProjectIdea string `json:"project_idea" binding:"required"`
}

// StartConversation godoc
// @Summary Start a conversation
// @Description Open a session around an initial project idea
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body StartConversationRequest true "Project idea"
// @Success 200 {object} conversation.TurnResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /conversations [post]
func (h *Handler) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	result, err := h.manager.Start(c.Request.Context(), req.ProjectIdea)
	if err != nil {
		h.respondConversationError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ContinueConversationRequest represents one answer in an open session
type ContinueConversationRequest struct {
	Message string `json:"message" binding:"required"`
}

// ContinueConversation godoc
// @Summary Continue a conversation
// @Description Process one answer and return the next question or the ready signal
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body ContinueConversationRequest true "Answer"
// @Success 200 {object} conversation.TurnResult
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *Handler) ContinueConversation(c *gin.Context) {
	var req ContinueConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	result, err := h.manager.Continue(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		h.respondConversationError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetConversation godoc
// @Summary Get a conversation
// @Description Full session state including transcript and spec
// @Tags conversations
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} conversation.SessionView
// @Failure 404 {object} models.ErrorResponse
// @Router /conversations/{id} [get]
func (h *Handler) GetConversation(c *gin.Context) {
	session, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondConversationError(c, err)
		return
	}

	// Serialize a locked copy; turns may still be mutating the session.
	c.JSON(http.StatusOK, session.View())
}

// DownloadProject godoc
// @Summary Download the generated project
// @Description ZIP archive of the generated artifacts of a completed session
// @Tags conversations
// @Produce application/zip
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /conversations/{id}/download [get]
func (h *Handler) DownloadProject(c *gin.Context) {
	sessionID := c.Param("id")

	if _, err := h.manager.Get(sessionID); err != nil {
		h.respondConversationError(c, err)
		return
	}

	outcome, ok := h.outcomes.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "project not generated yet",
			Code:  models.ErrCodeSessionNotFound,
		})
		return
	}

	var buf bytes.Buffer
	if err := pipeline.WriteArchive(&buf, sessionID, outcome); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to build archive", Code: models.ErrCodeInternalError})
		return
	}

	filename := fmt.Sprintf("%s-complete-project.zip", outcome.ProjectName)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// GenerateProjectRequest lists the code files to generate for a session
type GenerateProjectRequest struct {
	Files []pipeline.FileRequest `json:"files"`
}

// GenerateProject godoc
// @Summary Generate a project from a ready session
// @Description Freeze the session spec and run the generation pipeline
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body GenerateProjectRequest false "Files to generate"
// @Success 200 {object} pipeline.Outcome
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/generate [post]
func (h *Handler) GenerateProject(c *gin.Context) {
	sessionID := c.Param("id")

	var req GenerateProjectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
			return
		}
	}
	if len(req.Files) > pipeline.MaxFileRequests {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("at most %d files per generation run", pipeline.MaxFileRequests),
			Code:  models.ErrCodeValidationFailed,
		})
		return
	}

	spec, err := h.manager.BeginGeneration(sessionID)
	if err != nil {
		h.respondConversationError(c, err)
		return
	}

	outcome := h.runner.CreateProject(c.Request.Context(), sessionID, spec, req.Files)

	if outcome.Success {
		h.outcomes.Put(sessionID, outcome)
		if err := h.manager.CompleteGeneration(sessionID); err != nil {
			log.Printf(`{"level":"error","component":"gateway","message":"complete transition failed","session_id":%q,"error":%q}`, sessionID, err.Error())
		}
	} else {
		if err := h.manager.Fail(sessionID); err != nil {
			log.Printf(`{"level":"error","component":"gateway","message":"fail transition failed","session_id":%q,"error":%q}`, sessionID, err.Error())
		}
	}

	c.JSON(http.StatusOK, outcome)
}

// respondConversationError maps manager errors onto HTTP statuses.
func (h *Handler) respondConversationError(c *gin.Context, err error) {
	var notFound *conversation.SessionNotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeSessionNotFound})
		return
	}

	var stateErr *conversation.StateError
	if errors.As(err, &stateErr) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeInvalidRequest})
		return
	}

	var provErr *provider.Error
	if errors.As(err, &provErr) {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeProviderFailed})
		return
	}

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeInternalError})
}
