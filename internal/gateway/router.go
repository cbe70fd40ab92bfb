package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/andresclaroavocado/project-launcher-backend/internal/auth"
)

// RegisterRoutes wires the full API surface onto a gin engine.
func RegisterRoutes(r *gin.Engine, h *Handler, ws *WebSocketStreamer, jwtManager *auth.JWTManager) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", h.Login)
		api.POST("/auth/refresh", h.Refresh)

		api.GET("/status", h.Status)
		api.GET("/tools", h.ListTools)

		api.POST("/conversations", h.StartConversation)
		api.GET("/conversations/:id", h.GetConversation)
		api.POST("/conversations/:id/messages", h.ContinueConversation)
		api.GET("/conversations/:id/download", h.DownloadProject)

		protected := api.Group("")
		protected.Use(auth.RequireAuth(jwtManager))
		{
			protected.POST("/tools/execute", h.ExecuteTool)
			protected.POST("/create-project", h.CreateProject)
			protected.POST("/conversations/:id/generate", h.GenerateProject)

			operator := protected.Group("")
			operator.Use(auth.RequireRole("operator"))
			{
				operator.POST("/deploy-project", h.DeployProject)
			}
		}
	}

	r.GET("/api/ws/generation/:session_id", ws.StreamGeneration)
}
