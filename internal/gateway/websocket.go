package gateway

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/andresclaroavocado/project-launcher-backend/internal/conversation"
	"github.com/andresclaroavocado/project-launcher-backend/internal/models"
	"github.com/andresclaroavocado/project-launcher-backend/internal/pipeline"
)

var wsTracer = otel.Tracer("generation-stream")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking for production
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocketStreamer streams pipeline progress events for a session over a
// WebSocket connection.
type WebSocketStreamer struct {
	manager *conversation.Manager
	tracker *pipeline.Tracker
	tracer  trace.Tracer
}

// NewWebSocketStreamer creates a new generation progress streamer
func NewWebSocketStreamer(manager *conversation.Manager, tracker *pipeline.Tracker) *WebSocketStreamer {
	return &WebSocketStreamer{
		manager: manager,
		tracker: tracker,
		tracer:  wsTracer,
	}
}

// StreamGeneration handles WebSocket /api/ws/generation/:session_id
// @Summary Stream generation pipeline progress
// @Description WebSocket endpoint streaming per-step progress for a session's generation run
// @Tags conversations
// @Param session_id path string true "Session ID"
// @Success 101 "Switching Protocols"
// @Failure 404 {object} models.ErrorResponse
// @Router /ws/generation/{session_id} [get]
func (p *WebSocketStreamer) StreamGeneration(c *gin.Context) {
	_, span := p.tracer.Start(c.Request.Context(), "generation_stream.subscribe")
	defer span.End()

	sessionID := c.Param("session_id")
	span.SetAttributes(attribute.String("session_id", sessionID))

	if _, err := p.manager.Get(sessionID); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeSessionNotFound})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"error","component":"generation-stream","message":"upgrade failed","session_id":%q,"error":%q}`, sessionID, err.Error())
		return
	}
	defer conn.Close()

	events, cancel := p.tracker.Subscribe(sessionID)
	defer cancel()

	// Drain client frames so close and pong control messages are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case event := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				span.RecordError(err)
				return
			}
			if event.Done {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "pipeline finished"))
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}
