// Package v1 provides the HTTP handlers for the game API.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/shizhouxing/project-enigma/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	auth     *Authenticator
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler. Websocket upgrades are accepted from the
// given origins; none or "*" accepts any origin.
func NewHandler(service *service.Service, auth *Authenticator, origins ...string) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigins(origins),
		},
	}
}

// RegisterRoutes registers the public and authenticated routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	// Catalog and registry, read-only
	e.GET("/registry", h.ListRegistry)
	e.GET("/games", h.ListGames)
	e.GET("/games/:id", h.GetGame)
	e.GET("/models", h.ListModels)
	e.GET("/judge/:id", h.GetJudge)
	e.POST("/judge/:id/sample", h.SampleJudge)
	e.POST("/judge/:id/validate", h.ValidateJudge)
	e.GET("/shared/:shared_id", h.GetShared)

	// Sessions
	s := e.Group("/session", h.auth.Middleware())
	s.POST("/create-chat", h.CreateChat)
	s.GET("/history", h.ListHistory)
	s.DELETE("", h.DeleteSessions)
	s.POST("/:id/chat_conversation/:user_id/conversation", h.Conversation)
	s.POST("/:id/chat_conversation/:user_id/conclude", h.Conclude)
	s.GET("/:id/chat_conversation/:user_id/history", h.GetTranscript)
	s.POST("/:id/forfeit", h.Forfeit)
	s.POST("/:id/share", h.Share)
	s.GET("/:id/ws", h.WebSocket)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
