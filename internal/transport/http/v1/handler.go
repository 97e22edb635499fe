// Package v1 provides the /v1 HTTP and websocket handlers.
package v1

import (
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/service"
)

// Handler handles /v1 requests.
type Handler struct {
	svc            *service.Service
	log            logrus.FieldLogger
	maxUploadBytes int64
	upgrader       websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, maxUploadBytes int64, log logrus.FieldLogger) *Handler {
	return &Handler{
		svc:            svc,
		log:            log.WithField("component", "http"),
		maxUploadBytes: maxUploadBytes,
		upgrader:       newUpgrader(),
	}
}

// RegisterRoutes registers routes on the /v1 group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/rag/ask", h.Ask)
	g.DELETE("/rag/session/:session_id", h.ClearSession)
	g.GET("/sessions/:session_id/messages", h.GetSessionMessages)

	g.POST("/booking/schedule", h.Schedule)
	g.GET("/booking/list", h.ListBookings)
	g.GET("/booking/:booking_id", h.GetBooking)
	g.DELETE("/booking/:booking_id", h.DeleteBooking)

	g.POST("/upload/file", h.UploadFile)

	g.GET("/ws", h.HandleWebSocket)
}
