package handlers

import (
	"context"
	"net/http"
	"time"

	"stream-service/internal/api/middleware"
	"stream-service/internal/models"
	"stream-service/internal/websocket"
	"stream-service/pkg/response"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

// TicketIssuer is satisfied by services.SessionService.
type TicketIssuer interface {
	IssueTicket(ctx context.Context, userID string) (string, time.Time, error)
}

type StreamHandler struct {
	hub      *websocket.Hub
	tickets  TicketIssuer
	upgrader *gorilla.Upgrader
}

func NewStreamHandler(hub *websocket.Hub, tickets TicketIssuer, upgrader *gorilla.Upgrader) *StreamHandler {
	return &StreamHandler{hub: hub, tickets: tickets, upgrader: upgrader}
}

// RegisterRoutes maps the control endpoints behind the given middleware chain,
// which must start with authentication.
func (h *StreamHandler) RegisterRoutes(r *gin.RouterGroup, chain ...gin.HandlerFunc) {
	stream := r.Group("/stream")
	{
		stream.Use(chain...)
		stream.POST("/tickets", h.IssueTicket)
		stream.GET("/stats", h.Stats)
		stream.POST("/:id/project/:project", h.Subscribe)
		stream.DELETE("/:id/project/:project", h.Unsubscribe)
	}
}

// HandleWebSocket godoc
// @Summary Open a stream connection
// @Description Upgrades to a WebSocket. The server sends {"type":"connect","session":"<id>"}; the client answers with {"type":"initialize","authorization":"<ticket>"}.
// @Tags stream
// @Success 101 "Switching Protocols"
// @Failure 429 {object} models.ErrorResponse "Too many connection attempts"
// @Router /api/v1/ws [get]
func (h *StreamHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWS(h.hub, h.upgrader, c.Writer, c.Request)
}

// IssueTicket godoc
// @Summary Issue a stream ticket
// @Description Returns a short-lived, single-use ticket to send in the initialize message
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.TicketResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/stream/tickets [post]
func (h *StreamHandler) IssueTicket(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	ticket, expiresAt, err := h.tickets.IssueTicket(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.TicketResponse{Ticket: ticket, ExpiresAt: expiresAt})
}

// Subscribe godoc
// @Summary Subscribe a stream to a project
// @Description The stream must be initialized by the caller and the caller must be a project member
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Param id path string true "Stream id"
// @Param project path string true "Project id"
// @Success 200 {object} models.StatusResponse
// @Failure 400 {object} models.ErrorResponse "Stream not initialized"
// @Failure 403 {object} models.ErrorResponse "Forbidden"
// @Failure 404 {object} models.ErrorResponse "Stream not found"
// @Router /api/v1/stream/{id}/project/{project} [post]
func (h *StreamHandler) Subscribe(c *gin.Context) {
	err := h.hub.Subscribe(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID), c.Param("project"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Unsubscribe godoc
// @Summary Unsubscribe a stream from a project
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Param id path string true "Stream id"
// @Param project path string true "Project id"
// @Success 200 {object} models.StatusResponse
// @Failure 400 {object} models.ErrorResponse "Stream not initialized"
// @Failure 403 {object} models.ErrorResponse "Forbidden"
// @Failure 404 {object} models.ErrorResponse "Stream or subscription not found"
// @Router /api/v1/stream/{id}/project/{project} [delete]
func (h *StreamHandler) Unsubscribe(c *gin.Context) {
	err := h.hub.Unsubscribe(c.Param("id"), c.GetString(middleware.ContextUserID), c.Param("project"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// StatsResponse combines live index sizes with broadcast counters
type StatsResponse struct {
	Hub       websocket.HubStats        `json:"hub"`
	Broadcast websocket.MetricsSnapshot `json:"broadcast"`
}

// Stats godoc
// @Summary Stream broker statistics
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Router /api/v1/stream/stats [get]
func (h *StreamHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Hub:       h.hub.Stats(),
		Broadcast: h.hub.Metrics.Snapshot(),
	})
}
