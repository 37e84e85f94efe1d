package handlers

import (
	"net/http"

	"stream-service/internal/models"
	"stream-service/internal/websocket"
	"stream-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// Headers identifying the user and session that caused an update
const (
	HeaderActingUser    = "X-Acting-User"
	HeaderActingSession = "X-Acting-Session"
)

// InternalHandler serves endpoints for collaborating services in the
// same deployment.
type InternalHandler struct {
	hub *websocket.Hub
}

func NewInternalHandler(hub *websocket.Hub) *InternalHandler {
	return &InternalHandler{hub: hub}
}

func (h *InternalHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/updates", h.PublishUpdate)
	r.POST("/revocations", h.Revoke)
}

// PublishUpdate godoc
// @Summary Queue an update for broadcast
// @Description Body is a flat update object such as {"object":"task","project":"p1","task":"t-7"}
// @Tags internal
// @Accept json
// @Produce json
// @Param X-Internal-Key header string true "Shared internal key"
// @Param X-Acting-User header string false "User that caused the update"
// @Param X-Acting-Session header string false "Session that caused the update"
// @Success 202 {object} models.StatusResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /internal/updates [post]
func (h *InternalHandler) PublishUpdate(c *gin.Context) {
	var update websocket.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid update body")
		return
	}

	if by := c.GetHeader(HeaderActingUser); by != "" {
		update.From(by, c.GetHeader(HeaderActingSession))
	}

	if err := h.hub.Publish(&update); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.StatusResponse{Status: "queued"})
}

// Revoke godoc
// @Summary Revoke a user's access to a project
// @Description Drops the project from every stream of the user and notifies them
// @Tags internal
// @Accept json
// @Produce json
// @Param X-Internal-Key header string true "Shared internal key"
// @Param body body models.RevokeRequest true "Revocation"
// @Success 200 {object} models.RevokeResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /internal/revocations [post]
func (h *InternalHandler) Revoke(c *gin.Context) {
	var req models.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	revoked := h.hub.Revoke(req.User, req.Project)
	c.JSON(http.StatusOK, models.RevokeResponse{Status: "ok", Revoked: revoked})
}
