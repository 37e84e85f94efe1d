package response

import (
	"errors"
	"log/slog"
	"net/http"

	"stream-service/internal/models"
	"stream-service/internal/services"
	"stream-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

// Status resolves the HTTP status and public message for err.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, websocket.ErrSubscriptionNotFound):
		return http.StatusNotFound, "Project subscription not found"
	case errors.Is(err, websocket.ErrNotFound):
		return http.StatusNotFound, "Stream not found"
	case errors.Is(err, websocket.ErrUnauthenticated):
		return http.StatusBadRequest, "Stream not initialized"
	case errors.Is(err, websocket.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, websocket.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, websocket.ErrHubStopped):
		return http.StatusServiceUnavailable, "Stream broker stopped"
	case errors.Is(err, services.ErrInvalidTicket),
		errors.Is(err, services.ErrTicketUsed),
		errors.Is(err, services.ErrTicketExpired):
		return http.StatusUnauthorized, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// Error writes the structured error body for err and aborts the request.
func Error(c *gin.Context, err error) {
	code, message := Status(err)
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, models.ErrorResponse{
		StatusCode: code,
		Error:      http.StatusText(code),
		Message:    message,
	})
}

// Fail writes a structured error body with an explicit status.
func Fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, models.ErrorResponse{
		StatusCode: code,
		Error:      http.StatusText(code),
		Message:    message,
	})
}
