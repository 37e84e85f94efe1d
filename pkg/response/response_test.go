package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"stream-service/internal/models"
	"stream-service/internal/services"
	"stream-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"unknown stream", websocket.ErrNotFound, http.StatusNotFound, "Stream not found"},
		{"missing subscription", websocket.ErrSubscriptionNotFound, http.StatusNotFound, "Project subscription not found"},
		{"not initialized", websocket.ErrUnauthenticated, http.StatusBadRequest, "Stream not initialized"},
		{"forbidden", fmt.Errorf("subscribe: %w", websocket.ErrForbidden), http.StatusForbidden, "Forbidden"},
		{"stopped", websocket.ErrHubStopped, http.StatusServiceUnavailable, "Stream broker stopped"},
		{"used ticket", services.ErrTicketUsed, http.StatusUnauthorized, "stream ticket already used"},
		{"membership failure", fmt.Errorf("membership check: %w", errors.New("db down")), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := Status(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestError_WritesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, websocket.ErrUnauthenticated)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, c.IsAborted())

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Error:      "Bad Request",
		Message:    "Stream not initialized",
	}, body)
}
