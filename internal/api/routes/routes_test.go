package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stream-service/internal/config"
	"stream-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type allowAll struct{}

func (allowAll) CheckRateLimit(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

type noTickets struct{}

func (noTickets) IssueTicket(context.Context, string) (string, time.Time, error) {
	return "", time.Time{}, nil
}

type noSessions struct{}

func (noSessions) ResolveSessionToken(context.Context, string) (string, error) { return "", nil }

type noMembers struct{}

func (noMembers) IsProjectMember(context.Context, string, string) (bool, error) { return false, nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := websocket.NewHub(noSessions{}, noMembers{}, websocket.Options{})
	t.Cleanup(hub.Stop)

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.Stream.InternalKey = "k3y"

	router := NewRouter(hub, allowAll{}, noTickets{}, cfg)
	router.SetupRoutes()
	return router.GetEngine()
}

func TestRoutes(t *testing.T) {
	engine := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		code   int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"swagger", http.MethodGet, "/swagger/doc.json", "", http.StatusOK},
		{"tickets need bearer", http.MethodPost, "/api/v1/stream/tickets", "", http.StatusUnauthorized},
		{"subscribe needs bearer", http.MethodPost, "/api/v1/stream/s1/project/p1", "", http.StatusUnauthorized},
		{"internal needs key", http.MethodPost, "/internal/updates", "", http.StatusUnauthorized},
		{"internal with key", http.MethodPost, "/internal/revocations", "k3y", http.StatusBadRequest},
		{"ws without upgrade", http.MethodGet, "/api/v1/ws", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.key != "" {
				req.Header.Set("X-Internal-Key", tt.key)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
