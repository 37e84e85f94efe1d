package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stream-service/internal/api/middleware"
	"stream-service/internal/models"
	"stream-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSessions map[string]string

func (s stubSessions) ResolveSessionToken(_ context.Context, token string) (string, error) {
	if userID, ok := s[token]; ok {
		return userID, nil
	}
	return "", errors.New("invalid stream ticket")
}

type stubMembers map[string]bool

func (m stubMembers) IsProjectMember(_ context.Context, projectID, userID string) (bool, error) {
	return m[projectID+"/"+userID], nil
}

type stubTickets struct{}

func (stubTickets) IssueTicket(_ context.Context, userID string) (string, time.Time, error) {
	return "ticket-" + userID, time.Unix(1700000000, 0).UTC(), nil
}

type testServer struct {
	hub    *websocket.Hub
	router *gin.Engine
}

// newTestServer wires the handlers with a fake auth middleware that trusts
// the X-Test-User header.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hub := websocket.NewHub(
		stubSessions{"tok-u1": "u1", "tok-u2": "u2"},
		stubMembers{"proj-9/u1": true},
		websocket.Options{},
	)
	t.Cleanup(hub.Stop)

	fakeAuth := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, c.GetHeader("X-Test-User"))
		c.Set(middleware.ContextSessionID, "session-1")
		c.Next()
	}

	router := gin.New()
	api := router.Group("/api/v1")
	NewStreamHandler(hub, stubTickets{}, websocket.NewUpgrader(nil)).RegisterRoutes(api, fakeAuth)
	NewInternalHandler(hub).RegisterRoutes(router.Group("/internal"))

	return &testServer{hub: hub, router: router}
}

func (s *testServer) do(method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// openStream registers a socketless connection, optionally initialized
func (s *testServer) openStream(t *testing.T, token string) string {
	t.Helper()

	id, err := s.hub.Open(websocket.NewClient(s.hub, nil))
	require.NoError(t, err)
	if token != "" {
		_, err = s.hub.Authenticate(context.Background(), id, token)
		require.NoError(t, err)
	}
	return id
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStreamHandler_IssueTicket(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/stream/tickets", "u1", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var body models.TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ticket-u1", body.Ticket)
}

func TestStreamHandler_Subscribe(t *testing.T) {
	s := newTestServer(t)
	id := s.openStream(t, "tok-u1")

	w := s.do(http.MethodPost, "/api/v1/stream/"+id+"/project/proj-9", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"proj-9"}, s.hub.SubscribedProjects(id))
}

func TestStreamHandler_SubscribeErrors(t *testing.T) {
	s := newTestServer(t)
	initialized := s.openStream(t, "tok-u1")
	fresh := s.openStream(t, "")

	tests := []struct {
		name    string
		path    string
		user    string
		code    int
		message string
	}{
		{"unknown stream", "/api/v1/stream/nope/project/proj-9", "u1", http.StatusNotFound, "Stream not found"},
		{"not initialized", "/api/v1/stream/" + fresh + "/project/proj-9", "u1", http.StatusBadRequest, "Stream not initialized"},
		{"other user", "/api/v1/stream/" + initialized + "/project/proj-9", "u2", http.StatusForbidden, "Forbidden"},
		{"not a member", "/api/v1/stream/" + initialized + "/project/proj-1", "u1", http.StatusForbidden, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, tt.path, tt.user, "")
			assert.Equal(t, tt.code, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.StatusCode)
			assert.Equal(t, tt.message, body.Message)
		})
	}
	assert.Empty(t, s.hub.SubscribedProjects(initialized))
}

func TestStreamHandler_Unsubscribe(t *testing.T) {
	s := newTestServer(t)
	id := s.openStream(t, "tok-u1")

	w := s.do(http.MethodDelete, "/api/v1/stream/"+id+"/project/proj-9", "u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project subscription not found", decodeError(t, w).Message)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/stream/"+id+"/project/proj-9", "u1", "").Code)

	w = s.do(http.MethodDelete, "/api/v1/stream/"+id+"/project/proj-9", "u1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, s.hub.SubscribedProjects(id))
}

func TestStreamHandler_Stats(t *testing.T) {
	s := newTestServer(t)
	s.openStream(t, "tok-u1")

	w := s.do(http.MethodGet, "/api/v1/stream/stats", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Hub.Connections)
	assert.Equal(t, 1, body.Hub.Users)
}

func TestInternalHandler_PublishUpdate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/internal/updates", "", `{"object":"task","project":"proj-9","task":"t-1"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, s.hub.Pending())

	w = s.do(http.MethodPost, "/internal/updates", "", `{"object":"widget","project":"proj-9"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/internal/updates", "", `{"object":"task"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/internal/updates", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 1, s.hub.Pending())
}

func TestInternalHandler_PublishAfterStop(t *testing.T) {
	s := newTestServer(t)
	s.hub.Stop()

	w := s.do(http.MethodPost, "/internal/updates", "", `{"object":"profile","user":"u1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInternalHandler_Revoke(t *testing.T) {
	s := newTestServer(t)
	id := s.openStream(t, "tok-u1")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/stream/"+id+"/project/proj-9", "u1", "").Code)

	w := s.do(http.MethodPost, "/internal/revocations", "", `{"user":"u1","project":"proj-9"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body models.RevokeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Revoked)
	assert.Empty(t, s.hub.SubscribedProjects(id))

	w = s.do(http.MethodPost, "/internal/revocations", "", `{"user":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
