package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBadTicket error = &SessionError{Reason: "invalid ticket"}

// fakeSessions resolves tokens from a fixed table
type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (f *fakeSessions) ResolveSessionToken(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	userID, ok := f.tokens[token]
	if !ok {
		return "", errBadTicket
	}
	return userID, nil
}

// resolverFunc and membershipFunc adapt closures to the collaborator interfaces
type resolverFunc func(ctx context.Context, token string) (string, error)

func (f resolverFunc) ResolveSessionToken(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

type membershipFunc func(ctx context.Context, projectID, userID string) (bool, error)

func (f membershipFunc) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	return f(ctx, projectID, userID)
}

// fakeMembers answers membership from a project -> users table
type fakeMembers struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	err     error
	calls   int
}

func (f *fakeMembers) IsProjectMember(_ context.Context, projectID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.members[projectID][userID], nil
}

func (f *fakeMembers) add(projectID string, userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.members[projectID] == nil {
		f.members[projectID] = make(map[string]bool)
	}
	for _, userID := range userIDs {
		f.members[projectID][userID] = true
	}
}

// fakePresence records online/offline transitions
type fakePresence struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePresence) SetUserOnline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "online:"+userID)
	return nil
}

func (f *fakePresence) SetUserOffline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "offline:"+userID)
	return nil
}

func (f *fakePresence) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type testEnv struct {
	hub      *Hub
	sessions *fakeSessions
	members  *fakeMembers
	presence *fakePresence
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	env := &testEnv{
		sessions: &fakeSessions{tokens: map[string]string{
			"tok-u1": "u1",
			"tok-u2": "u2",
		}},
		members:  &fakeMembers{members: make(map[string]map[string]bool)},
		presence: &fakePresence{},
	}
	if opts.Presence == nil {
		opts.Presence = env.presence
	}
	env.hub = NewHub(env.sessions, env.members, opts)
	t.Cleanup(env.hub.Stop)
	return env
}

// open registers a socketless client and discards its connect greeting
func (e *testEnv) open(t *testing.T) *Client {
	t.Helper()

	client := NewClient(e.hub, nil)
	id, err := e.hub.Open(client)
	require.NoError(t, err)
	require.Equal(t, client.GetID(), id)

	msgs := drainMessages(client)
	require.Len(t, msgs, 1)
	require.Equal(t, "connect", msgs[0]["type"])
	return client
}

// login opens a client and binds it to the user behind token
func (e *testEnv) login(t *testing.T, token string) *Client {
	t.Helper()

	client := e.open(t)
	_, err := e.hub.Authenticate(context.Background(), client.GetID(), token)
	require.NoError(t, err)
	return client
}

// drainMessages returns every frame queued for the client without blocking
func drainMessages(c *Client) []map[string]interface{} {
	var msgs []map[string]interface{}
	for {
		select {
		case data := <-c.send:
			var msg map[string]interface{}
			if err := json.Unmarshal(data, &msg); err == nil {
				msgs = append(msgs, msg)
			}
		default:
			return msgs
		}
	}
}

func messagesOfType(msgs []map[string]interface{}, msgType string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, msg := range msgs {
		if msg["type"] == msgType {
			out = append(out, msg)
		}
	}
	return out
}
