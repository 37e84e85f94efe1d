package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultFlushInterval is how often queued updates are delivered
	DefaultFlushInterval = time.Second

	// DefaultSendBuffer is the per-client outbound queue length
	DefaultSendBuffer = 256

	presenceTimeout = 3 * time.Second
)

// SessionResolver turns a one-time stream ticket into the user it was issued to.
// Rejections returned as *SessionError are reported to the client verbatim.
type SessionResolver interface {
	ResolveSessionToken(ctx context.Context, token string) (string, error)
}

// MembershipChecker answers whether a user may see a project's updates
type MembershipChecker interface {
	IsProjectMember(ctx context.Context, projectID, userID string) (bool, error)
}

// PresenceTracker is told when a user gains its first or loses its last connection
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

type Options struct {
	FlushInterval time.Duration
	SendBuffer    int
	Presence      PresenceTracker
}

// Hub owns every live connection and the indices that route updates to
// them. All index mutations happen under mu, and the three relations
// (project->clients, user->clients, client->projects) are only ever
// changed together so a connection is never reachable from one index
// after it has left another.
type Hub struct {
	// Registered clients by connection id
	clients map[string]*Client

	// Authenticated connection ids by user id
	userClients map[string]map[string]struct{}

	// Subscribed connection ids by project id
	projectClients map[string]map[string]struct{}

	// Reverse of projectClients, used for cleanup on disconnect
	clientProjects map[string]map[string]struct{}

	mu sync.RWMutex

	// Pending updates in arrival order
	queue   []*Update
	queueMu sync.Mutex

	sessions   SessionResolver
	members    MembershipChecker
	presence   PresenceTracker
	presenceMu sync.Mutex

	flushInterval time.Duration
	sendBuffer    int

	flushing int32
	started  int32
	stopped  int32

	Metrics *BroadcastMetrics

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(sessions SessionResolver, members MembershipChecker, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}

	return &Hub{
		clients:        make(map[string]*Client),
		userClients:    make(map[string]map[string]struct{}),
		projectClients: make(map[string]map[string]struct{}),
		clientProjects: make(map[string]map[string]struct{}),
		sessions:       sessions,
		members:        members,
		presence:       opts.Presence,
		flushInterval:  opts.FlushInterval,
		sendBuffer:     opts.SendBuffer,
		Metrics:        NewBroadcastMetrics(),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Run flushes the update queue every interval until Stop is called
func (h *Hub) Run() {
	if !atomic.CompareAndSwapInt32(&h.started, 0, 1) {
		return
	}
	defer close(h.done)

	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	slog.Info("Stream hub started", "flushInterval", h.flushInterval)

	for {
		select {
		case <-ticker.C:
			h.Flush()

		case <-h.ctx.Done():
			slog.Info("Stream hub shutting down")
			return
		}
	}
}

// Stop ends the flush loop, delivers whatever is still queued and closes
// every remaining connection.
func (h *Hub) Stop() {
	// Flipped under queueMu so no Publish can slip in after the final flush
	h.queueMu.Lock()
	stopping := atomic.CompareAndSwapInt32(&h.stopped, 0, 1)
	h.queueMu.Unlock()
	if !stopping {
		return
	}
	h.cancel()
	if atomic.LoadInt32(&h.started) == 1 {
		<-h.done
	}

	h.Flush()

	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Close(id)
	}
	slog.Info("Stream hub stopped", "closedConnections", len(ids))
}

func (h *Hub) isStopped() bool {
	return atomic.LoadInt32(&h.stopped) == 1
}

// =============================================================================
// Connection Registry
// =============================================================================

// Open registers a new, unauthenticated connection and greets it with its id
func (h *Hub) Open(client *Client) (string, error) {
	h.mu.Lock()
	if h.isStopped() {
		h.mu.Unlock()
		return "", ErrHubStopped
	}
	h.clients[client.id] = client
	h.mu.Unlock()

	slog.Info("Client registered", "clientID", client.id)

	if err := client.SendMessage(NewConnectMessage(client.id)); err != nil {
		h.Close(client.id)
		return "", err
	}
	return client.id, nil
}

// Lookup returns the live client registered under id
func (h *Hub) Lookup(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[id]
	return client, ok
}

// Close purges every trace of a connection: its user binding, its project
// subscriptions, the reverse map and finally the registry entry. It is
// safe to call repeatedly. No unsubscribe notices are sent.
func (h *Hub) Close(id string) {
	h.mu.Lock()

	client, ok := h.clients[id]

	var userID string
	lastForUser := false
	if ok {
		userID = client.UserID()
		if set, exists := h.userClients[userID]; userID != "" && exists {
			delete(set, id)
			if len(set) == 0 {
				delete(h.userClients, userID)
				lastForUser = true
			}
		}
	}

	for projectID := range h.clientProjects[id] {
		h.dropProjectClient(projectID, id)
	}
	delete(h.clientProjects, id)
	delete(h.clients, id)

	h.mu.Unlock()

	if !ok {
		return
	}

	client.close()
	slog.Info("Client unregistered", "clientID", id, "userID", userID)

	if lastForUser {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		h.syncPresence(ctx, userID)
	}
}

// syncPresence publishes whether userID currently has any connection.
// Calls are serialized and read the index only once they hold presenceMu,
// so the last write always reflects the latest transition.
func (h *Hub) syncPresence(ctx context.Context, userID string) {
	if h.presence == nil {
		return
	}

	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	h.mu.RLock()
	online := len(h.userClients[userID]) > 0
	h.mu.RUnlock()

	if online {
		if err := h.presence.SetUserOnline(ctx, userID); err != nil {
			slog.Error("Failed to set user online", "userID", userID, "error", err)
		}
		return
	}
	if err := h.presence.SetUserOffline(ctx, userID); err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
	}
}

// =============================================================================
// Session Authenticator
// =============================================================================

// Authenticate binds the user behind token to the connection. A
// connection can be bound once; the resolver is called without holding
// the hub lock and the connection is re-validated afterwards.
func (h *Hub) Authenticate(ctx context.Context, id, token string) (string, error) {
	h.mu.RLock()
	client, ok := h.clients[id]
	bound := ok && client.UserID() != ""
	h.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if bound {
		return "", ErrAlreadyAuthenticated
	}
	if token == "" {
		return "", fmt.Errorf("%w: missing authorization", ErrBadRequest)
	}

	userID, err := h.sessions.ResolveSessionToken(ctx, token)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	if current, exists := h.clients[id]; !exists || current != client {
		h.mu.Unlock()
		return "", ErrNotFound
	}
	if client.UserID() != "" {
		h.mu.Unlock()
		return "", ErrAlreadyAuthenticated
	}
	client.setUserID(userID)

	set, exists := h.userClients[userID]
	if !exists {
		set = make(map[string]struct{})
		h.userClients[userID] = set
	}
	firstForUser := len(set) == 0
	set[id] = struct{}{}
	h.mu.Unlock()

	slog.Info("Client authenticated", "clientID", id, "userID", userID)

	if firstForUser {
		h.syncPresence(ctx, userID)
	}
	return userID, nil
}

// HandleMessage processes one inbound frame from a client
func (h *Hub) HandleMessage(client *Client, raw []byte) {
	if _, ok := h.Lookup(client.id); !ok {
		// Message received after disconnect
		return
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Debug("Failed to unmarshal message", "clientID", client.id, "error", err)
		client.SendMessage(NewErrorMessage("Invalid message format"))
		return
	}

	if !msg.Type.IsInbound() {
		client.SendMessage(NewErrorMessage("Unknown message type: " + string(msg.Type)))
		return
	}

	if msg.Authorization == "" {
		client.SendMessage(NewInitializeErrorMessage("Missing authorization"))
		return
	}

	userID, err := h.Authenticate(client.ctx, client.id, msg.Authorization)
	if err != nil {
		slog.Warn("Client authentication failed", "clientID", client.id, "error", err)
		client.SendMessage(NewInitializeErrorMessage(initializeErrorText(err)))
		return
	}
	client.SendMessage(NewInitializeOKMessage(userID))
}

// =============================================================================
// Subscription Index
// =============================================================================

// authorize checks that id is live, bound, and bound to callerID
func (h *Hub) authorize(id, callerID string) (*Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[id]
	if !ok {
		return nil, ErrNotFound
	}

	userID := client.UserID()
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if userID != callerID {
		return nil, ErrForbidden
	}
	return client, nil
}

// Subscribe starts delivering projectID updates to connection id.
// Subscribing twice is not an error.
func (h *Hub) Subscribe(ctx context.Context, id, callerID, projectID string) error {
	client, err := h.authorize(id, callerID)
	if err != nil {
		return err
	}

	member, err := h.members.IsProjectMember(ctx, projectID, callerID)
	if err != nil {
		return fmt.Errorf("membership check: %w", err)
	}
	if !member {
		return ErrForbidden
	}

	h.mu.Lock()
	if current, exists := h.clients[id]; !exists || current != client {
		h.mu.Unlock()
		return ErrNotFound
	}
	h.addProjectClient(projectID, id)
	h.mu.Unlock()

	slog.Debug("Client subscribed", "clientID", id, "userID", callerID, "projectID", projectID)

	client.SendMessage(NewSubscribeMessage(projectID))
	return nil
}

// Unsubscribe stops delivering projectID updates to connection id
func (h *Hub) Unsubscribe(id, callerID, projectID string) error {
	client, err := h.authorize(id, callerID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if current, exists := h.clients[id]; !exists || current != client {
		h.mu.Unlock()
		return ErrNotFound
	}
	if _, subscribed := h.projectClients[projectID][id]; !subscribed {
		h.mu.Unlock()
		return ErrSubscriptionNotFound
	}
	h.dropProjectClient(projectID, id)
	h.mu.Unlock()

	slog.Debug("Client unsubscribed", "clientID", id, "userID", callerID, "projectID", projectID)

	client.SendMessage(NewUnsubscribeMessage(projectID))
	return nil
}

// Revoke removes every subscription userID holds on projectID and tells
// each affected connection. It returns how many connections were dropped.
func (h *Hub) Revoke(userID, projectID string) int {
	h.mu.Lock()
	var revoked []*Client
	for id := range h.userClients[userID] {
		if _, subscribed := h.projectClients[projectID][id]; !subscribed {
			continue
		}
		h.dropProjectClient(projectID, id)
		if client, ok := h.clients[id]; ok {
			revoked = append(revoked, client)
		}
	}
	h.mu.Unlock()

	for _, client := range revoked {
		client.SendMessage(NewUnsubscribeMessage(projectID))
	}

	if len(revoked) > 0 {
		slog.Info("Project subscriptions revoked", "userID", userID, "projectID", projectID, "connections", len(revoked))
	}
	return len(revoked)
}

// addProjectClient and dropProjectClient keep projectClients and
// clientProjects in step. Callers hold mu.
func (h *Hub) addProjectClient(projectID, id string) {
	if h.projectClients[projectID] == nil {
		h.projectClients[projectID] = make(map[string]struct{})
	}
	h.projectClients[projectID][id] = struct{}{}

	if h.clientProjects[id] == nil {
		h.clientProjects[id] = make(map[string]struct{})
	}
	h.clientProjects[id][projectID] = struct{}{}
}

func (h *Hub) dropProjectClient(projectID, id string) {
	if set, ok := h.projectClients[projectID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(h.projectClients, projectID)
		}
	}
	if set, ok := h.clientProjects[id]; ok {
		delete(set, projectID)
		if len(set) == 0 {
			delete(h.clientProjects, id)
		}
	}
}

// =============================================================================
// Update Queue & Broadcaster
// =============================================================================

// Publish queues an update for the next flush. It never blocks on the network.
func (h *Hub) Publish(update *Update) error {
	if err := update.Validate(); err != nil {
		return err
	}

	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	if h.isStopped() {
		return ErrHubStopped
	}
	h.queue = append(h.queue, update)
	return nil
}

// Flush drains the queue and delivers each update, in order, to its
// recipients. Connections whose send fails are skipped for the rest of
// the batch and closed afterwards. A Flush that starts while another is
// running returns immediately.
func (h *Hub) Flush() {
	if !atomic.CompareAndSwapInt32(&h.flushing, 0, 1) {
		h.Metrics.RecordSkippedTick()
		return
	}
	defer atomic.StoreInt32(&h.flushing, 0)

	startTime := time.Now()

	h.queueMu.Lock()
	batch := h.queue
	h.queue = nil
	h.queueMu.Unlock()

	delivered, dropped := 0, 0
	failed := make(map[string]struct{})

	for _, update := range batch {
		data, err := json.Marshal(update)
		if err != nil {
			slog.Error("Failed to marshal update", "object", update.Object, "error", err)
			dropped++
			continue
		}

		recipients, routable := h.recipients(update)
		if !routable {
			slog.Warn("Dropping update with unknown object kind", "object", update.Object)
			dropped++
			continue
		}

		for _, client := range recipients {
			if _, bad := failed[client.id]; bad {
				continue
			}
			if err := client.enqueue(data); err != nil {
				slog.Warn("Failed to deliver update", "clientID", client.id, "error", err)
				failed[client.id] = struct{}{}
				continue
			}
			delivered++
		}
	}

	for id := range failed {
		h.Close(id)
	}

	h.Metrics.RecordFlush(len(batch), dropped, delivered, len(failed), time.Since(startTime))

	if len(batch) > 0 {
		slog.Debug("Flushed updates", "updates", len(batch), "delivered", delivered, "failed", len(failed))
	}
}

// recipients resolves the live clients an update is routed to
func (h *Hub) recipients(update *Update) ([]*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ids map[string]struct{}
	switch {
	case update.Object.IsProjectScoped():
		ids = h.projectClients[update.Project]
	case update.Object.IsUserScoped():
		ids = h.userClients[update.User]
	default:
		return nil, false
	}

	clients := make([]*Client, 0, len(ids))
	for id := range ids {
		// Indexed but unregistered should not happen; skip rather than fault
		if client, ok := h.clients[id]; ok {
			clients = append(clients, client)
		}
	}
	return clients, true
}

// Pending returns the number of queued updates
func (h *Hub) Pending() int {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	return len(h.queue)
}

// =============================================================================
// Introspection
// =============================================================================

// HubStats summarizes the current index sizes
type HubStats struct {
	Connections   int `json:"connections"`
	Users         int `json:"users"`
	Projects      int `json:"projects"`
	Subscriptions int `json:"subscriptions"`
	Pending       int `json:"pending"`
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	stats := HubStats{
		Connections: len(h.clients),
		Users:       len(h.userClients),
		Projects:    len(h.projectClients),
	}
	for _, set := range h.projectClients {
		stats.Subscriptions += len(set)
	}
	h.mu.RUnlock()

	stats.Pending = h.Pending()
	return stats
}

// ProjectSubscribers returns the connection ids subscribed to projectID
func (h *Hub) ProjectSubscribers(projectID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedKeys(h.projectClients[projectID])
}

// SubscribedProjects returns the projects connection id is subscribed to
func (h *Hub) SubscribedProjects(id string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedKeys(h.clientProjects[id])
}

// UserConnections returns the connection ids authenticated as userID
func (h *Hub) UserConnections(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedKeys(h.userClients[userID])
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
