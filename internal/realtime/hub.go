// Package realtime delivers task and notification events to connected
// websocket clients. Delivery is best-effort and at-most-once: there is no
// queuing or retry for offline recipients, who instead catch up through the
// persisted notification list.
package realtime

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/service/auth"
	"github.com/kwren/taskhive-api/internal/store"
)

// Server→client event names.
const (
	EventConnected    = "connected"
	EventNotification = "notification"
	EventTaskCreated  = "task_created"
	EventTaskUpdated  = "task_updated"
	EventTaskDeleted  = "task_deleted"
	EventPong         = "pong"
)

// Frame is the JSON envelope for every server→client message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub tracks the active websocket connections for this process. One
// connection per user: a newer connection for the same user replaces the
// older one. Admin connections are additionally addressable as a group.
//
// The Hub is created at server start and closed at shutdown; it is passed by
// reference to whoever needs to push, never held as a package singleton. A
// nil *Hub is valid and silently drops every push, so callers need no
// initialization checks.
type Hub struct {
	jwtService auth.JWTService
	userStore  store.UserStore
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	closed  bool
}

// NewHub creates a Hub that authenticates handshakes with jwtService and
// resolves users through userStore.
func NewHub(jwtService auth.JWTService, userStore store.UserStore, logger *slog.Logger) *Hub {
	return &Hub{
		jwtService: jwtService,
		userStore:  userStore,
		logger:     logger.With(slog.String("component", "realtime_hub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API authenticates by bearer token, not cookies, so
			// cross-origin upgrades carry no ambient credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*client),
	}
}

// handshakeToken pulls the credential from the ?token query parameter or the
// Authorization header, mirroring the HTTP middleware's token sources.
func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// HandleConnection authenticates and registers a websocket connection.
// The token is verified with the same function as the HTTP path, and the
// user must still exist; otherwise the connection is rejected before the
// upgrade and never reaches the registry.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := handshakeToken(r)
	if token == "" {
		h.logger.Warn("websocket connection attempt without token")
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateToken(r.Context(), token)
	if err != nil {
		h.logger.Warn("websocket auth failed", "error", err)
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Warn("websocket auth failed: user not found", "user_id", claims.UserID)
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan Frame, sendBufferSize),
		userID: user.ID,
		role:   user.Role,
		name:   user.Name,
		logger: h.logger,
	}

	if !h.register(c) {
		// Hub already shut down.
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()

	c.enqueue(Frame{Event: EventConnected, Data: map[string]any{
		"userId":    user.ID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}})
}

// register adds the client to the registry, displacing any previous
// connection for the same user. Reports false if the hub is closed.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	if prev, ok := h.clients[c.userID]; ok {
		prev.closeSend()
		delete(h.clients, c.userID)
	}
	h.clients[c.userID] = c

	h.logger.Info("websocket connected",
		"user_id", c.userID,
		"name", c.name,
		"admin", c.role == domain.RoleAdmin,
		"connections", len(h.clients))
	return true
}

// unregister removes the client, if it is still the registered connection
// for its user. Safe to call multiple times and after Close.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[c.userID]; ok && current == c {
		c.closeSend()
		delete(h.clients, c.userID)
		h.logger.Info("websocket disconnected",
			"user_id", c.userID,
			"connections", len(h.clients))
	}
}

// PushToUser sends an event to the user's connection, if any. Best-effort:
// offline users and full buffers lose the frame silently.
func (h *Hub) PushToUser(userID uuid.UUID, event string, payload any) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	if c, ok := h.clients[userID]; ok {
		c.enqueue(Frame{Event: event, Data: payload})
	}
}

// PushToAdmins sends an event to every connected admin.
func (h *Hub) PushToAdmins(event string, payload any) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, c := range h.clients {
		if c.role == domain.RoleAdmin {
			c.enqueue(Frame{Event: event, Data: payload})
		}
	}
}

// BroadcastAll sends an event to every connected client.
func (h *Hub) BroadcastAll(event string, payload any) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, c := range h.clients {
		c.enqueue(Frame{Event: event, Data: payload})
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsConnected reports whether the user currently has an active connection.
func (h *Hub) IsConnected(userID uuid.UUID) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Close drops every connection and marks the hub unusable. Called once at
// server shutdown.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for userID, c := range h.clients {
		c.closeSend()
		delete(h.clients, userID)
	}
}
