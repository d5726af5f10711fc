// Package realtime pushes server events to connected users over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// EventNewNotification is emitted when a notification is persisted for a user.
const EventNewNotification = "new_notification"

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Event is the envelope written to clients.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub tracks live connections per user and connection ID.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[string]Conn)}
}

// Register adds a connection for a user. A connection already registered
// under the same ID is closed and replaced.
func (h *Hub) Register(userID, connID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[userID]; !exists {
		h.active[userID] = make(map[string]Conn)
	}
	if existing, exists := h.active[userID][connID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.active[userID][connID] = conn
	slog.Info("Realtime connection registered", "user_id", userID, "conn_id", connID)
}

// Unregister removes a connection if it is still the registered one. It
// reports whether the user has no connections left.
func (h *Hub) Unregister(userID, connID string, conn Conn) (last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[userID]
	if !ok {
		return true
	}
	if current, exists := conns[connID]; exists && current == conn {
		delete(conns, connID)
		slog.Info("Realtime connection unregistered", "user_id", userID, "conn_id", connID)
	}
	if len(conns) == 0 {
		delete(h.active, userID)
		return true
	}
	return false
}

// Connected reports whether a user holds at least one connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID]) > 0
}

// Connections returns the number of live connections for a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}

// Emit writes event to every connection of userID and returns how many
// writes succeeded. Offline users are not an error.
func (h *Hub) Emit(ctx context.Context, userID, event string, data interface{}) (int, error) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return 0, fmt.Errorf("marshal %s event: %w", event, err)
	}

	h.mu.RLock()
	conns := make([]Conn, 0, len(h.active[userID]))
	for _, c := range h.active[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	delivered := 0
	var errs []error
	for _, c := range conns {
		if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if len(errs) > 0 {
		return delivered, fmt.Errorf("emit %s to %s: %w", event, userID, errors.Join(errs...))
	}
	return delivered, nil
}

// Close terminates every connection with a going-away status.
// http.Server.Shutdown does not track hijacked websocket connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := 0
	for userID, conns := range h.active {
		for _, conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			closed++
		}
		delete(h.active, userID)
	}
	slog.Info("Realtime connections closed", "count", closed)
}
