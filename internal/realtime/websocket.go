package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mindoraRwanda/mindorabeta/internal/identity"
	"github.com/mindoraRwanda/mindorabeta/internal/presence"
)

const presenceTimeout = 5 * time.Second

// Handler upgrades authenticated requests to websocket connections and keeps
// them registered on the hub until the client leaves.
type Handler struct {
	hub           *Hub
	presence      presence.Store
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a websocket handler. It must run behind identity.Middleware.
func NewHandler(hub *Hub, store presence.Store, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		hub:           hub,
		presence:      store,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "connection ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	connID := uuid.NewString()
	h.hub.Register(userID, connID, ws)
	h.connect(userID)
	defer func() {
		h.hub.Unregister(userID, connID, ws)
		h.disconnect(userID)
	}()

	h.readLoop(r.Context(), ws, userID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if err := writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		}
		h.touch(userID)
	}
}

func (h *Handler) connect(userID string) {
	h.updatePresence(userID, "connect", func(ctx context.Context) error {
		return h.presence.Connect(ctx, userID, time.Now())
	})
}

func (h *Handler) touch(userID string) {
	h.updatePresence(userID, "touch", func(ctx context.Context) error {
		return h.presence.Touch(ctx, userID, time.Now())
	})
}

func (h *Handler) disconnect(userID string) {
	h.updatePresence(userID, "disconnect", func(ctx context.Context) error {
		return h.presence.Disconnect(ctx, userID)
	})
}

func (h *Handler) updatePresence(userID, op string, fn func(ctx context.Context) error) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Warn("Failed to update presence", "op", op, "error", err, "user_id", userID)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
