package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/identity"
	"github.com/mindoraRwanda/mindorabeta/internal/presence"
)

func newTestServer(t *testing.T, hub *Hub, store presence.Store, userID string) *httptest.Server {
	t.Helper()
	h := NewHandler(hub, store, "*", true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != "" {
			r = r.WithContext(identity.WithIdentity(r.Context(), userID, domain.RolePatient))
		}
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHandler_PingPongAndEvents(t *testing.T) {
	hub := NewHub()
	store := presence.NewMemoryStore()
	srv := newTestServer(t, hub, store, "patient-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))

	assert.True(t, hub.Connected("patient-1"))
	_, online, err := store.LastSeen(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, online)

	n, err := hub.Emit(ctx, "patient-1", EventNewNotification, map[string]string{"title": "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, EventNewNotification, ev.Event)
}

func TestHandler_DisconnectClearsPresence(t *testing.T) {
	hub := NewHub()
	store := presence.NewMemoryStore()
	srv := newTestServer(t, hub, store, "patient-2")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	_, _, err = conn.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	assert.Eventually(t, func() bool {
		_, online, _ := store.LastSeen(context.Background(), "patient-2")
		return !online && !hub.Connected("patient-2")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_StaysOnlineWhileAnotherConnectionIsOpen(t *testing.T) {
	hub := NewHub()
	store := presence.NewMemoryStore()
	srv := newTestServer(t, hub, store, "patient-3")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	second, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer second.Close(websocket.StatusNormalClosure, "")

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
		_, _, err := conn.Read(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 2, hub.Connections("patient-3"))

	require.NoError(t, first.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return hub.Connections("patient-3") == 1 }, 2*time.Second, 10*time.Millisecond)

	_, online, err := store.LastSeen(ctx, "patient-3")
	require.NoError(t, err)
	assert.True(t, online)
}

func TestHandler_RequiresIdentity(t *testing.T) {
	srv := newTestServer(t, NewHub(), nil, "")

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_CheckOrigin(t *testing.T) {
	h := NewHandler(NewHub(), nil, "https://app.mindora.rw", false)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://app.mindora.rw")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, h.checkOrigin(req))
}
