package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/coder/websocket"
)

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	writeErr error
}

func (c *fakeConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, p)
	return nil
}

func (c *fakeConn) Close(websocket.StatusCode, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHub_Register(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}

	h.Register("user123", "conn-1", conn)

	if !h.Connected("user123") {
		t.Fatal("expected user to be connected")
	}
	if got := h.Connections("user123"); got != 1 {
		t.Errorf("expected 1 connection, got %d", got)
	}
}

func TestHub_RegisterReplacesSameID(t *testing.T) {
	h := NewHub()
	first := &fakeConn{}
	second := &fakeConn{}

	h.Register("user123", "conn-1", first)
	h.Register("user123", "conn-1", second)

	if !first.closed {
		t.Error("expected replaced connection to be closed")
	}
	if got := h.Connections("user123"); got != 1 {
		t.Errorf("expected 1 connection, got %d", got)
	}
}

func TestHub_Unregister(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}

	h.Register("user123", "conn-1", conn)
	if last := h.Unregister("user123", "conn-1", conn); !last {
		t.Error("expected last connection to be reported")
	}
	if h.Connected("user123") {
		t.Error("expected user to be disconnected")
	}
}

func TestHub_UnregisterStale(t *testing.T) {
	h := NewHub()
	conn1 := &fakeConn{}
	conn2 := &fakeConn{}

	h.Register("user123", "conn-1", conn1)
	h.Register("user123", "conn-2", conn2)

	if last := h.Unregister("user123", "conn-1", conn1); last {
		t.Error("another tab is still open")
	}
	// Stale unregister for a replaced connection must not remove the new one.
	h.Register("user123", "conn-2", &fakeConn{})
	h.Unregister("user123", "conn-2", conn2)
	if got := h.Connections("user123"); got != 1 {
		t.Errorf("expected 1 connection, got %d", got)
	}
}

func TestHub_Emit(t *testing.T) {
	h := NewHub()
	tab1 := &fakeConn{}
	tab2 := &fakeConn{}
	h.Register("user123", "conn-1", tab1)
	h.Register("user123", "conn-2", tab2)

	n, err := h.Emit(context.Background(), "user123", EventNewNotification, map[string]string{"id": "n-1"})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}

	var ev struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	if err := json.Unmarshal(tab1.written[0], &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != EventNewNotification || ev.Data["id"] != "n-1" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestHub_EmitOffline(t *testing.T) {
	n, err := NewHub().Emit(context.Background(), "nobody", EventNewNotification, nil)
	if err != nil || n != 0 {
		t.Errorf("Emit() = %d, %v; want 0, nil", n, err)
	}
}

func TestHub_EmitPartialFailure(t *testing.T) {
	h := NewHub()
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	h.Register("user123", "conn-1", broken)
	h.Register("user123", "conn-2", &fakeConn{})

	n, err := h.Emit(context.Background(), "user123", EventNewNotification, nil)
	if err == nil {
		t.Fatal("expected error from broken connection")
	}
	if n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	first := &fakeConn{}
	second := &fakeConn{}
	h.Register("user123", "conn-1", first)
	h.Register("user456", "conn-2", second)

	h.Close()

	if !first.closed || !second.closed {
		t.Error("expected every connection closed")
	}
	if h.Connected("user123") || h.Connected("user456") {
		t.Error("expected hub to be empty after Close")
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			h.Register("concurrentUser", "conn-"+strconv.Itoa(i), &fakeConn{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_, _ = h.Emit(context.Background(), "concurrentUser", "tick", i)
		}
	}()

	wg.Wait()
	if got := h.Connections("concurrentUser"); got != 1000 {
		t.Errorf("expected 1000 connections, got %d", got)
	}
}
