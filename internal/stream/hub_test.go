package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("client count never reached %d (at %d)", want, hub.ClientCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn := dialHub(t, srv)
	waitForClients(t, hub, 1)

	hub.Broadcast("prices_updated", map[string]int{"closes": 365})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != "prices_updated" {
		t.Fatalf("expected prices_updated, got %q", ev.Type)
	}
	if ev.Timestamp == "" {
		t.Fatal("expected a timestamp")
	}
}

func TestHub_MultipleClients(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	a := dialHub(t, srv)
	b := dialHub(t, srv)
	waitForClients(t, hub, 2)

	hub.Broadcast("prices_updated", nil)

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("client did not receive broadcast: %v", err)
		}
	}
}

func TestHub_DropsDisconnectedClient(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn := dialHub(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_CloseRefusesNewClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		// Upgrade may already fail; either way no client is registered.
		return
	}
	defer conn.Close()

	if hub.ClientCount() != 0 {
		t.Fatalf("closed hub registered a client (%d)", hub.ClientCount())
	}
}

func httpHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(hub.HandleWS)
}
