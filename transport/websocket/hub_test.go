package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels are not initialized")
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.unregisterClient(client1)
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}

	hub.unregisterClient(client2)
	if _, exists := hub.sessions[sessionID]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, sessionID: "broadcast-test", send: make(chan []byte, 256)}
	other := &Client{hub: hub, sessionID: "someone-else", send: make(chan []byte, 256)}
	hub.registerClient(client)
	hub.registerClient(other)

	state := engine.NewState()
	state.Phase = protocol.PlayingCards
	state.Players = []protocol.Player{{Name: "A", HandCount: 3}}
	hub.broadcastMessage(&Message{SessionID: "broadcast-test", State: &state, Event: EventStateUpdate})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != EventStateUpdate {
			t.Errorf("Expected event %s, got %s", EventStateUpdate, message.Event)
		}
		if message.State == nil || message.State.Phase != protocol.PlayingCards || message.State.Players[0].Name != "A" {
			t.Errorf("State not correctly transmitted: %+v", message.State)
		}
	default:
		t.Error("No message queued for the session's client")
	}

	if len(other.send) != 0 {
		t.Error("Clients of other sessions should not receive the update")
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(nil)

	// Nothing drains the hub, so the buffer fills and later updates drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.BroadcastState("s", engine.NewState())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastState blocked on a saturated hub")
	}
}

func TestWebSocketViewer(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	initial := engine.NewState()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"), &initial)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=view-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return message
	}

	first := read()
	if first.State == nil || first.State.Phase != protocol.WaitingForPlayers {
		t.Errorf("Expected initial state first, got %+v", first)
	}

	if n := hub.ClientCount("view-test"); n != 1 {
		t.Errorf("Expected 1 viewer, got %d", n)
	}

	hub.BroadcastEvent("view-test", EventSessionClosed, "bye")
	if msg := read(); msg.Event != EventSessionClosed || msg.Data != "bye" {
		t.Errorf("Expected session_closed event, got %+v", msg)
	}

	conn.Close()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount("view-test") != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.ClientCount("view-test"); n != 0 {
		t.Errorf("Expected viewer to be unregistered, got %d", n)
	}
}
