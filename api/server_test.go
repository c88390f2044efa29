package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/service"
	"github.com/wricardo/mcp-training/daifugo/game/session"
	"github.com/wricardo/mcp-training/daifugo/transport/rooms"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	ListRoomsFunc      func(ctx context.Context) ([]string, error)
	CreateRoomFunc     func(ctx context.Context, room string) error
	ConnectFunc        func(ctx context.Context, room, player string) (*service.SessionInfo, error)
	GetSessionFunc     func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc   func(ctx context.Context) ([]*service.SessionInfo, error)
	LeaveFunc          func(ctx context.Context, sessionID string) error
	ActionFunc         func(ctx context.Context, sessionID, intent string) (*service.ActionResult, error)
	ToggleCardFunc     func(ctx context.Context, sessionID string, c card.Card) (*service.SelectionResult, error)
	ClearSelectionFunc func(ctx context.Context, sessionID string) (*service.SelectionResult, error)
	GetStateFunc       func(ctx context.Context, sessionID string) (*engine.State, error)
	GetTranscriptFunc  func(ctx context.Context, sessionID string) ([]session.Entry, error)
}

func (m *MockGameService) ListRooms(ctx context.Context) ([]string, error) {
	if m.ListRoomsFunc != nil {
		return m.ListRoomsFunc(ctx)
	}
	return []string{}, nil
}

func (m *MockGameService) CreateRoom(ctx context.Context, room string) error {
	if m.CreateRoomFunc != nil {
		return m.CreateRoomFunc(ctx, room)
	}
	return nil
}

func (m *MockGameService) Connect(ctx context.Context, room, player string) (*service.SessionInfo, error) {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx, room, player)
	}
	state := engine.NewState()
	return &service.SessionInfo{ID: "test-session", Room: room, Player: player, CreatedAt: time.Now(), State: &state}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, Room: "lobby", Player: "alice", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) Leave(ctx context.Context, sessionID string) error {
	if m.LeaveFunc != nil {
		return m.LeaveFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) action(ctx context.Context, sessionID, intent string) (*service.ActionResult, error) {
	if m.ActionFunc != nil {
		return m.ActionFunc(ctx, sessionID, intent)
	}
	state := engine.NewState()
	return &service.ActionResult{Sent: intent, State: &state}, nil
}

func (m *MockGameService) Join(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	return m.action(ctx, sessionID, protocol.TypeAddPlayer)
}

func (m *MockGameService) StartGame(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	return m.action(ctx, sessionID, protocol.TypeGameStart)
}

func (m *MockGameService) SubmitCards(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	return m.action(ctx, sessionID, protocol.TypeSubmitCards)
}

func (m *MockGameService) Pass(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	return m.action(ctx, sessionID, protocol.TypePass)
}

func (m *MockGameService) ToggleCard(ctx context.Context, sessionID string, c card.Card) (*service.SelectionResult, error) {
	if m.ToggleCardFunc != nil {
		return m.ToggleCardFunc(ctx, sessionID, c)
	}
	return &service.SelectionResult{Changed: true, Selected: []card.Card{c}}, nil
}

func (m *MockGameService) ClearSelection(ctx context.Context, sessionID string) (*service.SelectionResult, error) {
	if m.ClearSelectionFunc != nil {
		return m.ClearSelectionFunc(ctx, sessionID)
	}
	return &service.SelectionResult{Selected: []card.Card{}}, nil
}

func (m *MockGameService) GetState(ctx context.Context, sessionID string) (*engine.State, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, sessionID)
	}
	state := engine.NewState()
	return &state, nil
}

func (m *MockGameService) GetTranscript(ctx context.Context, sessionID string) ([]session.Entry, error) {
	if m.GetTranscriptFunc != nil {
		return m.GetTranscriptFunc(ctx, sessionID)
	}
	return []session.Entry{}, nil
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestServer_ListRooms(t *testing.T) {
	mock := &MockGameService{
		ListRoomsFunc: func(ctx context.Context) ([]string, error) {
			return []string{"a", "b"}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	rec := doRequest(t, server, "GET", "/api/rooms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Count int      `json:"count"`
		Rooms []string `json:"rooms"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Count != 2 || resp.Rooms[1] != "b" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestServer_CreateRoom(t *testing.T) {
	var created string
	mock := &MockGameService{
		CreateRoomFunc: func(ctx context.Context, room string) error {
			created = room
			return nil
		},
	}
	server := NewServer(mock, nil, nil)

	rec := doRequest(t, server, "POST", "/api/rooms/lobby", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if created != "lobby" {
		t.Errorf("Expected room lobby, got %q", created)
	}
}

func TestServer_RoomServerFailure(t *testing.T) {
	mock := &MockGameService{
		ListRoomsFunc: func(ctx context.Context) ([]string, error) {
			return nil, fmt.Errorf("%w: status 500", rooms.ErrRoomRequest)
		},
	}
	server := NewServer(mock, nil, nil)

	rec := doRequest(t, server, "GET", "/api/rooms", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rec.Code)
	}
}

func TestServer_Connect(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, nil)

	rec := doRequest(t, server, "POST", "/api/sessions", map[string]string{"room": "lobby", "player": "alice"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var info service.SessionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info.Room != "lobby" || info.Player != "alice" {
		t.Errorf("Unexpected session info %+v", info)
	}
}

func TestServer_ConnectErrors(t *testing.T) {
	mock := &MockGameService{
		ConnectFunc: func(ctx context.Context, room, player string) (*service.SessionInfo, error) {
			return nil, service.ErrMissingPlayer
		},
	}
	server := NewServer(mock, nil, nil)

	rec := doRequest(t, server, "POST", "/api/sessions", map[string]string{"room": "lobby"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}

	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewBufferString("{not json"))
	bad := httptest.NewRecorder()
	server.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", bad.Code)
	}
}

func TestServer_ListSessions(t *testing.T) {
	now := time.Now()
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", Room: "lobby", CreatedAt: now.Add(-time.Hour)},
				{ID: "new", Room: "lobby", CreatedAt: now},
				{ID: "other", Room: "side", CreatedAt: now.Add(-time.Minute)},
			}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"new", "other", "old"}},
		{"?order=asc", []string{"old", "other", "new"}},
		{"?room=lobby", []string{"new", "old"}},
		{"?limit=1", []string{"new"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := doRequest(t, server, "GET", "/api/sessions"+tt.query, nil)
			var resp struct {
				Sessions []service.SessionInfo `json:"sessions"`
			}
			json.NewDecoder(rec.Body).Decode(&resp)

			if len(resp.Sessions) != len(tt.want) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.want), len(resp.Sessions))
			}
			for i, id := range tt.want {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestServer_SessionNotFound(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, session.ErrSessionNotFound
		},
		GetStateFunc: func(ctx context.Context, sessionID string) (*engine.State, error) {
			return nil, session.ErrSessionNotFound
		},
		LeaveFunc: func(ctx context.Context, sessionID string) error {
			return session.ErrSessionNotFound
		},
	}
	server := NewServer(mock, nil, nil)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/sessions/missing"},
		{"GET", "/api/sessions/missing/state"},
		{"DELETE", "/api/sessions/missing"},
	} {
		rec := doRequest(t, server, tc.method, tc.path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestServer_Intents(t *testing.T) {
	var got []string
	mock := &MockGameService{
		ActionFunc: func(ctx context.Context, sessionID, intent string) (*service.ActionResult, error) {
			if sessionID != "s1" {
				t.Errorf("Expected session s1, got %s", sessionID)
			}
			got = append(got, intent)
			return &service.ActionResult{Sent: intent}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	for _, path := range []string{"join", "start", "submit", "pass"} {
		rec := doRequest(t, server, "POST", "/api/sessions/s1/"+path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	want := []string{protocol.TypeAddPlayer, protocol.TypeGameStart, protocol.TypeSubmitCards, protocol.TypePass}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Intent %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestServer_IntentErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNothingSelected, http.StatusBadRequest},
		{session.ErrSessionClosed, http.StatusConflict},
		{fmt.Errorf("write failed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		mock := &MockGameService{
			ActionFunc: func(ctx context.Context, sessionID, intent string) (*service.ActionResult, error) {
				return nil, tt.err
			},
		}
		server := NewServer(mock, nil, nil)

		rec := doRequest(t, server, "POST", "/api/sessions/s1/submit", nil)
		if rec.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}

func TestServer_Select(t *testing.T) {
	var toggled []card.Card
	mock := &MockGameService{
		ToggleCardFunc: func(ctx context.Context, sessionID string, c card.Card) (*service.SelectionResult, error) {
			toggled = append(toggled, c)
			return &service.SelectionResult{Changed: true, Selected: []card.Card{c}}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	rec := doRequest(t, server, "POST", "/api/sessions/s1/select", map[string]string{"card": "10H"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, server, "POST", "/api/sessions/s1/select", map[string]interface{}{"number": 1, "cardType": "Spade"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(toggled) != 2 || !toggled[0].Equal(card.New(10, card.Heart)) || !toggled[1].Equal(card.New(1, card.Spade)) {
		t.Errorf("Unexpected toggled cards %v", toggled)
	}

	rec = doRequest(t, server, "POST", "/api/sessions/s1/select", map[string]string{"card": "99X"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad card, got %d", rec.Code)
	}

	rec = doRequest(t, server, "POST", "/api/sessions/s1/select", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a missing card, got %d", rec.Code)
	}

	rec = doRequest(t, server, "DELETE", "/api/sessions/s1/select", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for clear, got %d", rec.Code)
	}
}

func TestServer_Transcript(t *testing.T) {
	mock := &MockGameService{
		GetTranscriptFunc: func(ctx context.Context, sessionID string) ([]session.Entry, error) {
			return []session.Entry{{Direction: session.Inbound, Raw: `{"type":"MESSAGE","data":{"message":"hi"}}`}}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	rec := doRequest(t, server, "GET", "/api/sessions/s1/transcript", nil)
	var resp struct {
		Count   int             `json:"count"`
		Entries []session.Entry `json:"entries"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Count != 1 || resp.Entries[0].Direction != session.Inbound {
		t.Errorf("Unexpected transcript response %+v", resp)
	}
}

func TestServer_Health(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, nil)

	rec := doRequest(t, server, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestServer_WebSocketRequiresSession(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, nil)

	rec := doRequest(t, server, "GET", "/ws", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected /ws to be unrouted without a hub, got %d", rec.Code)
	}
}
