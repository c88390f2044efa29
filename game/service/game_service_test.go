package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
	"github.com/wricardo/mcp-training/daifugo/game/service"
	"github.com/wricardo/mcp-training/daifugo/game/session"
)

// fakeConn is a game connection driven by the test
type fakeConn struct {
	mu       sync.Mutex
	sent     []string
	farewell []byte
	inbox    chan []byte
	done     chan struct{}
	once     sync.Once
	runErr   error
}

func newFakeConn(farewell []byte) *fakeConn {
	return &fakeConn{farewell: farewell, inbox: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.Send(c.farewell)
		close(c.done)
	})
	return nil
}

func (c *fakeConn) Run(ctx context.Context, handler func([]byte)) error {
	for {
		select {
		case msg, ok := <-c.inbox:
			if !ok {
				return c.runErr
			}
			handler(msg)
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// recordingListener collects hub notifications
type recordingListener struct {
	mu     sync.Mutex
	states int
	events []string
}

func (l *recordingListener) BroadcastState(string, engine.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states++
}

func (l *recordingListener) BroadcastEvent(_ string, event string, _ any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingListener) snapshot() (int, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states, append([]string(nil), l.events...)
}

type fakeRooms struct {
	rooms []string
}

func (f *fakeRooms) ListRooms(context.Context) ([]string, error) {
	return f.rooms, nil
}

func (f *fakeRooms) CreateRoom(_ context.Context, room string) error {
	f.rooms = append(f.rooms, room)
	return nil
}

type fixture struct {
	svc       service.GameService
	manager   *session.Manager
	listener  *recordingListener
	rooms     *fakeRooms
	conns     []*fakeConn
	endpoints []string
	mu        sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		manager:  session.NewManager(),
		listener: &recordingListener{},
		rooms:    &fakeRooms{},
	}
	f.svc = service.NewGameService(service.Options{
		Sessions: f.manager,
		Rooms:    f.rooms,
		Dial: func(_ context.Context, endpoint string, farewell []byte) (service.Connection, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			conn := newFakeConn(farewell)
			f.conns = append(f.conns, conn)
			f.endpoints = append(f.endpoints, endpoint)
			return conn, nil
		},
		Endpoint: func(room, player string) (string, error) {
			return "ws://test/daifugo/" + room + "/" + player, nil
		},
		Policy:   selection.PolicyClear,
		Listener: f.listener,
	})
	t.Cleanup(func() { f.manager.CloseAll() })
	return f
}

func (f *fixture) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

const gameStart = `{"type":"GAME_START","data":{"handCards":[{"number":3,"value":3,"cardType":"Spade"},{"number":5,"value":5,"cardType":"Heart"}],"players":[{"name":"alice","numHandCards":2},{"name":"bob","numHandCards":2}]}}`

// waitFor polls until cond holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestGameService_Connect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.svc.Connect(ctx, "lobby", "alice")
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	if info.ID == "" || info.Room != "lobby" || info.Player != "alice" {
		t.Errorf("Unexpected session info: %+v", info)
	}
	if info.State == nil || info.State.Phase != protocol.WaitingForPlayers {
		t.Errorf("Expected initial WaitingForPlayers state, got %+v", info.State)
	}
	if f.endpoints[0] != "ws://test/daifugo/lobby/alice" {
		t.Errorf("Unexpected endpoint %s", f.endpoints[0])
	}

	sessions, err := f.svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].State != nil {
		t.Errorf("Expected one session without state, got %+v", sessions)
	}
}

func TestGameService_ConnectValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Connect(ctx, "", "alice"); !errors.Is(err, service.ErrMissingRoom) {
		t.Errorf("Expected ErrMissingRoom, got %v", err)
	}
	if _, err := f.svc.Connect(ctx, "lobby", ""); !errors.Is(err, service.ErrMissingPlayer) {
		t.Errorf("Expected ErrMissingPlayer, got %v", err)
	}
	if len(f.conns) != 0 {
		t.Error("Expected no connection to be dialed")
	}
}

func TestGameService_InboundUpdatesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, _ := f.svc.Connect(ctx, "lobby", "alice")
	f.conn(0).inbox <- []byte(gameStart)

	waitFor(t, func() bool {
		state, err := f.svc.GetState(ctx, info.ID)
		return err == nil && state.Phase == protocol.PlayingCards
	})

	got, _ := f.svc.GetSession(ctx, info.ID)
	if !got.MyTurn || got.CurrentPlayer != "alice" {
		t.Errorf("Expected alice to hold the turn, got %+v", got)
	}

	states, _ := f.listener.snapshot()
	if states == 0 {
		t.Error("Expected listener to receive state updates")
	}
}

func TestGameService_Intents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	info, _ := f.svc.Connect(ctx, "lobby", "alice")

	if _, err := f.svc.Join(ctx, info.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := f.svc.StartGame(ctx, info.ID); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	result, err := f.svc.Pass(ctx, info.ID)
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if result.Sent != protocol.TypePass {
		t.Errorf("Expected PASS, got %s", result.Sent)
	}

	want := []string{
		`{"type":"ADD_PLAYER","data":{"playerName":"alice"}}`,
		`{"type":"GAME_START"}`,
		`{"type":"PASS","data":{"playerName":"alice"}}`,
	}
	sent := f.conn(0).messages()
	if len(sent) != len(want) {
		t.Fatalf("Expected %d messages, got %v", len(want), sent)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("Message %d: expected %s, got %s", i, want[i], sent[i])
		}
	}

	transcript, err := f.svc.GetTranscript(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if len(transcript) != 3 || transcript[0].Direction != session.Outbound {
		t.Errorf("Unexpected transcript %+v", transcript)
	}
}

func TestGameService_SelectAndSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	info, _ := f.svc.Connect(ctx, "lobby", "alice")

	if _, err := f.svc.SubmitCards(ctx, info.ID); !errors.Is(err, service.ErrNothingSelected) {
		t.Errorf("Expected ErrNothingSelected, got %v", err)
	}

	f.conn(0).inbox <- []byte(gameStart)
	waitFor(t, func() bool {
		state, _ := f.svc.GetState(ctx, info.ID)
		return state != nil && len(state.Hand) == 2
	})

	if _, err := f.svc.ToggleCard(ctx, info.ID, card.New(9, card.Club)); !errors.Is(err, service.ErrCardNotInHand) {
		t.Errorf("Expected ErrCardNotInHand, got %v", err)
	}

	sel, err := f.svc.ToggleCard(ctx, info.ID, card.New(5, card.Heart))
	if err != nil {
		t.Fatalf("ToggleCard failed: %v", err)
	}
	if len(sel.Selected) != 1 {
		t.Fatalf("Expected one selected card, got %v", sel.Selected)
	}
	f.svc.ToggleCard(ctx, info.ID, card.New(3, card.Spade))

	result, err := f.svc.SubmitCards(ctx, info.ID)
	if err != nil {
		t.Fatalf("SubmitCards failed: %v", err)
	}
	if len(result.Cards) != 2 || !result.Cards[0].Equal(card.New(3, card.Spade)) {
		t.Errorf("Expected sorted submission, got %v", result.Cards)
	}

	sent := f.conn(0).messages()
	last := sent[len(sent)-1]
	if !strings.HasPrefix(last, `{"type":"SUBMIT_CARDS"`) {
		t.Errorf("Expected SUBMIT_CARDS, got %s", last)
	}

	// The selection survives until the server replaces the hand.
	state, _ := f.svc.GetState(ctx, info.ID)
	if state.Selected.Len() != 2 {
		t.Errorf("Expected selection to stay after submit, got %d", state.Selected.Len())
	}

	cleared, err := f.svc.ClearSelection(ctx, info.ID)
	if err != nil {
		t.Fatalf("ClearSelection failed: %v", err)
	}
	if !cleared.Changed || len(cleared.Selected) != 0 {
		t.Errorf("Expected selection to be cleared, got %+v", cleared)
	}
}

func TestGameService_Leave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	info, _ := f.svc.Connect(ctx, "lobby", "alice")

	if err := f.svc.Leave(ctx, info.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	sent := f.conn(0).messages()
	if len(sent) != 1 || sent[0] != `{"type":"REMOVE_PLAYER","data":{"playerName":"alice"}}` {
		t.Errorf("Expected a single farewell, got %v", sent)
	}

	if _, err := f.svc.Join(ctx, info.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after leave, got %v", err)
	}

	waitFor(t, func() bool {
		_, events := f.listener.snapshot()
		return len(events) == 1 && events[0] == "session_closed"
	})
}

func TestGameService_ConnectionDropArchivesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	info, _ := f.svc.Connect(ctx, "lobby", "alice")

	conn := f.conn(0)
	conn.runErr = errors.New("connection reset")
	close(conn.inbox)

	waitFor(t, func() bool {
		_, err := f.svc.GetSession(ctx, info.ID)
		return errors.Is(err, session.ErrSessionNotFound)
	})

	if _, err := f.svc.Pass(ctx, info.ID); err == nil {
		t.Error("Expected actions on a dropped session to fail")
	}
}

func TestGameService_Rooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.CreateRoom(ctx, ""); !errors.Is(err, service.ErrMissingRoom) {
		t.Errorf("Expected ErrMissingRoom, got %v", err)
	}
	if err := f.svc.CreateRoom(ctx, "lobby"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	rooms, err := f.svc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0] != "lobby" {
		t.Errorf("Unexpected rooms %v", rooms)
	}

	bare := service.NewGameService(service.Options{Sessions: session.NewManager()})
	if _, err := bare.ListRooms(ctx); !errors.Is(err, service.ErrRoomsUnavailable) {
		t.Errorf("Expected ErrRoomsUnavailable, got %v", err)
	}
}
