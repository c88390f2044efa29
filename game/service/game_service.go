package service

import (
	"context"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/session"
)

// GameService defines every operation the presentation layers need
type GameService interface {
	// Rooms
	ListRooms(ctx context.Context) ([]string, error)
	CreateRoom(ctx context.Context, room string) error

	// Session Management
	Connect(ctx context.Context, room, player string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	Leave(ctx context.Context, sessionID string) error

	// Intents sent to the room server
	Join(ctx context.Context, sessionID string) (*ActionResult, error)
	StartGame(ctx context.Context, sessionID string) (*ActionResult, error)
	SubmitCards(ctx context.Context, sessionID string) (*ActionResult, error)
	Pass(ctx context.Context, sessionID string) (*ActionResult, error)

	// Local selection
	ToggleCard(ctx context.Context, sessionID string, c card.Card) (*SelectionResult, error)
	ClearSelection(ctx context.Context, sessionID string) (*SelectionResult, error)

	// Game State
	GetState(ctx context.Context, sessionID string) (*engine.State, error)
	GetTranscript(ctx context.Context, sessionID string) ([]session.Entry, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(room, player string, t session.Transport, opts ...session.Option) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []*session.Session
	Archive(id string) error
	Record(id string) (*session.Record, error)
}

// RoomClient talks to the room server's HTTP endpoints
type RoomClient interface {
	ListRooms(ctx context.Context) ([]string, error)
	CreateRoom(ctx context.Context, room string) error
}

// Connection is an open game connection
type Connection interface {
	session.Transport
	Run(ctx context.Context, handler func([]byte)) error
}

// Dialer opens a game connection that writes farewell as it closes
type Dialer func(ctx context.Context, endpoint string, farewell []byte) (Connection, error)

// Listener is told about state changes, e.g. the viewer hub
type Listener interface {
	BroadcastState(sessionID string, state engine.State)
	BroadcastEvent(sessionID string, event string, data any)
}
