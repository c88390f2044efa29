package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
	"github.com/wricardo/mcp-training/daifugo/game/session"
)

var (
	ErrMissingRoom      = errors.New("room is required")
	ErrMissingPlayer    = errors.New("player is required")
	ErrNothingSelected  = errors.New("no cards selected")
	ErrCardNotInHand    = errors.New("card is not in hand")
	ErrRoomsUnavailable = errors.New("room server not configured")
)

// Options wires the service to its collaborators
type Options struct {
	Sessions SessionManager
	Rooms    RoomClient
	Dial     Dialer

	// Endpoint builds the game connection URL for a room and player
	Endpoint func(room, player string) (string, error)

	Policy   selection.Policy
	Listener Listener
	Logger   *slog.Logger
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	opts   Options
	logger *slog.Logger
}

// NewGameService creates a new game service instance
func NewGameService(opts Options) GameService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &gameServiceImpl{opts: opts, logger: logger}
}

// ListRooms lists rooms on the room server
func (s *gameServiceImpl) ListRooms(ctx context.Context) ([]string, error) {
	if s.opts.Rooms == nil {
		return nil, ErrRoomsUnavailable
	}
	return s.opts.Rooms.ListRooms(ctx)
}

// CreateRoom creates a room on the room server
func (s *gameServiceImpl) CreateRoom(ctx context.Context, room string) error {
	if room == "" {
		return ErrMissingRoom
	}
	if s.opts.Rooms == nil {
		return ErrRoomsUnavailable
	}
	return s.opts.Rooms.CreateRoom(ctx, room)
}

// Connect opens the game connection for (room, player) and starts its read
// loop. The session lives until the connection ends or Leave is called.
func (s *gameServiceImpl) Connect(ctx context.Context, room, player string) (*SessionInfo, error) {
	if room == "" {
		return nil, ErrMissingRoom
	}
	if player == "" {
		return nil, ErrMissingPlayer
	}

	endpoint, err := s.opts.Endpoint(room, player)
	if err != nil {
		return nil, err
	}

	farewell := protocol.Encode(protocol.RemovePlayer{PlayerName: player})
	conn, err := s.opts.Dial(ctx, endpoint, farewell)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to room %s: %w", room, err)
	}

	sess, err := s.opts.Sessions.Create(room, player, conn,
		session.WithSelectionPolicy(s.opts.Policy),
		session.WithLogger(s.logger),
		session.WithOnChange(s.publish),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// The request context ends with the request; the read loop must not.
	go s.run(context.WithoutCancel(ctx), sess, conn)

	s.logger.Info("session connected", "session", sess.ID, "room", room, "player", player)
	return s.info(sess, true), nil
}

func (s *gameServiceImpl) run(ctx context.Context, sess *session.Session, conn Connection) {
	err := conn.Run(ctx, sess.Handle)
	if err != nil {
		s.logger.Warn("session connection ended", "session", sess.ID, "error", err)
	} else {
		s.logger.Info("session connection closed", "session", sess.ID)
	}

	if archiveErr := s.opts.Sessions.Archive(sess.ID); archiveErr != nil && !errors.Is(archiveErr, session.ErrSessionNotFound) {
		s.logger.Error("failed to archive session", "session", sess.ID, "error", archiveErr)
	}

	if s.opts.Listener != nil {
		reason := "closed"
		if err != nil {
			reason = err.Error()
		}
		s.opts.Listener.BroadcastEvent(sess.ID, "session_closed", reason)
	}
}

func (s *gameServiceImpl) publish(sess *session.Session, state engine.State) {
	if s.opts.Listener != nil {
		s.opts.Listener.BroadcastState(sess.ID, state)
	}
}

// GetSession returns information about a live session
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.opts.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess, true), nil
}

// ListSessions lists live sessions without their full state
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.opts.Sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, false))
	}
	return result, nil
}

// Leave closes the connection, which sends the farewell, and archives the
// session
func (s *gameServiceImpl) Leave(ctx context.Context, sessionID string) error {
	return s.opts.Sessions.Archive(sessionID)
}

// Join asks the server to seat the session's player
func (s *gameServiceImpl) Join(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.send(sessionID, func(sess *session.Session) protocol.Intent {
		return protocol.AddPlayer{PlayerName: sess.Player}
	})
}

// StartGame asks the server to deal
func (s *gameServiceImpl) StartGame(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.send(sessionID, func(*session.Session) protocol.Intent {
		return protocol.StartGame{}
	})
}

// Pass gives up the current turn
func (s *gameServiceImpl) Pass(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.send(sessionID, func(sess *session.Session) protocol.Intent {
		return protocol.Pass{PlayerName: sess.Player}
	})
}

// SubmitCards proposes the current selection. The selection is left in
// place; the server's next hand replacement reconciles it.
func (s *gameServiceImpl) SubmitCards(ctx context.Context, sessionID string) (*ActionResult, error) {
	sess, err := s.live(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Snapshot()
	cards := state.Selected.Cards()
	if len(cards) == 0 {
		return nil, ErrNothingSelected
	}

	if err := sess.Send(protocol.SubmitCards{PlayerName: sess.Player, Cards: cards}); err != nil {
		return nil, err
	}
	return &ActionResult{Sent: protocol.TypeSubmitCards, Cards: cards, State: &state}, nil
}

// ToggleCard flips a hand card in the selection
func (s *gameServiceImpl) ToggleCard(ctx context.Context, sessionID string, c card.Card) (*SelectionResult, error) {
	sess, err := s.opts.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	changed := sess.Toggle(c)
	state := sess.Snapshot()
	if !changed {
		return nil, fmt.Errorf("%w: %s", ErrCardNotInHand, c)
	}
	return &SelectionResult{Changed: true, Selected: state.Selected.Cards(), State: &state}, nil
}

// ClearSelection empties the selection
func (s *gameServiceImpl) ClearSelection(ctx context.Context, sessionID string) (*SelectionResult, error) {
	sess, err := s.opts.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	changed := sess.ClearSelection()
	state := sess.Snapshot()
	return &SelectionResult{Changed: changed, Selected: state.Selected.Cards(), State: &state}, nil
}

// GetState returns the state of a live session, or the last state of an
// archived one
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.State, error) {
	if sess, err := s.opts.Sessions.Get(sessionID); err == nil {
		state := sess.Snapshot()
		return &state, nil
	}
	rec, err := s.opts.Sessions.Record(sessionID)
	if err != nil {
		return nil, err
	}
	return &rec.State, nil
}

// GetTranscript returns every raw message of a live or archived session
func (s *gameServiceImpl) GetTranscript(ctx context.Context, sessionID string) ([]session.Entry, error) {
	rec, err := s.opts.Sessions.Record(sessionID)
	if err != nil {
		return nil, err
	}
	if rec.Transcript == nil {
		return []session.Entry{}, nil
	}
	return rec.Transcript, nil
}

func (s *gameServiceImpl) live(sessionID string) (*session.Session, error) {
	sess, err := s.opts.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Closed() {
		return nil, session.ErrSessionClosed
	}
	return sess, nil
}

func (s *gameServiceImpl) send(sessionID string, build func(*session.Session) protocol.Intent) (*ActionResult, error) {
	sess, err := s.live(sessionID)
	if err != nil {
		return nil, err
	}

	intent := build(sess)
	if err := sess.Send(intent); err != nil {
		return nil, err
	}

	state := sess.Snapshot()
	return &ActionResult{Sent: intentType(intent), State: &state}, nil
}

func (s *gameServiceImpl) info(sess *session.Session, withState bool) *SessionInfo {
	state := sess.Snapshot()
	current, _ := state.CurrentPlayerName()

	info := &SessionInfo{
		ID:            sess.ID,
		Room:          sess.Room,
		Player:        sess.Player,
		CreatedAt:     sess.CreatedAt,
		Closed:        sess.Closed(),
		CurrentPlayer: current,
		MyTurn:        current != "" && current == sess.Player,
	}
	if withState {
		info.State = &state
	}
	return info
}

func intentType(intent protocol.Intent) string {
	switch intent.(type) {
	case protocol.AddPlayer:
		return protocol.TypeAddPlayer
	case protocol.RemovePlayer:
		return protocol.TypeRemovePlayer
	case protocol.StartGame:
		return protocol.TypeGameStart
	case protocol.SubmitCards:
		return protocol.TypeSubmitCards
	case protocol.Pass:
		return protocol.TypePass
	default:
		return fmt.Sprintf("%T", intent)
	}
}
