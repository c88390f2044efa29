package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
)

// Transport is the connection a session talks through.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Transcript directions
const (
	Inbound  = "in"
	Outbound = "out"
)

// Entry is one raw wire message as it crossed the connection.
type Entry struct {
	At        time.Time `json:"at"`
	Direction string    `json:"direction"`
	Raw       string    `json:"raw"`
}

// Session is one player's live connection to one room and the state
// derived from it.
type Session struct {
	ID        string
	Room      string
	Player    string
	CreatedAt time.Time

	transport Transport
	logger    *slog.Logger
	onChange  func(*Session, engine.State)

	// publishMu orders state changes with their notifications, so
	// listeners see snapshots in the order they were applied.
	publishMu sync.Mutex

	// sendMu serialises writes with Close; closing is set under it.
	sendMu  sync.Mutex
	closing bool

	mu         sync.RWMutex
	engine     *engine.GameEngine
	transcript []Entry
	closedAt   time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Session
type Option func(*Session)

// WithSelectionPolicy sets how MY_HAND_CARD treats the current selection
func WithSelectionPolicy(p selection.Policy) Option {
	return func(s *Session) {
		s.engine = engine.NewEngine(engine.WithSelectionPolicy(p))
	}
}

// WithLogger sets the logger used for decode warnings
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithOnChange registers a callback that runs after every state change. It
// runs on the goroutine that caused the change, outside the state lock but
// before the next change can be applied. It must not mutate the session.
func WithOnChange(fn func(*Session, engine.State)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// New creates a session bound to an already open transport
func New(id, room, player string, t Transport, opts ...Option) *Session {
	s := &Session{
		ID:        id,
		Room:      room,
		Player:    player,
		CreatedAt: time.Now(),
		transport: t,
		logger:    slog.Default(),
		engine:    engine.NewEngine(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", id, "room", room, "player", player)
	return s
}

// Handle decodes one inbound message and folds it into the state. Decode
// failures become log entries and never stop the session. Handle must be
// called from a single goroutine, in arrival order.
func (s *Session) Handle(raw []byte) {
	ev, err := protocol.Decode(raw)
	if err != nil {
		var de *protocol.DecodeError
		if !errors.As(err, &de) {
			de = &protocol.DecodeError{Kind: protocol.MalformedEnvelope, Err: err}
		}
		s.logger.Warn("dropping inbound message", "kind", de.Kind, "type", de.Type, "error", de.Err)
		ev = de
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.transcript = append(s.transcript, Entry{At: time.Now(), Direction: Inbound, Raw: string(raw)})
	state := s.engine.Apply(ev)
	s.mu.Unlock()

	s.notify(state)
}

// Send encodes an intent and writes it to the transport. It never touches
// state. Sending after the session closed is silently dropped. Only writes
// the transport accepted reach the transcript.
func (s *Session) Send(intent protocol.Intent) error {
	data := protocol.Encode(intent)

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closing {
		s.logger.Debug("dropping intent on closed session", "intent", intent)
		return nil
	}
	if err := s.transport.Send(data); err != nil {
		return err
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, Entry{At: time.Now(), Direction: Outbound, Raw: string(data)})
	s.mu.Unlock()
	return nil
}

// Toggle flips a card in the local selection.
func (s *Session) Toggle(c card.Card) bool {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	changed := s.engine.Toggle(c)
	state := s.engine.State()
	s.mu.Unlock()

	if changed {
		s.notify(state)
	}
	return changed
}

// ClearSelection empties the local selection.
func (s *Session) ClearSelection() bool {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	changed := s.engine.ClearSelection()
	state := s.engine.State()
	s.mu.Unlock()

	if changed {
		s.notify(state)
	}
	return changed
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() engine.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.State()
}

// Transcript returns a copy of every message sent or received so far
func (s *Session) Transcript() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.transcript...)
}

// Close tears the session down once. Further calls are no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		s.closing = true
		s.sendMu.Unlock()

		s.mu.Lock()
		s.closedAt = time.Now()
		s.mu.Unlock()

		err = s.transport.Close()
		close(s.done)
	})
	return err
}

// Closed reports whether Close has run
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Record captures the session for persistence
func (s *Session) Record() *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Record{
		ID:         s.ID,
		Room:       s.Room,
		Player:     s.Player,
		CreatedAt:  s.CreatedAt,
		ClosedAt:   s.closedAt,
		Transcript: append([]Entry(nil), s.transcript...),
		State:      s.engine.State(),
	}
}

func (s *Session) notify(state engine.State) {
	if s.onChange != nil {
		s.onChange(s, state)
	}
}
