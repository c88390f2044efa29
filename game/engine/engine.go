package engine

import (
	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
)

// Engine provides the main interface for session state operations
type Engine interface {
	// State returns a deep copy of the current state
	State() State

	// Apply folds an inbound event into the state
	Apply(ev protocol.Event) State

	// Local selection gestures
	Toggle(c card.Card) bool
	ClearSelection() bool

	Policy() selection.Policy
}

// GameEngine implements the Engine interface. It is the only writer of its
// state and does no locking; callers serialize access.
type GameEngine struct {
	state  State
	policy selection.Policy
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithSelectionPolicy sets how MY_HAND_CARD treats the current selection
func WithSelectionPolicy(p selection.Policy) Option {
	return func(e *GameEngine) {
		e.policy = p
	}
}

// WithState starts the engine from an existing state, e.g. a restored record
func WithState(s State) Option {
	return func(e *GameEngine) {
		e.state = s.Clone()
	}
}

// NewEngine creates an engine in the initial WaitingForPlayers state
func NewEngine(opts ...Option) *GameEngine {
	e := &GameEngine{
		state:  NewState(),
		policy: selection.PolicyClear,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a copy of the current state
func (e *GameEngine) State() State {
	return e.state.Clone()
}

// Apply reduces ev into the current state and returns a copy of the result
func (e *GameEngine) Apply(ev protocol.Event) State {
	e.state = Reduce(e.state, ev, e.policy)
	return e.state.Clone()
}

// Toggle flips a card in the selection. Cards not in hand are ignored; a
// joker stands for whichever joker is held.
func (e *GameEngine) Toggle(c card.Card) bool {
	c = card.ResolveJoker(c, e.state.Hand)
	next, changed := e.state.Selected.Toggle(c, e.state.Hand)
	e.state.Selected = next
	return changed
}

// ClearSelection empties the selection and reports whether it held anything
func (e *GameEngine) ClearSelection() bool {
	if e.state.Selected.Empty() {
		return false
	}
	e.state.Selected = e.state.Selected.Clear()
	return true
}

// Policy returns the configured selection policy
func (e *GameEngine) Policy() selection.Policy {
	return e.policy
}
