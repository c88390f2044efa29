package engine

import (
	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
)

// State is everything the client knows about one match. It is only ever
// produced by Reduce; readers get copies.
type State struct {
	Phase           protocol.Phase        `json:"phase"`
	Players         []protocol.Player     `json:"players"`
	TurnIndex       int                   `json:"turnIndex"`
	Hand            []card.Card           `json:"hand"`
	Selected        selection.Set         `json:"selected"`
	FieldTop        []card.Card           `json:"fieldTop"`
	Constraints     []protocol.Constraint `json:"constraints"`
	RankedFinishers []string              `json:"rankedFinishers"`

	// Log is kept in arrival order. Use Narration for display order.
	Log []string `json:"log"`
}

// NewState returns the state of a freshly mounted session.
func NewState() State {
	return State{
		Phase:           protocol.WaitingForPlayers,
		Players:         []protocol.Player{},
		Hand:            []card.Card{},
		FieldTop:        []card.Card{},
		Constraints:     []protocol.Constraint{},
		RankedFinishers: []string{},
		Log:             []string{},
	}
}

// CurrentPlayerName names whose move it is. It reports false outside
// PlayingCards or when the turn index does not point into the roster.
func (s State) CurrentPlayerName() (string, bool) {
	if s.Phase != protocol.PlayingCards {
		return "", false
	}
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Players) {
		return "", false
	}
	return s.Players[s.TurnIndex].Name, true
}

// Standings returns the final ranking once the match has ended.
func (s State) Standings() ([]string, bool) {
	if s.Phase != protocol.GameEnded {
		return nil, false
	}
	return append([]string(nil), s.RankedFinishers...), true
}

// Narration returns the log newest first.
func (s State) Narration() []string {
	out := make([]string, len(s.Log))
	for i, line := range s.Log {
		out[len(s.Log)-1-i] = line
	}
	return out
}

// Player looks up a roster entry by name.
func (s State) Player(name string) (protocol.Player, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}
	return protocol.Player{}, false
}

// Clone returns a deep copy that shares no slices with s.
func (s State) Clone() State {
	out := s
	out.Players = cloneSlice(s.Players)
	out.Hand = cloneSlice(s.Hand)
	out.FieldTop = cloneSlice(s.FieldTop)
	out.Constraints = cloneSlice(s.Constraints)
	out.RankedFinishers = cloneSlice(s.RankedFinishers)
	out.Log = cloneSlice(s.Log)
	// selection.Set is copy-on-write and needs no copy.
	return out
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
