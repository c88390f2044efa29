package service

import (
	"time"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
)

// SessionInfo provides information about a live session
type SessionInfo struct {
	ID            string        `json:"id"`
	Room          string        `json:"room"`
	Player        string        `json:"player"`
	CreatedAt     time.Time     `json:"created_at"`
	Closed        bool          `json:"closed"`
	CurrentPlayer string        `json:"current_player,omitempty"`
	MyTurn        bool          `json:"my_turn"`
	State         *engine.State `json:"state,omitempty"`
}

// ActionResult reports an intent that was handed to the connection. The
// server decides whether it was legal; State is the view at send time.
type ActionResult struct {
	Sent  string        `json:"sent"`
	Cards []card.Card   `json:"cards,omitempty"`
	State *engine.State `json:"state"`
}

// SelectionResult reports a local selection change
type SelectionResult struct {
	Changed  bool          `json:"changed"`
	Selected []card.Card   `json:"selected"`
	State    *engine.State `json:"state"`
}
