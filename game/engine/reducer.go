package engine

import (
	"fmt"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
)

// Reduce applies one inbound event and returns the next state. prev is
// never modified. policy decides how a MyHandCard replacement treats the
// current selection; every other hand replacement clears it.
func Reduce(prev State, ev protocol.Event, policy selection.Policy) State {
	next := prev.Clone()

	switch e := ev.(type) {
	case protocol.AddPlayers:
		players := make([]protocol.Player, 0, len(e.Names))
		for _, name := range e.Names {
			players = append(players, protocol.Player{Name: name})
		}
		next.Players = players

	case protocol.GameStart:
		next.Phase = protocol.PlayingCards
		next.TurnIndex = 0
		next.Hand = card.Sort(e.Hand)
		next.Selected = selection.Set{}
		next.Players = cloneSlice(e.Players)

	case protocol.MyHandCard:
		next.Hand = card.Sort(e.Hand)
		next.Selected = prev.Selected.Reconcile(next.Hand, policy)

	case protocol.GameData:
		next.Players = cloneSlice(e.Players)
		next.Phase = e.Phase
		next.Constraints = cloneSlice(e.Constraints)
		next.FieldTop = cloneSlice(e.FieldTop)
		next.TurnIndex = e.TurnIndex
		next.RankedFinishers = cloneSlice(e.RankedFinishers)

	case protocol.Message:
		next.Log = append(next.Log, e.Text)

	case *protocol.DecodeError:
		next.Log = append(next.Log, "ignored message: "+e.Error())

	default:
		next.Log = append(next.Log, fmt.Sprintf("ignored event %T", ev))
	}

	return next
}
