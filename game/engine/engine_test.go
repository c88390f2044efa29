package engine

import (
	"testing"

	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
)

func TestNewEngine(t *testing.T) {
	eng := NewEngine()

	state := eng.State()
	if state.Phase != protocol.WaitingForPlayers {
		t.Errorf("Expected WaitingForPlayers, got %s", state.Phase)
	}
	if len(state.Players) != 0 || len(state.Hand) != 0 || len(state.Log) != 0 {
		t.Errorf("Expected empty initial state, got %+v", state)
	}
	if eng.Policy() != selection.PolicyClear {
		t.Errorf("Expected default policy clear, got %s", eng.Policy())
	}
}

func TestEngine_StateIsACopy(t *testing.T) {
	eng := NewEngine()
	eng.Apply(protocol.GameStart{
		Hand:    []card.Card{card.New(3, card.Spade)},
		Players: []protocol.Player{{Name: "A", HandCount: 1}},
	})

	state := eng.State()
	state.Hand[0] = card.New(13, card.Heart)
	state.Players[0].Name = "Z"

	fresh := eng.State()
	if fresh.Hand[0] != card.New(3, card.Spade) {
		t.Errorf("Expected hand to be unaffected by caller writes, got %v", fresh.Hand)
	}
	if fresh.Players[0].Name != "A" {
		t.Errorf("Expected roster to be unaffected by caller writes, got %v", fresh.Players)
	}
}

func TestEngine_ToggleAndClear(t *testing.T) {
	eng := NewEngine()
	eng.Apply(protocol.GameStart{Hand: []card.Card{card.New(3, card.Spade), card.New(5, card.Club)}})

	if eng.Toggle(card.New(9, card.Heart)) {
		t.Error("Expected toggle of a card outside the hand to be a no-op")
	}
	if !eng.Toggle(card.New(5, card.Club)) {
		t.Error("Expected toggle of a hand card to select it")
	}
	if got := eng.State().Selected.Len(); got != 1 {
		t.Errorf("Expected 1 selected card, got %d", got)
	}
	if !eng.ClearSelection() {
		t.Error("Expected ClearSelection to report a change")
	}
	if eng.ClearSelection() {
		t.Error("Expected second ClearSelection to be a no-op")
	}
}

func TestEngine_WithState(t *testing.T) {
	restored := Reduce(NewState(), protocol.Message{Text: "hello"}, selection.PolicyClear)
	eng := NewEngine(WithState(restored))

	if got := eng.State().Log; len(got) != 1 || got[0] != "hello" {
		t.Errorf("Expected restored log, got %v", got)
	}
}
