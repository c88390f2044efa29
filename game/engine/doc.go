// Package engine holds the session state machine for a Daifugo client.
//
// The engine package implements:
//   - The State aggregate (phase, roster, turn, hand, selection, field,
//     constraints, standings and narration log)
//   - Reduce, the pure transition function from one State to the next
//   - GameEngine, a small holder that applies events in order
//
// Transitions:
//
//	AddPlayers  replace the roster, phase unchanged
//	GameStart   PlayingCards, turn 0, new sorted hand, empty selection
//	MyHandCard  new sorted hand, selection reconciled by policy
//	GameData    roster, phase, constraints, field, turn and ranking verbatim
//	Message     append narration
//	DecodeError append a diagnostic line, nothing else changes
//
// The selection is always a subset of the hand after every step.
//
// Usage:
//
//	eng := engine.NewEngine(engine.WithSelectionPolicy(selection.PolicyClear))
//	ev, err := protocol.Decode(raw)
//	if err != nil {
//		ev = err.(*protocol.DecodeError)
//	}
//	state := eng.Apply(ev)
//	if name, ok := state.CurrentPlayerName(); ok {
//		fmt.Println("turn:", name)
//	}
//
// GameEngine does no locking. The session package serializes writers and
// publishes copies to readers.
package engine
