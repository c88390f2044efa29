package session

import (
	"errors"

	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
)

// ReplayResult is the outcome of re-running a transcript
type ReplayResult struct {
	State    engine.State
	Inbound  int
	Outbound int
	Failures []*protocol.DecodeError
}

// Replay feeds the inbound half of a transcript through a fresh engine.
// Outbound entries are counted but never change state. Local selection
// changes are not part of a transcript, so the replayed selection is
// always empty.
func Replay(entries []Entry, policy selection.Policy) ReplayResult {
	eng := engine.NewEngine(engine.WithSelectionPolicy(policy))
	result := ReplayResult{}

	for _, entry := range entries {
		if entry.Direction == Outbound {
			result.Outbound++
			continue
		}
		result.Inbound++

		ev, err := protocol.Decode([]byte(entry.Raw))
		if err != nil {
			var de *protocol.DecodeError
			if !errors.As(err, &de) {
				de = &protocol.DecodeError{Kind: protocol.MalformedEnvelope, Err: err}
			}
			result.Failures = append(result.Failures, de)
			ev = de
		}
		eng.Apply(ev)
	}

	result.State = eng.State()
	return result
}
