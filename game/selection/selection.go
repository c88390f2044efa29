// Package selection tracks which cards of the local hand are staged for the
// next submission. Membership is keyed by card.Key, never by identity, so
// hand replacements that rebuild identical cards keep working.
package selection

import (
	"encoding/json"
	"fmt"

	"github.com/wricardo/mcp-training/daifugo/game/card"
)

// Policy decides what happens to a selection when the hand is replaced.
type Policy string

const (
	// PolicyClear drops the whole selection on every hand replacement.
	PolicyClear Policy = "clear"
	// PolicyIntersect keeps selected cards that are still in the new hand.
	PolicyIntersect Policy = "intersect"
)

// ParsePolicy accepts the config spelling of a policy. Empty means clear.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyClear:
		return PolicyClear, nil
	case PolicyIntersect:
		return PolicyIntersect, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q", s)
	}
}

// Set is a set of cards keyed structurally. The zero value is empty and
// ready to use; methods that change the set return a new Set.
type Set struct {
	cards map[card.Key]card.Card
}

// Of builds a set from cards.
func Of(cards ...card.Card) Set {
	s := Set{}
	for _, c := range cards {
		s = s.with(c)
	}
	return s
}

// Len returns the number of selected cards.
func (s Set) Len() int {
	return len(s.cards)
}

// Empty reports whether nothing is selected.
func (s Set) Empty() bool {
	return len(s.cards) == 0
}

// Contains reports whether a card with the same key is selected.
func (s Set) Contains(c card.Card) bool {
	_, ok := s.cards[c.Key()]
	return ok
}

// Cards returns the selected cards in card order.
func (s Set) Cards() []card.Card {
	out := make([]card.Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	return card.Sort(out)
}

// Equal reports whether both sets hold the same keys.
func (s Set) Equal(other Set) bool {
	if len(s.cards) != len(other.cards) {
		return false
	}
	for k := range s.cards {
		if _, ok := other.cards[k]; !ok {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every selected card is structurally in hand.
func (s Set) SubsetOf(hand []card.Card) bool {
	for _, c := range s.cards {
		if !card.Contains(hand, c) {
			return false
		}
	}
	return true
}

// Toggle removes c when selected, adds it when it is in hand, and otherwise
// leaves the set alone. The bool reports whether membership changed.
// The stored card is the hand's instance so its value stays current.
func (s Set) Toggle(c card.Card, hand []card.Card) (Set, bool) {
	if s.Contains(c) {
		return s.without(c), true
	}
	for _, h := range hand {
		if h.Equal(c) {
			return s.with(h), true
		}
	}
	return s, false
}

// Clear returns the empty set.
func (s Set) Clear() Set {
	return Set{}
}

// Reconcile adjusts the selection to a replaced hand according to policy.
// Either way the result is a subset of newHand.
func (s Set) Reconcile(newHand []card.Card, policy Policy) Set {
	if policy != PolicyIntersect {
		return Set{}
	}
	out := Set{}
	for _, h := range newHand {
		if s.Contains(h) {
			out = out.with(h)
		}
	}
	return out
}

// MarshalJSON renders the selection as an ordered card list.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Cards())
}

// UnmarshalJSON reads an ordered card list.
func (s *Set) UnmarshalJSON(data []byte) error {
	var cards []card.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return err
	}
	*s = Of(cards...)
	return nil
}

func (s Set) with(c card.Card) Set {
	next := make(map[card.Key]card.Card, len(s.cards)+1)
	for k, v := range s.cards {
		next[k] = v
	}
	next[c.Key()] = c
	return Set{cards: next}
}

func (s Set) without(c card.Card) Set {
	if len(s.cards) <= 1 {
		return Set{}
	}
	next := make(map[card.Key]card.Card, len(s.cards)-1)
	for k, v := range s.cards {
		if k != c.Key() {
			next[k] = v
		}
	}
	return Set{cards: next}
}
