package card

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Suit is the card type as named on the wire.
type Suit string

const (
	Club    Suit = "Club"
	Spade   Suit = "Spade"
	Heart   Suit = "Heart"
	Diamond Suit = "Diamond"
	Joker   Suit = "Joker"

	// JokerValue is the strength sentinel the server assigns to jokers.
	JokerValue = 99

	MinNumber = 1
	MaxNumber = 13
)

// suitPriority is the tie-break order used when two cards share a value.
var suitPriority = map[Suit]int{
	Spade:   0,
	Club:    1,
	Heart:   2,
	Diamond: 3,
	Joker:   4,
}

// Valid reports whether s is one of the five known suits.
func (s Suit) Valid() bool {
	_, ok := suitPriority[s]
	return ok
}

// ParseSuit maps a wire name to a Suit.
func ParseSuit(name string) (Suit, error) {
	s := Suit(name)
	if !s.Valid() {
		return "", fmt.Errorf("unknown card type %q", name)
	}
	return s, nil
}

// Card is an immutable card value. Value is the strength the server
// assigned and may differ from Number (e.g. under a reversal).
type Card struct {
	Number int  `json:"number"`
	Value  int  `json:"value"`
	Suit   Suit `json:"cardType"`
}

// Key identifies a card structurally. Two cards with the same key are the
// same card regardless of which message delivered them.
type Key struct {
	Number int
	Suit   Suit
}

// Key returns the structural identity of c.
func (c Card) Key() Key {
	return Key{Number: c.Number, Suit: c.Suit}
}

// Equal compares cards by number and suit only.
func (c Card) Equal(other Card) bool {
	return c.Key() == other.Key()
}

// IsJoker reports whether c is a joker.
func (c Card) IsJoker() bool {
	return c.Suit == Joker
}

// Validate checks that c could have come from a real deck.
func (c Card) Validate() error {
	if !c.Suit.Valid() {
		return fmt.Errorf("unknown card type %q", c.Suit)
	}
	if c.Suit != Joker && (c.Number < MinNumber || c.Number > MaxNumber) {
		return fmt.Errorf("card number %d out of range for %s", c.Number, c.Suit)
	}
	return nil
}

// String renders the short form, e.g. "3S", or "JOKER1" and "JOKER2" for
// the jokers the server numbers -1 and -2.
func (c Card) String() string {
	if c.IsJoker() {
		return "JOKER" + strconv.Itoa(-c.Number)
	}
	return strconv.Itoa(c.Number) + string(c.Suit)[:1]
}

// UnmarshalJSON rejects unknown suits so a bad payload never becomes a Card.
func (c *Card) UnmarshalJSON(data []byte) error {
	type rawCard Card
	var raw rawCard
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := Card(raw)
	if err := parsed.Validate(); err != nil {
		return err
	}
	*c = parsed
	return nil
}

// New builds a card with the standard strength: 3 is weakest, aces and
// twos rank above kings, jokers above everything.
func New(number int, suit Suit) Card {
	value := number
	if number <= 2 {
		value += 13
	}
	if suit == Joker {
		value = JokerValue
	}
	return Card{Number: number, Value: value, Suit: suit}
}

var (
	shortForm = regexp.MustCompile(`^(\d+)([SHDC])$`)
	jokerForm = regexp.MustCompile(`^(?:JOKER|JK)([12]?)$`)
)

// Parse reads the short form ("3S", "13H", "JOKER2", "JK1"). A bare
// "JOKER" is joker -1; use ResolveJoker to match it against a hand.
func Parse(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if m := jokerForm.FindStringSubmatch(s); m != nil {
		if m[1] == "2" {
			return New(-2, Joker), nil
		}
		return New(-1, Joker), nil
	}
	m := shortForm.FindStringSubmatch(s)
	if len(m) != 3 {
		return Card{}, fmt.Errorf("invalid card format: %s", s)
	}
	number, err := strconv.Atoi(m[1])
	if err != nil {
		return Card{}, fmt.Errorf("invalid number in card: %s", s)
	}
	var suit Suit
	switch m[2] {
	case "S":
		suit = Spade
	case "C":
		suit = Club
	case "D":
		suit = Diamond
	case "H":
		suit = Heart
	}
	c := New(number, suit)
	if err := c.Validate(); err != nil {
		return Card{}, err
	}
	return c, nil
}

// Compare orders cards by value, then suit priority, then number.
// It returns -1, 0 or +1; 0 only for structurally equal cards of equal value.
func Compare(a, b Card) int {
	switch {
	case a.Value != b.Value:
		return cmpInt(a.Value, b.Value)
	case a.Suit != b.Suit:
		return cmpInt(suitPriority[a.Suit], suitPriority[b.Suit])
	default:
		return cmpInt(a.Number, b.Number)
	}
}

// Less reports whether a sorts before b.
func Less(a, b Card) bool {
	return Compare(a, b) < 0
}

// Sort returns a sorted copy of cards with duplicate keys removed.
// The first occurrence of a key wins.
func Sort(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	seen := make(map[Key]struct{}, len(cards))
	for _, c := range cards {
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j])
	})
	return out
}

// ResolveJoker maps a joker that is not in hand onto the joker that is, so
// "JOKER" selects whichever one the player holds. Other cards are returned
// unchanged.
func ResolveJoker(c Card, hand []Card) Card {
	if !c.IsJoker() || Contains(hand, c) {
		return c
	}
	for _, h := range hand {
		if h.IsJoker() {
			return h
		}
	}
	return c
}

// Contains reports whether cards holds a card structurally equal to c.
func Contains(cards []Card, c Card) bool {
	for _, candidate := range cards {
		if candidate.Equal(c) {
			return true
		}
	}
	return false
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
