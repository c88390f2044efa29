package protocol

import (
	"fmt"

	"github.com/wricardo/mcp-training/daifugo/game/card"
)

// Phase is the coarse lifecycle state of a match.
type Phase string

const (
	WaitingForPlayers Phase = "WaitingForPlayers"
	PlayingCards      Phase = "PlayingCards"
	GameEnded         Phase = "GameEnded"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case WaitingForPlayers, PlayingCards, GameEnded:
		return true
	}
	return false
}

// Role is a player's standing from the previous match. The empty role
// means unassigned.
type Role string

const (
	RoleNone  Role = ""
	Daifugo   Role = "Daifugo"
	Fugo      Role = "Fugo"
	Heimin    Role = "Heimin"
	Hinmin    Role = "Hinmin"
	Daihinmin Role = "Daihinmin"
)

// Valid reports whether r is a known role or unassigned.
func (r Role) Valid() bool {
	switch r {
	case RoleNone, Daifugo, Fugo, Heimin, Hinmin, Daihinmin:
		return true
	}
	return false
}

// Constraint is a server-asserted restriction on legal submission shapes.
// The client only displays it.
type Constraint string

const (
	Normal           Constraint = "Normal"
	ChainLocked      Constraint = "ChainLocked"
	ReversedStrength Constraint = "ReversedStrength"
	SequenceRequired Constraint = "SequenceRequired"
)

// submitModes maps the server's submit mode names to constraints.
var submitModes = map[string]Constraint{
	"Normal":      Normal,
	"ShibariMode": ChainLocked,
	"KakumeiMode": ReversedStrength,
	"KaidanMode":  SequenceRequired,
}

// ParseSubmitMode converts a wire submit mode into a Constraint.
func ParseSubmitMode(mode string) (Constraint, error) {
	c, ok := submitModes[mode]
	if !ok {
		return "", fmt.Errorf("unknown submit mode %q", mode)
	}
	return c, nil
}

// Player is one roster entry. Name is unique within a session.
type Player struct {
	Name      string `json:"name"`
	HandCount int    `json:"numHandCards"`
	Role      Role   `json:"role,omitempty"`
}

func (p Player) validate() error {
	if p.Name == "" {
		return fmt.Errorf("player name is empty")
	}
	if p.HandCount < 0 {
		return fmt.Errorf("player %s has negative card count %d", p.Name, p.HandCount)
	}
	if !p.Role.Valid() {
		return fmt.Errorf("player %s has unknown role %q", p.Name, p.Role)
	}
	return nil
}

func validatePlayers(players []Player) error {
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if err := p.validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate player name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func validateCards(cards []card.Card) error {
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}
