package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/wricardo/mcp-training/daifugo/game/card"
)

// Message tags. Inbound and outbound share ADD_PLAYER and GAME_START.
const (
	TypeAddPlayer    = "ADD_PLAYER"
	TypeGameStart    = "GAME_START"
	TypeMyHandCard   = "MY_HAND_CARD"
	TypeGameData     = "GAME_DATA"
	TypeMessage      = "MESSAGE"
	TypeRemovePlayer = "REMOVE_PLAYER"
	TypeSubmitCards  = "SUBMIT_CARDS"
	TypePass         = "PASS"
)

// Envelope is the frame shared by every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is an inbound message after validation. The set of variants is
// closed; DecodeError is the variant for anything that failed to decode.
type Event interface {
	isEvent()
}

// AddPlayers replaces the roster with bare names.
type AddPlayers struct {
	Names []string
}

// GameStart is the legacy start message carrying hand and roster together.
type GameStart struct {
	Hand    []card.Card
	Players []Player
}

// MyHandCard replaces the local hand only.
type MyHandCard struct {
	Hand []card.Card
}

// GameData is the full public snapshot of a match.
type GameData struct {
	Players         []Player
	Phase           Phase
	Constraints     []Constraint
	FieldTop        []card.Card
	TurnIndex       int
	RankedFinishers []string
}

// Message is narration text.
type Message struct {
	Text string
}

func (AddPlayers) isEvent()   {}
func (GameStart) isEvent()    {}
func (MyHandCard) isEvent()   {}
func (GameData) isEvent()     {}
func (Message) isEvent()      {}
func (*DecodeError) isEvent() {}

// ErrorKind classifies decode failures.
type ErrorKind string

const (
	MalformedEnvelope  ErrorKind = "MalformedEnvelope"
	UnknownMessageType ErrorKind = "UnknownMessageType"
	InvalidPayload     ErrorKind = "InvalidPayload"
)

// DecodeError reports an inbound message that could not be trusted.
type DecodeError struct {
	Kind ErrorKind
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Kind == UnknownMessageType:
		return fmt.Sprintf("unknown message type %q", e.Type)
	case e.Type != "" && e.Err != nil:
		return fmt.Sprintf("%s: invalid %s message: %v", e.Kind, e.Type, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a DecodeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == kind
}

// --- wire payloads ---

type addPlayersData struct {
	PlayerNames []string `json:"playerNames"`
}

type gameStartData struct {
	HandCards []card.Card `json:"handCards"`
	Players   []Player    `json:"players"`
}

type myHandCardData struct {
	HandCards []card.Card `json:"handCards"`
}

type gameDataData struct {
	Players       []Player    `json:"players"`
	GameState     Phase       `json:"gameState"`
	Phase         Phase       `json:"phase"`
	SubmitModes   []string    `json:"submitModes"`
	TopFieldCards []card.Card `json:"topFieldCards"`
	Turn          int         `json:"turn"`
	PlayersByRank []string    `json:"playersByRank"`
}

type messageData struct {
	Message *string `json:"message"`
}

type playerNameData struct {
	PlayerName string `json:"playerName"`
}

type submitCardsData struct {
	PlayerName string      `json:"playerName"`
	Cards      []card.Card `json:"cards"`
}

// Decode parses one wire message into an Event. On failure the returned
// error is always a *DecodeError and the Event is nil.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Kind: MalformedEnvelope, Err: err}
	}
	if env.Type == "" {
		return nil, &DecodeError{Kind: MalformedEnvelope, Err: errors.New("missing type")}
	}

	switch env.Type {
	case TypeAddPlayer:
		var d addPlayersData
		if err := unmarshalData(env, &d); err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(d.PlayerNames))
		for _, name := range d.PlayerNames {
			if name == "" {
				return nil, invalid(env.Type, errors.New("empty player name"))
			}
			if _, dup := seen[name]; dup {
				return nil, invalid(env.Type, fmt.Errorf("duplicate player name %q", name))
			}
			seen[name] = struct{}{}
		}
		return AddPlayers{Names: nonNil(d.PlayerNames)}, nil

	case TypeGameStart:
		var d gameStartData
		if err := unmarshalData(env, &d); err != nil {
			return nil, err
		}
		if err := validateCards(d.HandCards); err != nil {
			return nil, invalid(env.Type, err)
		}
		if err := validatePlayers(d.Players); err != nil {
			return nil, invalid(env.Type, err)
		}
		return GameStart{Hand: nonNil(d.HandCards), Players: nonNil(d.Players)}, nil

	case TypeMyHandCard:
		var d myHandCardData
		if err := unmarshalData(env, &d); err != nil {
			return nil, err
		}
		if err := validateCards(d.HandCards); err != nil {
			return nil, invalid(env.Type, err)
		}
		return MyHandCard{Hand: nonNil(d.HandCards)}, nil

	case TypeGameData:
		var d gameDataData
		if err := unmarshalData(env, &d); err != nil {
			return nil, err
		}
		return d.event()

	case TypeMessage:
		var d messageData
		if err := unmarshalData(env, &d); err != nil {
			return nil, err
		}
		if d.Message == nil {
			return nil, invalid(env.Type, errors.New("missing message"))
		}
		return Message{Text: *d.Message}, nil

	default:
		return nil, &DecodeError{Kind: UnknownMessageType, Type: env.Type}
	}
}

func (d gameDataData) event() (Event, error) {
	phase := d.GameState
	if phase == "" {
		phase = d.Phase
	}
	if !phase.Valid() {
		return nil, invalid(TypeGameData, fmt.Errorf("unknown phase %q", phase))
	}
	if err := validatePlayers(d.Players); err != nil {
		return nil, invalid(TypeGameData, err)
	}
	if err := validateCards(d.TopFieldCards); err != nil {
		return nil, invalid(TypeGameData, err)
	}

	constraints := make([]Constraint, 0, len(d.SubmitModes))
	seen := make(map[Constraint]struct{}, len(d.SubmitModes))
	for _, mode := range d.SubmitModes {
		c, err := ParseSubmitMode(mode)
		if err != nil {
			return nil, invalid(TypeGameData, err)
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		constraints = append(constraints, c)
	}
	sort.Slice(constraints, func(i, j int) bool { return constraints[i] < constraints[j] })

	return GameData{
		Players:         nonNil(d.Players),
		Phase:           phase,
		Constraints:     constraints,
		FieldTop:        nonNil(d.TopFieldCards),
		TurnIndex:       d.Turn,
		RankedFinishers: nonNil(d.PlayersByRank),
	}, nil
}

func unmarshalData(env Envelope, v any) error {
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return invalid(env.Type, errors.New("missing data"))
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return invalid(env.Type, err)
	}
	return nil
}

func invalid(msgType string, err error) *DecodeError {
	return &DecodeError{Kind: InvalidPayload, Type: msgType, Err: err}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Intent is an outbound user action. Like Event the set is closed.
type Intent interface {
	isIntent()
}

// AddPlayer asks the server to seat the player.
type AddPlayer struct {
	PlayerName string
}

// RemovePlayer is the farewell sent when a session ends.
type RemovePlayer struct {
	PlayerName string
}

// StartGame asks the server to deal.
type StartGame struct{}

// SubmitCards proposes a combination. The server validates it.
type SubmitCards struct {
	PlayerName string
	Cards      []card.Card
}

// Pass gives up the turn.
type Pass struct {
	PlayerName string
}

func (AddPlayer) isIntent()    {}
func (RemovePlayer) isIntent() {}
func (StartGame) isIntent()    {}
func (SubmitCards) isIntent()  {}
func (Pass) isIntent()         {}

// Encode renders an intent as wire text. Every intent encodes.
func Encode(intent Intent) []byte {
	var env struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}

	switch in := intent.(type) {
	case AddPlayer:
		env.Type, env.Data = TypeAddPlayer, playerNameData{PlayerName: in.PlayerName}
	case RemovePlayer:
		env.Type, env.Data = TypeRemovePlayer, playerNameData{PlayerName: in.PlayerName}
	case StartGame:
		env.Type = TypeGameStart
	case SubmitCards:
		env.Type, env.Data = TypeSubmitCards, submitCardsData{PlayerName: in.PlayerName, Cards: nonNil(card.Sort(in.Cards))}
	case Pass:
		env.Type, env.Data = TypePass, playerNameData{PlayerName: in.PlayerName}
	}

	// The payload types contain only strings, ints and cards, which always marshal.
	data, _ := json.Marshal(env)
	return data
}
