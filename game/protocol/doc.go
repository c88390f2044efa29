// Package protocol implements the wire format spoken with the Daifugo room
// server.
//
// Every message in both directions is a JSON envelope:
//
//	{"type": "GAME_DATA", "data": {...}}
//
// Inbound messages are decoded into one of a closed set of Event values:
//   - AddPlayers (ADD_PLAYER)
//   - GameStart (GAME_START)
//   - MyHandCard (MY_HAND_CARD)
//   - GameData (GAME_DATA)
//   - Message (MESSAGE)
//
// Anything that fails validation comes back as a *DecodeError, which is
// itself an Event so consumers can fold it into state like any other input.
// Payloads are checked before they are trusted: suits, phases, roles and
// submit modes must be known values and player names must be non-empty.
//
// Outbound user actions are Intent values. Encode turns any Intent into wire
// text and cannot fail:
//
//	conn.Send(protocol.Encode(protocol.Pass{PlayerName: "alice"}))
package protocol
