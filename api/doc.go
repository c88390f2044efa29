// Package api provides the local HTTP API for Daifugo client sessions.
//
// Endpoints:
//
// Rooms:
//   - GET /api/rooms - List rooms on the game server
//   - POST /api/rooms/{room} - Create a room
//
// Session Management:
//   - POST /api/sessions - Connect {room, player}
//   - GET /api/sessions - List live sessions (room, order, limit)
//   - GET /api/sessions/{id} - Get one session with its state
//   - DELETE /api/sessions/{id} - Leave; sends REMOVE_PLAYER and archives
//
// Game State:
//   - GET /api/sessions/{id}/state - Current or archived state
//   - GET /api/sessions/{id}/transcript - Raw inbound and outbound messages
//
// Intents:
//   - POST /api/sessions/{id}/join
//   - POST /api/sessions/{id}/start
//   - POST /api/sessions/{id}/submit - Submits the current selection
//   - POST /api/sessions/{id}/pass
//
// Selection:
//   - POST /api/sessions/{id}/select - Toggle {"card":"3S"} or {"number":3,"cardType":"Spade"}
//   - DELETE /api/sessions/{id}/select - Clear
//
// Viewers connect to GET /ws?session={id} and receive a state_update
// message on every change.
//
// Errors are returned as JSON:
//
//	{
//	  "error": "session not found"
//	}
package api
