// Package mcp provides the Model Context Protocol surface for Daifugo sessions.
//
// The server is a thin proxy over the local REST API, so every tool call
// goes through the same session layer as the HTTP endpoints.
//
// MCP Tools:
//   - list_rooms, create_room: rooms on the game server
//   - connect: open a session for (room, player)
//   - list_sessions, session_state: inspect sessions and the table
//   - join, start_game, submit_cards, pass: intents sent to the server
//   - toggle_card, clear_selection: local card selection
//   - leave: close a session
//
// Transport Modes:
//   - Stdio: ServeStdio on GetMCPServer()
//   - HTTP: the serve command mounts HandleMessage at /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8090", 10*time.Second)
//	server.ServeStdio(client.GetMCPServer())
package mcp
