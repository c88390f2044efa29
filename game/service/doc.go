// Package service provides the orchestration layer for Daifugo client sessions.
//
// The service package implements:
//   - Room listing and creation against the room server
//   - Opening game connections and running their read loops
//   - Sending intents (join, start, submit, pass)
//   - Local card selection
//   - Session archiving when a connection ends
//
// Core Interfaces:
//
// GameService is the main service interface used by the HTTP API, the MCP
// tools and the interactive CLI. SessionManager stores sessions, RoomClient
// reaches the room server, and Dialer opens game connections.
//
// Usage:
//
//	svc := service.NewGameService(service.Options{
//		Sessions: session.NewManager(),
//		Rooms:    roomsClient,
//		Dial:     dial,
//		Endpoint: cfg.WebSocketURL,
//		Policy:   cfg.Policy(),
//		Listener: hub,
//	})
//
//	info, err := svc.Connect(ctx, "lobby", "alice")
//	if err != nil {
//		log.Fatal(err)
//	}
//	_, err = svc.Join(ctx, info.ID)
//
// The server alone decides whether a play is legal. Every action result holds
// the state as it was when the intent left; the effect shows up once the
// server answers.
package service
