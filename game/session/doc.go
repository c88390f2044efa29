// Package session binds a player's connection to the state derived from it.
//
// The session package implements:
//   - Session: one (room, player) pair, its transport, its engine and a
//     transcript of every raw message
//   - Manager: thread-safe registry of live sessions keyed by UUID
//   - FilePersistence: one JSON record per finished session
//
// Core Types:
//
// Session.Handle is the read-loop callback. It decodes each message, folds it
// into the engine and appends it to the transcript. Session.Send encodes an
// intent and writes it to the transport without touching state. Readers use
// Snapshot, which takes a read lock and returns a deep copy, so HTTP and MCP
// handlers never observe a half-applied event.
//
// Concurrency:
//
// Exactly one goroutine calls Handle. Any number of goroutines may call
// Send, Snapshot, Toggle and ClearSelection. Close is idempotent.
//
// Usage:
//
//	manager := session.NewManagerWithPersistence(store, logger)
//
//	sess, err := manager.Create("lobby", "alice", conn,
//		session.WithSelectionPolicy(selection.PolicyClear))
//	if err != nil {
//		return err
//	}
//	go func() {
//		_ = conn.Run(ctx, sess.Handle)
//		_ = manager.Archive(sess.ID)
//	}()
//
//	_ = sess.Send(protocol.AddPlayer{PlayerName: "alice"})
//	state := sess.Snapshot()
//
// Archive closes the transport, writes the record and drops the session from
// memory. Records can be replayed later through the same decoder and reducer.
package session
