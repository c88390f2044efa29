// Package websocket provides the websocket transports of the Daifugo client.
//
// The websocket package implements:
//   - Conn: the one client connection a session holds to the room server
//   - Hub: fan-out of session state to local viewer connections
//
// Game Connection:
//
// Dial opens the connection and Run drives it. Run reads frames on a single
// goroutine and hands each one to the handler in arrival order, while a
// keepalive loop sends websocket pings. Both run under an errgroup so either
// one failing tears the other down.
//
// Whichever comes first of a dropped socket, a cancelled context or an
// explicit Close triggers the release sequence exactly once:
//
//  1. the farewell message, if configured (best effort)
//  2. a normal close frame
//  3. the socket close, after which Done is closed
//
// Send after release is a silent no-op. There is no reconnect or retry; an
// abnormal end surfaces from Run as an error wrapping ErrTransportClosed.
//
//	conn, err := websocket.Dial(ctx, endpoint,
//		websocket.WithFarewell(protocol.Encode(protocol.RemovePlayer{PlayerName: "alice"})))
//	if err != nil {
//		return err
//	}
//	go conn.Run(ctx, sess.Handle)
//
// Viewer Hub:
//
// The hub keeps viewers grouped by session ID. ServeWS upgrades a viewer and
// sends it the current state, then every BroadcastState call for that
// session. Broadcasts never block the caller; the hub drops updates when its
// queue is full. Viewers are read-only.
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	hub.BroadcastState(sessionID, state)
package websocket
