// Package websocket pushes live game state to browsers.
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection. Each client has a read goroutine and a write goroutine; the
// hub's Run loop is the only code touching the subscription map.
//
// Message Protocol:
//
// Clients connect to /ws?session=<id> and receive JSON messages:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//
// The first message is the current state. After that a state_update is sent
// for every flip, reset, timer tick and hidden mismatch. Face-down cards carry
// no value. Incoming messages are ignored.
//
// Service Integration:
//
// Hub.Broadcast has the shape of service.StateListener, so the hub is wired
// with service.WithStateListener(hub.Broadcast). Broadcast never blocks the
// game: updates are dropped when the queue is full, and a client whose buffer
// is full is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, configs, service.WithStateListener(hub.Broadcast))
package websocket
