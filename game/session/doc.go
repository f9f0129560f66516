// Package session provides game session management for the memory game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session teardown that cancels pending game tasks
//   - Periodic cleanup of idle sessions
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns its own engine instance; deleting or expiring a session
// closes the engine so its timer and mismatch delay never fire again.
// Janitor runs CleanupExpiredSessions on a gocron schedule.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference, generated with
// cryptographic randomness. Lookups are case-insensitive.
//
// Sessions are never persisted; a restart discards every game in progress.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//
//	sess, err := manager.Create("", config, engine.WithUserID(userID))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	janitor, err := session.NewJanitor(manager, time.Hour, 24*time.Hour, nil, logger)
//	go janitor.Run(ctx)
package session
