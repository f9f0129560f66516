// Package service provides the business logic layer for the memory game.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration lookup and persistence
//   - Flip processing with event reporting
//   - Flip history pagination
//   - Score records for signed-in players
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// ScoreStore records completed games and is optional; without one, BestScore
// and ListScores return ErrScoresDisabled.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket and MCP) and
// the game engine. Each session owns its own engine instance. Every state
// leaving this package is masked: face-down cards never carry their value.
// A StateListener receives the masked state after each flip, timer tick,
// hidden mismatch and reset; the WebSocket hub is wired in this way.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithScoreStore(scores.NewStore(kv, nil)),
//		service.WithStateListener(hub.Broadcast))
//
//	info, err := gameService.CreateSession(ctx, "classic", userID)
//	result, err := gameService.Flip(ctx, info.ID, 3)
package service
