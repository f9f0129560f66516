// Package mcp exposes the memory game to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API and the JSON answer is rendered as text. It owns no game
// state, so the same server can back HTTP, stdio and REST clients at once.
//
// MCP Tools:
//   - create_session: Create a session, optionally with config_id and user_id
//   - get_session: Session details and board
//   - list_sessions: All active sessions
//   - game_state: Board with face-down cards shown by id only
//   - flip_card: Flip one card by id
//   - reset_game: Deal a new deck in the same session
//   - flip_history: Accepted flips of the current deal, paginated
//   - list_configs: Available deck presets
//   - game_instructions: Rules and scoring formula
//   - best_score: Best score and score history of a user
//
// Users are passed to the REST API through the X-User-ID header. Sessions
// created without user_id are anonymous and their scores are not recorded.
//
// Transport Modes:
//
// The MCP server can be served on stdio for local agents or mounted on the
// HTTP server at /mcp. Both are wired in main.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", mcp.WithLogger(logger))
//	server.ServeStdio(client.GetMCPServer())
package mcp
