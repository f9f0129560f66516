// Package api provides the HTTP REST API of the mood journal and its memory game.
//
// The api package implements:
//   - Game session endpoints backed by service.GameService
//   - User registration, login and theme preference
//   - Diary entry CRUD with sorting, search and grouping by day
//   - Score listing for signed-in players
//   - WebSocket upgrade for live game state
//
// Endpoints:
//
// Game Sessions:
//   - POST   /api/sessions                {"config_id": "classic"}
//   - GET    /api/sessions                ?sort=created|accessed&order=asc|desc&limit=N
//   - GET    /api/sessions/{id}
//   - DELETE /api/sessions/{id}
//   - GET    /api/sessions/{id}/state
//   - POST   /api/sessions/{id}/flip      {"card_id": 3}
//   - POST   /api/sessions/{id}/reset
//   - GET    /api/sessions/{id}/history   ?page=1&limit=20&order=desc
//
// Configuration:
//   - GET  /api/configs
//   - GET  /api/configs/{name}
//   - POST /api/configs                   a preset, optionally with "config_id"
//
// Users:
//   - POST /api/users/register            {"username": "...", "password": "..."}
//   - POST /api/users/login
//   - GET  /api/users/me
//   - GET  /api/users/me/theme
//   - PUT  /api/users/me/theme            {"dark_mode": true}
//
// Diary:
//   - GET    /api/entries                 ?order=newest|oldest&q=text&group=day&tz=Europe/Paris
//   - POST   /api/entries                 {"title": "...", "content": "...", "mood": "calm"}
//   - GET    /api/entries/{id}
//   - PATCH  /api/entries/{id}            any of title, content, mood
//   - DELETE /api/entries/{id}
//
// Scores:
//   - GET /api/scores
//   - GET /api/scores/best
//
// Other:
//   - GET /ws?session={id}                WebSocket state updates
//   - GET /healthz
//
// Identity:
//
// The signed-in user is named by the X-User-ID header, as returned by
// register and login. Requests without it are anonymous: they may play, but
// games are not scored and diary, theme and score routes answer 401.
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Not found errors map to 404,
// a taken username to 409, bad credentials and missing identity to 401,
// invalid input to 400 and disabled score storage to 501.
//
// Usage:
//
//	server := api.NewServer(gameService, accounts.NewService(kv), diary.NewService(kv, nil), hub,
//		api.WithLogger(logger))
//	http.ListenAndServe(":8080", server.Handler())
package api
