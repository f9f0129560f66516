package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/wricardo/moodjournal/game/engine"
	"github.com/wricardo/moodjournal/game/scores"
	"github.com/wricardo/moodjournal/game/service"
)

const (
	ServerName    = "Mood Journal Memory Game"
	ServerVersion = "1.0.0"

	// userHeader names the signed-in user on REST calls
	userHeader = "X-User-ID"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for failed API calls
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mood Journal Memory Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Find every matching pair of face-down cards in as few moves and seconds as possible.

AVAILABLE TOOLS:
- create_session: Create a new game session, optionally for a user
- get_session: Get session details
- list_sessions: List all active sessions
- game_state: Show the board (face-down cards are hidden)
- flip_card: Flip one card by id
- reset_game: Deal a new game in the same session
- flip_history: View accepted flips of the current deal
- list_configs: List available deck presets
- game_instructions: Rules and scoring
- best_score: Best recorded score of a user

NOTE: After a mismatch both cards stay face-up for a short delay and flips are ignored until they turn back.`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	sessionIDProp := map[string]interface{}{
		"type":        "string",
		"description": "Session ID returned by create_session",
	}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional deck preset and user",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Deck preset to use (see list_configs). Defaults to the server default.",
				},
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User that completed games are scored for. Omit to play anonymously.",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details about a game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions, most recently used first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Gameplay
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Show the board of a session. Face-down cards are shown by id only.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_card",
		Description: "Flip a face-down card. The second flip of a move resolves the pair.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
				"card_id": map[string]interface{}{
					"type":        "integer",
					"description": "Id of the card to flip, from 0 to cards-1",
					"minimum":     0,
				},
			},
			Required: []string{"session_id", "card_id"},
		},
	}, c.handleFlipCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Deal a fresh shuffled deck in the same session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_history",
		Description: "List accepted flips of the current deal with their values and outcomes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
					"minimum":     1,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Flips per page (default 20, max 100)",
					"minimum":     1,
					"maximum":     100,
				},
				"order": map[string]interface{}{
					"type":        "string",
					"description": "asc for oldest first, desc for newest first",
					"enum":        []string{"asc", "desc"},
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleFlipHistory)

	// Information
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available deck presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the memory game and how scores are computed",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "best_score",
		Description: "Get the best recorded score and score history of a user",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User id returned by register or login",
				},
			},
			Required: []string{"user_id"},
		},
	}, c.handleBestScore)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall performs a REST call and decodes the JSON response into result
func (c *Client) apiCall(ctx context.Context, method, path, userID string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("API call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// arguments returns the tool arguments as a map, empty when absent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	userID := stringArg(args, "user_id")

	body := map[string]string{}
	if configID := stringArg(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", userID, body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.UserID != "" {
		result += fmt.Sprintf("Player: %s\n", session.UserID)
	} else {
		result += "Player: anonymous (score will not be recorded)\n"
	}
	result += "\n" + formatGameState(session.GameState)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", "", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "in progress"
		if s.GameState != nil && s.GameState.Completed {
			status = fmt.Sprintf("completed, score %d", s.GameState.Score)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s, %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), "", nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID)+"/state", "", nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleFlipCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	cardID, ok := intArg(args, "card_id")
	if !ok {
		return mcp.NewToolResultError("card_id is required"), nil
	}

	body := map[string]int{"card_id": cardID}

	var result service.FlipResult
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/flip", "", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFlipResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/reset", "", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleFlipHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		params.Set("order", order)
	}

	path := "/api/sessions/" + url.PathEscape(sessionID) + "/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, http.MethodGet, path, "", nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", "", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Pairs: %d, Symbols: %d, Mismatch delay: %dms\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.Pairs, cfg.SymbolPool, cfg.MismatchDelayMS)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`Memory Game - Complete Instructions

GAME OBJECTIVE:
The deck holds pairs of symbols dealt face-down in a random order. Turn cards over two at a time and find every pair.

GAME MECHANICS:
• Flip: flip_card turns one face-down card face-up and reveals its symbol
• Move: every second flip completes a move and the two cards are compared
• Match: equal symbols stay face-up for the rest of the game
• Mismatch: both cards turn back face-down after the preset's delay (1 second by default)
• Timer: starts with the first flip and stops when the last pair is found

IGNORED FLIPS:
A flip changes nothing when the card is already face-up or matched, when two
cards are waiting to be compared, when the id is out of range, or when the game
is over. The result reports "ignored" in that case.

SCORING:
score = max(%d, %d - %d × moves - %d × seconds)
A perfect game of P pairs takes P moves. With 8 pairs the best reachable score is %d.
Completed games are recorded for the session's user; anonymous games are not.

STRATEGY TIPS:
1. Use game_state before flipping. Face-down cards show only their id.
2. Remember every symbol you reveal, including mismatched ones. flip_history lists them.
3. Flip an unknown card first. If its partner is already known, flip the partner next.
4. Call reset_game to start over in the same session.`,
		engine.MinScore, engine.MaxScore, engine.MovePenalty, engine.SecondPenalty,
		engine.PerfectScore(engine.DefaultPairs))

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleBestScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := stringArg(arguments(request), "user_id")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	var response struct {
		Count  int             `json:"count"`
		Best   int             `json:"best"`
		Scores []scores.Record `json:"scores"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/scores", userID, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatScores(response.Best, response.Scores)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast Accessed: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.UserID != "" {
		result += fmt.Sprintf("Player: %s\n", session.UserID)
	}
	return result + "\n" + formatGameState(session.GameState)
}

// formatGameState renders the board four cards per row. Face-down cards show
// their id, face-up cards their symbol and matched cards are bracketed.
func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "Game state: unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pairs: %d/%d | Moves: %d | Time: %ds\n",
		state.MatchedPairCount, state.TotalPairs, state.MoveCount, state.ElapsedSeconds)

	switch {
	case state.Completed:
		fmt.Fprintf(&b, "Status: COMPLETED | Score: %d | Best: %d\n", state.Score, state.BestScore)
	case state.ResolvePending:
		b.WriteString("Status: mismatch showing, wait before flipping\n")
	case state.Started:
		b.WriteString("Status: in progress\n")
	default:
		b.WriteString("Status: not started\n")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	b.WriteString("\n")
	columns := boardColumns(len(state.Cards))
	for i, card := range state.Cards {
		b.WriteString(formatCard(card))
		if (i+1)%columns == 0 || i == len(state.Cards)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}

	b.WriteString("\nLegend: #id = face-down, id:symbol = face-up, [id:symbol] = matched\n")
	return b.String()
}

func formatCard(card engine.Card) string {
	switch {
	case card.IsMatched:
		return fmt.Sprintf("[%2d:%s]", card.ID, card.Value)
	case card.IsFlipped:
		return fmt.Sprintf(" %2d:%s ", card.ID, card.Value)
	default:
		return fmt.Sprintf("  #%-2d  ", card.ID)
	}
}

// boardColumns picks a row width close to a square board
func boardColumns(cards int) int {
	cols := 2
	for cols*cols < cards {
		cols++
	}
	return cols
}

func formatFlipResult(result *service.FlipResult) string {
	var b strings.Builder
	if !result.Accepted {
		fmt.Fprintf(&b, "Flip of card %d ignored\n", result.CardID)
	} else {
		fmt.Fprintf(&b, "Flipped card %d: %s (%s)\n", result.CardID, result.Value, result.Outcome)
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	for _, event := range result.Events {
		if event.Type == "flip" {
			continue
		}
		fmt.Fprintf(&b, "• %s\n", event.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Flip History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalFlips)

	for _, flip := range history.Flips {
		fmt.Fprintf(&b, "Move %d: card %d = %s (%s)\n",
			flip.MoveNumber, flip.CardID, flip.Value, flip.Outcome)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore flips on page %d\n", history.Page+1)
	}
	return b.String()
}

func formatScores(best int, records []scores.Record) string {
	if len(records) == 0 {
		return "No completed games recorded yet.\nBest score: 0"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Best score: %d\nGames recorded: %d\n\n", best, len(records))
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %d (%s)\n", i+1, r.Score, r.RecordedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}
