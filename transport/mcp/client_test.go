package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/moodjournal/api"
	"github.com/wricardo/moodjournal/game/config"
	"github.com/wricardo/moodjournal/game/engine"
	"github.com/wricardo/moodjournal/game/scores"
	"github.com/wricardo/moodjournal/game/service"
	"github.com/wricardo/moodjournal/game/session"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL + "/")

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}

	custom := &http.Client{Timeout: time.Second}
	client = NewClient(baseURL, WithHTTPClient(custom))
	if client.httpClient != custom {
		t.Error("Expected custom HTTP client")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(userHeader); got != "u1" {
			t.Errorf("Expected user header u1, got %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "ab12"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), http.MethodGet, "/api", "u1", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "ab12" {
		t.Errorf("Expected id ab12, got %v", response["id"])
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			},
			wantErr: "session not found",
		},
		{
			name: "plain body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			},
			wantErr: "API error: 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			err := NewClient(server.URL).apiCall(context.Background(), http.MethodGet, "/api", "", nil, nil)
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Expected error %q, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		if err := NewClient(url).apiCall(context.Background(), http.MethodGet, "/api", "", nil, nil); err == nil {
			t.Error("Expected error for closed server")
		}
	})
}

func TestClient_createSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["config_id"] != "easy" {
			t.Errorf("Expected config_id easy, got %q", body["config_id"])
		}

		writeJSON(w, http.StatusCreated, service.SessionInfo{
			ID:         "ab12",
			ConfigName: "easy",
			UserID:     r.Header.Get(userHeader),
			GameState: &engine.GameState{
				Cards:      []engine.Card{{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}},
				TotalPairs: 2,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]interface{}{
		"config_id": "easy",
		"user_id":   "u1",
	}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"ab12", "Config: easy", "Player: u1", "#0"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_flipCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/ab12/flip" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body map[string]int
		json.NewDecoder(r.Body).Decode(&body)

		writeJSON(w, http.StatusOK, service.FlipResult{
			Accepted: true,
			Outcome:  engine.OutcomeMatch,
			CardID:   body["card_id"],
			Value:    "🍎",
			Message:  "It's a match!",
			Events: []service.GameEvent{
				{Type: "flip", Message: "Flipped card 3"},
				{Type: "match", Message: "Cards 1 and 3 match"},
			},
			GameState: &engine.GameState{
				Cards: []engine.Card{
					{ID: 0},
					{ID: 1, Value: "🍎", IsFlipped: true, IsMatched: true},
					{ID: 2},
					{ID: 3, Value: "🍎", IsFlipped: true, IsMatched: true},
				},
				MatchedPairCount: 1,
				TotalPairs:       2,
				MoveCount:        1,
				Started:          true,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	t.Run("missing card id", func(t *testing.T) {
		result, err := client.handleFlipCard(context.Background(), callRequest("flip_card", map[string]interface{}{
			"session_id": "ab12",
		}))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("Expected tool error for missing card_id")
		}
	})

	t.Run("match", func(t *testing.T) {
		result, err := client.handleFlipCard(context.Background(), callRequest("flip_card", map[string]interface{}{
			"session_id": "ab12",
			"card_id":    float64(3),
		}))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		text := resultText(t, result)
		for _, want := range []string{"Flipped card 3: 🍎 (match)", "Cards 1 and 3 match", "Pairs: 1/2", "[ 1:🍎]"} {
			if !strings.Contains(text, want) {
				t.Errorf("Expected %q in result, got: %s", want, text)
			}
		}
		if strings.Contains(text, "Flipped card 3\n") {
			t.Errorf("Expected flip events to be omitted, got: %s", text)
		}
	})
}

func TestClient_flipHistoryQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("page") != "2" || query.Get("limit") != "5" || query.Get("order") != "desc" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, service.HistoryResponse{
			Flips: []engine.FlipHistoryEntry{
				{CardID: 4, Value: "B", Outcome: engine.OutcomeMismatch, MoveNumber: 3},
			},
			TotalFlips: 6,
			Page:       2,
			PageSize:   5,
			TotalPages: 2,
		})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleFlipHistory(context.Background(), callRequest("flip_history", map[string]interface{}{
		"session_id": "ab12",
		"page":       float64(2),
		"limit":      float64(5),
		"order":      "desc",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Page 2/2") || !strings.Contains(text, "Move 3: card 4 = B (mismatch)") {
		t.Errorf("Unexpected history output: %s", text)
	}
}

func TestClient_bestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(userHeader) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
			return
		}
		records := []scores.Record{
			{Score: 740, RecordedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
			{Score: 900, RecordedAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)},
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":  len(records),
			"best":   scores.Best(records),
			"scores": records,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleBestScore(context.Background(), callRequest("best_score", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error without user_id")
	}

	result, err = client.handleBestScore(context.Background(), callRequest("best_score", map[string]interface{}{"user_id": "u1"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Best score: 900") || !strings.Contains(text, "1. 740 (2024-03-01 09:00)") {
		t.Errorf("Unexpected score output: %s", text)
	}
}

func TestFormatGameState(t *testing.T) {
	state := &engine.GameState{
		Cards: []engine.Card{
			{ID: 0, Value: "A", IsFlipped: true},
			{ID: 1},
			{ID: 2, Value: "B", IsFlipped: true, IsMatched: true},
			{ID: 3, Value: "B", IsFlipped: true, IsMatched: true},
		},
		MatchedPairCount: 1,
		TotalPairs:       2,
		MoveCount:        3,
		ElapsedSeconds:   12,
		Started:          true,
		Message:          "It's a match!",
	}

	result := formatGameState(state)
	for _, want := range []string{
		"Pairs: 1/2 | Moves: 3 | Time: 12s",
		"Status: in progress",
		"It's a match!",
		"  0:A ",
		"#1",
		"[ 2:B]",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in formatted output, got: %s", want, result)
		}
	}

	if got := formatGameState(nil); got != "Game state: unavailable" {
		t.Errorf("Unexpected nil state output: %s", got)
	}

	state.Completed = true
	state.Score = 920
	if !strings.Contains(formatGameState(state), "COMPLETED | Score: 920") {
		t.Error("Expected completed status")
	}
}

func TestBoardColumns(t *testing.T) {
	tests := map[int]int{0: 2, 4: 2, 8: 3, 16: 4, 24: 5, 64: 8}
	for cards, want := range tests {
		if got := boardColumns(cards); got != want {
			t.Errorf("boardColumns(%d) = %d, want %d", cards, got, want)
		}
	}
}

func TestGameInstructions(t *testing.T) {
	result, err := NewClient("http://localhost").handleGameInstructions(context.Background(), callRequest("game_instructions", nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "score = max(1, 1000 - 10 × moves - 2 × seconds)") {
		t.Errorf("Expected scoring formula, got: %s", text)
	}
	if !strings.Contains(text, "best reachable score is 920") {
		t.Errorf("Expected perfect score, got: %s", text)
	}
}

// TestClient_EndToEnd drives the tools against the real REST server
func TestClient_EndToEnd(t *testing.T) {
	configs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	sessions := session.NewManager()
	defer sessions.CloseAll()

	svc := service.NewGameService(sessions, configs,
		service.WithEngineOptions(engine.WithRandom(engine.NewRandomSource(1))))
	server := httptest.NewServer(api.NewServer(svc, nil, nil, nil).Handler())
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	created, err := client.handleCreateSession(ctx, callRequest("create_session", map[string]interface{}{}))
	if err != nil || created.IsError {
		t.Fatalf("create_session failed: %v %s", err, resultText(t, created))
	}

	list := sessions.List()
	if len(list) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(list))
	}
	sessionID := list[0].ID

	flipped, err := client.handleFlipCard(ctx, callRequest("flip_card", map[string]interface{}{
		"session_id": sessionID,
		"card_id":    float64(0),
	}))
	if err != nil || flipped.IsError {
		t.Fatalf("flip_card failed: %v %s", err, resultText(t, flipped))
	}
	if text := resultText(t, flipped); !strings.Contains(text, "Flipped card 0") {
		t.Errorf("Unexpected flip output: %s", text)
	}

	history, err := client.handleFlipHistory(ctx, callRequest("flip_history", map[string]interface{}{"session_id": sessionID}))
	if err != nil || history.IsError {
		t.Fatalf("flip_history failed: %v", err)
	}
	if text := resultText(t, history); !strings.Contains(text, "Total: 1") {
		t.Errorf("Unexpected history output: %s", text)
	}

	missing, err := client.handleGameState(ctx, callRequest("game_state", map[string]interface{}{"session_id": "ffff"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !missing.IsError {
		t.Error("Expected tool error for unknown session")
	}

	listed, err := client.handleListConfigs(ctx, callRequest("list_configs", nil))
	if err != nil || listed.IsError {
		t.Fatalf("list_configs failed: %v", err)
	}
	if text := resultText(t, listed); !strings.Contains(text, "config_id: classic") {
		t.Errorf("Expected builtin classic preset, got: %s", text)
	}
}

func TestToolsRegistered(t *testing.T) {
	client := NewClient("http://localhost")

	message := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	response := client.GetMCPServer().HandleMessage(context.Background(), message)

	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("Failed to marshal response: %v", err)
	}

	for _, name := range []string{
		"create_session", "get_session", "list_sessions", "game_state", "flip_card",
		"reset_game", "flip_history", "list_configs", "game_instructions", "best_score",
	} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("Expected tool %s to be registered", name)
		}
	}
}
