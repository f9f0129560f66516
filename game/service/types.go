package service

import (
	"time"

	"github.com/wricardo/moodjournal/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	UserID         string             `json:"user_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// FlipResult contains the result of a flip
type FlipResult struct {
	Accepted  bool               `json:"accepted"`
	Outcome   engine.FlipOutcome `json:"outcome"`
	CardID    int                `json:"card_id"`
	Value     string             `json:"value,omitempty"`
	GameState *engine.GameState  `json:"game_state"`
	Message   string             `json:"message"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"` // "flip", "match", "mismatch", "complete", "reset"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	CardIDs   []int     `json:"card_ids,omitempty"`
	Score     int       `json:"score,omitempty"`
}

// HistoryOptions configures flip history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated flip history
type HistoryResponse struct {
	Flips       []engine.FlipHistoryEntry `json:"flips"`
	TotalFlips  int                       `json:"total_flips"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename        string `json:"filename"`
	ConfigID        string `json:"config_id"` // The identifier to use for session creation
	Name            string `json:"name"`      // Display name
	Description     string `json:"description"`
	Pairs           int    `json:"pairs"`
	SymbolPool      int    `json:"symbol_pool"`
	MismatchDelayMS int    `json:"mismatch_delay_ms"`
}
