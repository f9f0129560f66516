package service

import (
	"context"
	"time"

	"github.com/wricardo/moodjournal/game/engine"
	"github.com/wricardo/moodjournal/game/scores"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName, userID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Flip(ctx context.Context, sessionID string, cardID int) (*FlipResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetFlipHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Scores
	BestScore(ctx context.Context, userID string) (int, error)
	ListScores(ctx context.Context, userID string) ([]scores.Record, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig, opts ...engine.Option) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// ScoreStore records completed games
type ScoreStore interface {
	engine.ScoreKeeper
	GameScores(ctx context.Context, userID string) ([]scores.Record, error)
}

// StateListener receives the public state of a session after every change
type StateListener func(sessionID string, state *engine.GameState)

// Session represents an active game session
type Session struct {
	ID             string
	UserID         string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Snapshot returns a copy of the session that shares its engine
func (s *Session) Snapshot() *Session {
	c := *s
	return &c
}
