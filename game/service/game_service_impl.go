package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wricardo/moodjournal/game/engine"
	"github.com/wricardo/moodjournal/game/scores"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrScoresDisabled  = errors.New("score storage is not configured")
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithScoreStore enables score persistence for games with a known user
func WithScoreStore(store ScoreStore) Option {
	return func(s *gameServiceImpl) { s.scores = store }
}

// WithStateListener registers a listener for state changes of every session
func WithStateListener(listener StateListener) Option {
	return func(s *gameServiceImpl) { s.listener = listener }
}

// WithEngineOptions adds options applied to every new engine
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *gameServiceImpl) { s.engineOpts = append(s.engineOpts, opts...) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = logger }
}

// WithClock sets the clock used for event timestamps
func WithClock(clock clockwork.Clock) Option {
	return func(s *gameServiceImpl) { s.clock = clock }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions   SessionManager
	configs    ConfigManager
	scores     ScoreStore
	listener   StateListener
	engineOpts []engine.Option
	logger     *zap.Logger
	clock      clockwork.Clock
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session. An empty userID plays anonymously.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName, userID string) (*SessionInfo, error) {
	// Load configuration
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	opts := append([]engine.Option{}, s.engineOpts...)
	if userID != "" {
		opts = append(opts, engine.WithUserID(userID))
		if s.scores != nil {
			opts = append(opts, engine.WithScoreKeeper(s.scores))
		}
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.listener != nil {
		id, listener := session.ID, s.listener
		session.Engine.OnChange(func(state *engine.GameState) {
			listener(id, state.Masked())
		})
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("config", configID),
		zap.Bool("anonymous", userID == ""))

	return s.sessionInfo(session, configID), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	return s.sessionInfo(session, s.getConfigID(session.Config.Name)), nil
}

// ListSessions returns all active sessions, oldest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, s.getConfigID(sess.Config.Name)))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return sessionNotFound(err)
	}
	s.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Flip reveals a card of a session. Ignored flips are not errors.
func (s *gameServiceImpl) Flip(ctx context.Context, sessionID string, cardID int) (*FlipResult, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	outcome := sess.Engine.Flip(cardID)
	state := sess.Engine.State()

	result := &FlipResult{
		Accepted:  outcome != engine.OutcomeIgnored,
		Outcome:   outcome,
		CardID:    cardID,
		GameState: state.Masked(),
		Message:   state.Message,
	}
	if result.Accepted {
		result.Value = state.Cards[cardID].Value
		result.Events = s.flipEvents(sess.Engine, outcome, state)
	} else {
		result.Message = "Flip ignored"
	}

	s.logger.Info("flip",
		zap.String("session_id", sessionID),
		zap.Int("card_id", cardID),
		zap.String("outcome", string(outcome)),
		zap.Int("moves", state.MoveCount),
		zap.Int("pairs", state.MatchedPairCount),
		zap.Int("seconds", state.ElapsedSeconds))

	return result, nil
}

// Reset deals a new hand for a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.logger.Info("reset", zap.String("session_id", sessionID))
	return state.Masked(), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.State().Masked(), nil
}

// GetFlipHistory returns paginated flip history of the current deal
func (s *gameServiceImpl) GetFlipHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.FlipHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	flips := []engine.FlipHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			flips = append(flips, history[i])
		}
	} else if start < total {
		flips = history[start:end]
	}

	return &HistoryResponse{
		Flips:       flips,
		TotalFlips:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// BestScore returns the best recorded score of a user
func (s *gameServiceImpl) BestScore(ctx context.Context, userID string) (int, error) {
	if s.scores == nil {
		return 0, ErrScoresDisabled
	}
	return s.scores.BestScore(ctx, userID)
}

// ListScores returns every recorded game of a user
func (s *gameServiceImpl) ListScores(ctx context.Context, userID string) ([]scores.Record, error) {
	if s.scores == nil {
		return nil, ErrScoresDisabled
	}
	return s.scores.GameScores(ctx, userID)
}

// touch refreshes the access time of a session and returns it
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		return nil, sessionNotFound(err)
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionNotFound(err)
	}
	return sess, nil
}

// sessionNotFound makes sure a lookup failure matches ErrSessionNotFound
func sessionNotFound(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		UserID:         sess.UserID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.State().Masked(),
		GameConfig:     sess.Config,
	}
}

// flipEvents describes an accepted flip
func (s *gameServiceImpl) flipEvents(eng *engine.GameEngine, outcome engine.FlipOutcome, state *engine.GameState) []GameEvent {
	now := s.clock.Now()
	history := eng.FlipHistory()
	last := history[len(history)-1]

	events := []GameEvent{{
		Type:      "flip",
		Message:   fmt.Sprintf("Card %d shows %s", last.CardID, last.Value),
		Timestamp: now,
		CardIDs:   []int{last.CardID},
	}}

	var pair []int
	if len(history) >= 2 {
		pair = []int{history[len(history)-2].CardID, last.CardID}
	}

	switch outcome {
	case engine.OutcomeMatch:
		events = append(events, GameEvent{Type: "match", Message: state.Message, Timestamp: now, CardIDs: pair})
	case engine.OutcomeMismatch:
		events = append(events, GameEvent{Type: "mismatch", Message: state.Message, Timestamp: now, CardIDs: pair})
	case engine.OutcomeComplete:
		events = append(events,
			GameEvent{Type: "match", Message: eng.Config().Messages.Match, Timestamp: now, CardIDs: pair},
			GameEvent{Type: "complete", Message: state.Message, Timestamp: now, Score: state.Score},
		)
	}

	return events
}
