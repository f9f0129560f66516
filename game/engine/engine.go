package engine

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	State() *GameState
	Reset() *GameState
	IsCompleted() bool
	BestScore() int

	// Player input
	Flip(cardID int) FlipOutcome

	// Configuration
	Config() *GameConfig

	// History
	FlipHistory() []FlipHistoryEntry

	// Listeners and teardown
	OnChange(fn func(*GameState))
	Close()
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithRandom sets the source used to deal cards
func WithRandom(rnd RandomSource) Option {
	return func(e *GameEngine) { e.rnd = rnd }
}

// WithClock sets the clock driving the timer and the mismatch delay
func WithClock(clock clockwork.Clock) Option {
	return func(e *GameEngine) { e.clock = clock }
}

// WithScoreKeeper sets where completed games are recorded
func WithScoreKeeper(keeper ScoreKeeper) Option {
	return func(e *GameEngine) { e.scores = keeper }
}

// WithUserID sets the player. Without one, scores are computed but not saved.
func WithUserID(userID string) Option {
	return func(e *GameEngine) { e.userID = userID }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *GameEngine) { e.logger = logger }
}

// WithOnChange registers a listener called with a snapshot after every change
func WithOnChange(fn func(*GameState)) Option {
	return func(e *GameEngine) { e.onChange = fn }
}

// GameEngine implements the Engine interface
type GameEngine struct {
	mu sync.Mutex

	config   *GameConfig
	rnd      RandomSource
	clock    clockwork.Clock
	scores   ScoreKeeper
	userID   string
	logger   *zap.Logger
	onChange func(*GameState)

	state     *GameState
	history   []FlipHistoryEntry
	bestScore int

	// generation changes on every deal and on Close; scheduled tasks of an
	// older generation must not touch the state
	generation uint64
	tasks      *taskSet
	tickID     int
	resolveID  int
	startedAt  time.Time
	closed     bool
}

// NewEngine creates a new game engine with the provided configuration and deals
// the first hand. A nil config uses DefaultConfig.
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: config,
		rnd:    globalSource{},
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tasks = newTaskSet(e.clock)

	if e.scores != nil && e.userID != "" {
		best, err := e.scores.BestScore(context.Background(), e.userID)
		if err != nil {
			e.logger.Warn("failed to load best score", zap.String("user_id", e.userID), zap.Error(err))
		}
		e.bestScore = best
	}

	e.deal()
	return e, nil
}

// deal starts a fresh hand. Caller holds the lock (or owns e exclusively).
func (e *GameEngine) deal() {
	e.generation++
	e.tasks.stopAll()
	e.tickID, e.resolveID = 0, 0

	e.state = &GameState{
		Cards:      Deal(e.rnd, e.config),
		FlippedIDs: []int{},
		TotalPairs: e.config.Pairs,
		BestScore:  e.bestScore,
		Message:    e.config.Messages.Welcome,
		ConfigName: e.config.Name,
		UserID:     e.userID,
	}
	e.history = []FlipHistoryEntry{}
}

// State returns a snapshot of the current game state
func (e *GameEngine) State() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// IsCompleted returns whether every pair has been matched
func (e *GameEngine) IsCompleted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Completed
}

// BestScore returns the best score known for the player
func (e *GameEngine) BestScore() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bestScore
}

// Config returns the game configuration
func (e *GameEngine) Config() *GameConfig {
	return e.config
}

// UserID returns the player id, empty for anonymous games
func (e *GameEngine) UserID() string {
	return e.userID
}

// FlipHistory returns the accepted flips of the current deal
func (e *GameEngine) FlipHistory() []FlipHistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]FlipHistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// OnChange replaces the change listener
func (e *GameEngine) OnChange(fn func(*GameState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Reset deals a new hand, discarding all in-progress state and cancelling
// every pending task of the old one
func (e *GameEngine) Reset() *GameState {
	e.mu.Lock()
	if e.closed {
		snap := e.snapshot()
		e.mu.Unlock()
		return snap
	}
	e.deal()
	snap, notify := e.snapshot(), e.onChange
	e.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
	return snap
}

// Close stops all scheduled tasks. Flips and scheduled callbacks are ignored afterwards.
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.generation++
	e.tasks.stopAll()
}

// Flip reveals a card. Flips of flipped or matched cards, flips while two
// cards are face-up, unknown ids and flips after completion are ignored.
func (e *GameEngine) Flip(cardID int) FlipOutcome {
	e.mu.Lock()

	s := e.state
	if e.closed || s.Completed || cardID < 0 || cardID >= len(s.Cards) || len(s.FlippedIDs) >= 2 {
		e.mu.Unlock()
		return OutcomeIgnored
	}
	card := &s.Cards[cardID]
	if card.IsFlipped || card.IsMatched {
		e.mu.Unlock()
		return OutcomeIgnored
	}

	if !s.Started {
		s.Started = true
		e.startedAt = e.clock.Now()
		e.scheduleTick()
	}

	card.IsFlipped = true
	s.FlippedIDs = append(s.FlippedIDs, cardID)

	outcome := OutcomeRevealed
	saveScore := false
	if len(s.FlippedIDs) == 2 {
		outcome, saveScore = e.resolve()
	}

	e.history = append(e.history, FlipHistoryEntry{
		CardID:     cardID,
		Value:      card.Value,
		Outcome:    outcome,
		MoveNumber: s.MoveCount + boolToInt(outcome == OutcomeRevealed),
		Timestamp:  e.clock.Now().Unix(),
	})

	snap, notify, userID, score := e.snapshot(), e.onChange, e.userID, s.Score
	e.mu.Unlock()

	if saveScore {
		e.saveScore(userID, score)
	}
	if notify != nil {
		notify(snap)
	}
	return outcome
}

// resolve compares the two face-up cards. Caller holds the lock.
func (e *GameEngine) resolve() (FlipOutcome, bool) {
	s := e.state
	s.MoveCount++

	first, second := &s.Cards[s.FlippedIDs[0]], &s.Cards[s.FlippedIDs[1]]
	if first.Value != second.Value {
		s.Message = e.config.Messages.Mismatch
		s.ResolvePending = true
		e.scheduleResolve()
		return OutcomeMismatch, false
	}

	first.IsMatched, second.IsMatched = true, true
	s.MatchedPairCount++
	s.FlippedIDs = []int{}
	s.Message = e.config.Messages.Match

	if s.MatchedPairCount == s.TotalPairs && s.Started {
		return OutcomeComplete, e.complete()
	}
	return OutcomeMatch, false
}

// complete ends the game and reports whether the score should be saved.
// Caller holds the lock.
func (e *GameEngine) complete() bool {
	s := e.state
	s.Completed = true
	s.Started = false
	e.tasks.stop(e.tickID)
	e.tickID = 0
	s.ElapsedSeconds = e.elapsed()

	s.Score = CalculateScore(s.MoveCount, s.ElapsedSeconds)
	s.Message = e.config.CompletedMessage(s.Score)

	if e.userID == "" {
		return false
	}
	if s.Score > e.bestScore {
		e.bestScore = s.Score
	}
	return e.scores != nil
}

// saveScore records a completed game. Failures are logged and otherwise ignored.
func (e *GameEngine) saveScore(userID string, score int) {
	if err := e.scores.SaveGameScore(context.Background(), userID, score); err != nil {
		e.logger.Warn("failed to save game score",
			zap.String("user_id", userID),
			zap.Int("score", score),
			zap.Error(err))
		return
	}
	e.logger.Debug("game score saved", zap.String("user_id", userID), zap.Int("score", score))
}

// scheduleTick starts the one-second timer of a game. Elapsed time is read
// from the clock so that late or dropped ticks do not drift. Caller holds the lock.
func (e *GameEngine) scheduleTick() {
	gen := e.generation
	e.tickID = e.tasks.every(TickInterval, func(int) {
		e.runTask(gen, func() bool {
			s := e.state
			if !s.Started || s.Completed {
				return false
			}
			elapsed := e.elapsed()
			if elapsed == s.ElapsedSeconds {
				return false
			}
			s.ElapsedSeconds = elapsed
			return true
		})
	})
}

// elapsed returns the whole seconds since the first flip. Caller holds the lock.
func (e *GameEngine) elapsed() int {
	return int(e.clock.Since(e.startedAt) / time.Second)
}

// scheduleResolve arms the hiding of a mismatched pair. Caller holds the lock.
func (e *GameEngine) scheduleResolve() {
	e.resolveID = e.scheduleAfterDelay(e.config.MismatchDelay(), func() bool {
		s := e.state
		for _, id := range s.FlippedIDs {
			s.Cards[id].IsFlipped = false
		}
		s.FlippedIDs = []int{}
		s.ResolvePending = false
		e.resolveID = 0
		return true
	})
}

// scheduleAfterDelay runs task once after d, see runTask
func (e *GameEngine) scheduleAfterDelay(d time.Duration, task func() bool) int {
	gen := e.generation
	return e.tasks.after(d, func(id int) {
		e.runTask(gen, func() bool {
			e.tasks.done(id)
			return task()
		})
	})
}

// runTask runs task under the lock unless the deal of generation gen has been
// replaced or the engine closed. The listener is notified when task reports a change.
func (e *GameEngine) runTask(gen uint64, task func() bool) {
	e.mu.Lock()
	if e.closed || e.generation != gen {
		e.mu.Unlock()
		return
	}
	changed := task()
	snap, notify := e.snapshot(), e.onChange
	e.mu.Unlock()

	if changed && notify != nil {
		notify(snap)
	}
}

// pendingTasks reports how many scheduled tasks are outstanding
func (e *GameEngine) pendingTasks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.len()
}

// snapshot copies the state. Caller holds the lock.
func (e *GameEngine) snapshot() *GameState {
	s := *e.state
	s.Cards = append([]Card(nil), e.state.Cards...)
	s.FlippedIDs = append([]int{}, e.state.FlippedIDs...)
	s.BestScore = e.bestScore
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
