package autoplay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/moodjournal/game/engine"
)

// ErrStuck is returned when a game cannot be finished within the flip budget
var ErrStuck = errors.New("autoplay made no progress")

// epoch is where every simulated game starts
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Result describes one finished game
type Result struct {
	Seed       uint64 `json:"seed"`
	Flips      int    `json:"flips"`
	Moves      int    `json:"moves"`
	Mismatches int    `json:"mismatches"`
	Seconds    int    `json:"seconds"`
	Score      int    `json:"score"`
}

// Perfect reports whether the game needed one move per pair
func (r Result) Perfect(pairs int) bool {
	return r.Moves == pairs
}

// Stats summarizes a batch of games
type Stats struct {
	Preset       string  `json:"preset"`
	Games        int     `json:"games"`
	MinScore     int     `json:"min_score"`
	MaxScore     int     `json:"max_score"`
	MeanScore    float64 `json:"mean_score"`
	MeanMoves    float64 `json:"mean_moves"`
	MeanSeconds  float64 `json:"mean_seconds"`
	PerfectGames int     `json:"perfect_games"`
	ScoreBound   int     `json:"score_bound"`
}

// Summarize computes the statistics of results played on config
func Summarize(config *engine.GameConfig, results []Result) Stats {
	stats := Stats{
		Preset:     config.Name,
		Games:      len(results),
		ScoreBound: engine.PerfectScore(config.Pairs),
	}
	if len(results) == 0 {
		return stats
	}

	stats.MinScore = math.MaxInt
	var score, moves, seconds int
	for _, r := range results {
		score += r.Score
		moves += r.Moves
		seconds += r.Seconds
		stats.MinScore = min(stats.MinScore, r.Score)
		stats.MaxScore = max(stats.MaxScore, r.Score)
		if r.Perfect(config.Pairs) {
			stats.PerfectGames++
		}
	}

	n := float64(len(results))
	stats.MeanScore = float64(score) / n
	stats.MeanMoves = float64(moves) / n
	stats.MeanSeconds = float64(seconds) / n
	return stats
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithWorkers sets how many games are played at once
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithSeed sets the seed of the first game; game i uses seed+i
func WithSeed(seed uint64) Option {
	return func(r *Runner) { r.seed = seed }
}

// Runner plays games of one preset with the Memory strategy
type Runner struct {
	config  *engine.GameConfig
	workers int
	seed    uint64
	logger  *zap.Logger
}

// NewRunner creates a runner for config
func NewRunner(config *engine.GameConfig, opts ...Option) (*Runner, error) {
	if err := engine.ValidateGameConfig(config); err != nil {
		return nil, err
	}

	r := &Runner{
		config:  config,
		workers: 4,
		seed:    1,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run plays games games and returns their results in seed order
func (r *Runner) Run(ctx context.Context, games int) ([]Result, error) {
	results := make([]Result, games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < games; i++ {
		seed := r.seed + uint64(i)
		g.Go(func() error {
			result, err := r.Play(ctx, seed)
			if err != nil {
				return fmt.Errorf("game with seed %d: %w", seed, err)
			}
			results[i] = result
			r.logger.Debug("game finished",
				zap.Uint64("seed", seed),
				zap.Int("moves", result.Moves),
				zap.Int("seconds", result.Seconds),
				zap.Int("score", result.Score))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Play plays a single deal dealt from seed to completion. Time only passes
// while a mismatched pair is showing.
func (r *Runner) Play(ctx context.Context, seed uint64) (Result, error) {
	changes := make(chan struct{}, 1)
	clock := clockwork.NewFakeClockAt(epoch)

	eng, err := engine.NewEngine(r.config,
		engine.WithClock(clock),
		engine.WithRandom(engine.NewRandomSource(seed)),
		engine.WithOnChange(func(*engine.GameState) {
			select {
			case changes <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return Result{}, err
	}
	defer eng.Close()

	g := &game{
		eng:     eng,
		clock:   clock,
		changes: changes,
		delay:   r.config.MismatchDelay(),
	}
	return g.play(ctx, NewMemory(), seed)
}

// game drives one engine on a fake clock
type game struct {
	eng     *engine.GameEngine
	clock   *clockwork.FakeClock
	changes chan struct{}
	delay   time.Duration
}

func (g *game) play(ctx context.Context, strategy *Memory, seed uint64) (Result, error) {
	result := Result{Seed: seed}
	state := g.eng.State().Masked()
	budget := 4 * len(state.Cards) * len(state.Cards)

	for !state.Completed {
		if result.Flips >= budget {
			return result, ErrStuck
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := strategy.Next(state)
		if id < 0 {
			return result, ErrStuck
		}

		outcome := g.eng.Flip(id)
		if outcome == engine.OutcomeIgnored {
			return result, fmt.Errorf("%w: flip of card %d ignored", ErrStuck, id)
		}
		result.Flips++

		state = g.eng.State().Masked()
		strategy.Observe(state)

		if outcome == engine.OutcomeMismatch {
			result.Mismatches++
			if err := g.waitResolved(ctx); err != nil {
				return result, err
			}
			state = g.eng.State().Masked()
		}
	}

	result.Moves = state.MoveCount
	result.Seconds = state.ElapsedSeconds
	result.Score = state.Score
	return result, nil
}

// waitResolved lets the mismatch delay pass and waits until the pair is hidden
func (g *game) waitResolved(ctx context.Context) error {
	g.clock.Advance(g.delay)
	return g.waitChange(ctx, func(s *engine.GameState) bool { return !s.ResolvePending })
}

func (g *game) waitChange(ctx context.Context, done func(*engine.GameState) bool) error {
	for !done(g.eng.State()) {
		select {
		case <-g.changes:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

