package engine

import "time"

const (
	// Validation constants
	MinPairs             = 2
	MaxPairs             = 32
	DefaultPairs         = 8
	DefaultMismatchDelay = time.Second
	MaxMismatchDelay     = 10 * time.Second
	TickInterval         = time.Second
	WebSocketBufferSize  = 256
)

// Scoring constants
const (
	MaxScore      = 1000
	MovePenalty   = 10
	SecondPenalty = 2
	MinScore      = 1
)

// Card is a single face of the deck. Two cards share each value.
type Card struct {
	ID        int    `json:"id"`
	Value     string `json:"value,omitempty"`
	IsFlipped bool   `json:"is_flipped"`
	IsMatched bool   `json:"is_matched"`
}

// FlipOutcome describes what a flip led to
type FlipOutcome string

const (
	// OutcomeIgnored means the flip was rejected by a guard and changed nothing
	OutcomeIgnored  FlipOutcome = "ignored"
	OutcomeRevealed FlipOutcome = "revealed"
	OutcomeMatch    FlipOutcome = "match"
	OutcomeMismatch FlipOutcome = "mismatch"
	OutcomeComplete FlipOutcome = "complete"
)

// GameConfig defines a deck preset loaded from JSON or YAML
type GameConfig struct {
	Name            string         `json:"name" yaml:"name"`
	Description     string         `json:"description" yaml:"description"`
	Pairs           int            `json:"pairs" yaml:"pairs"`
	Symbols         []string       `json:"symbols" yaml:"symbols"`
	MismatchDelayMS int            `json:"mismatch_delay_ms" yaml:"mismatch_delay_ms"`
	Messages        ConfigMessages `json:"messages" yaml:"messages"`
}

// ConfigMessages are the status lines shown to the player.
// Completed must contain a %d verb for the final score.
type ConfigMessages struct {
	Welcome   string `json:"welcome" yaml:"welcome"`
	Match     string `json:"match" yaml:"match"`
	Mismatch  string `json:"mismatch" yaml:"mismatch"`
	Completed string `json:"completed" yaml:"completed"`
}

// GameState is a snapshot of one deal
type GameState struct {
	Cards            []Card `json:"cards"`
	FlippedIDs       []int  `json:"flipped_ids"`
	MatchedPairCount int    `json:"matched_pair_count"`
	TotalPairs       int    `json:"total_pairs"`
	MoveCount        int    `json:"move_count"`
	ElapsedSeconds   int    `json:"elapsed_seconds"`
	Started          bool   `json:"started"`
	Completed        bool   `json:"completed"`

	// Score is 0 until the game is completed
	Score      int    `json:"score"`
	BestScore  int    `json:"best_score"`
	Message    string `json:"message"`
	ConfigName string `json:"config_name"`
	UserID     string `json:"user_id,omitempty"`

	// ResolvePending is true while a mismatched pair waits to be hidden
	ResolvePending bool `json:"resolve_pending"`
}

// FlipHistoryEntry records an accepted flip
type FlipHistoryEntry struct {
	CardID     int         `json:"card_id"`
	Value      string      `json:"value"`
	Outcome    FlipOutcome `json:"outcome"`
	MoveNumber int         `json:"move_number"`
	Timestamp  int64       `json:"timestamp"`
}

// Masked returns a copy of the state in which the values of face-down cards are hidden
func (s *GameState) Masked() *GameState {
	out := *s
	out.Cards = make([]Card, len(s.Cards))
	for i, c := range s.Cards {
		if !c.IsFlipped && !c.IsMatched {
			c.Value = ""
		}
		out.Cards[i] = c
	}
	out.FlippedIDs = append([]int{}, s.FlippedIDs...)
	return &out
}

// RemainingPairs returns how many pairs are still unmatched
func (s *GameState) RemainingPairs() int {
	return s.TotalPairs - s.MatchedPairCount
}
