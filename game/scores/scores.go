// Package scores records memory game results per user.
//
// Records are appended to a JSON list stored under "game_scores_<user id>".
// The best score of a user is the maximum over all of their records, or 0
// when the user has never completed a game.
package scores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wricardo/moodjournal/game/storage"
)

var ErrMissingUser = errors.New("user id is required")

const keyPrefix = "game_scores_"

// Record is a single completed game
type Record struct {
	Score      int       `json:"score"`
	RecordedAt time.Time `json:"date"`
}

// Store appends and reads score records through a storage.Store
type Store struct {
	kv    storage.Store
	clock clockwork.Clock
	mu    sync.Mutex
}

// NewStore creates a score store. A nil clock uses the real clock.
func NewStore(kv storage.Store, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{kv: kv, clock: clock}
}

// SaveGameScore appends a record for userID
func (s *Store) SaveGameScore(ctx context.Context, userID string, score int) error {
	if userID == "" {
		return ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	records = append(records, Record{Score: score, RecordedAt: s.clock.Now().UTC()})

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	if err := s.kv.Set(ctx, key(userID), string(data)); err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}
	return nil
}

// GameScores returns all records for userID in the order they were saved
func (s *Store) GameScores(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, userID)
}

// BestScore returns the highest recorded score for userID, or 0
func (s *Store) BestScore(ctx context.Context, userID string) (int, error) {
	records, err := s.GameScores(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Best(records), nil
}

// Best returns the maximum score in records, or 0 for none
func Best(records []Record) int {
	best := 0
	for i, r := range records {
		if i == 0 || r.Score > best {
			best = r.Score
		}
	}
	return best
}

func (s *Store) load(ctx context.Context, userID string) ([]Record, error) {
	raw, err := s.kv.Get(ctx, key(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to parse scores: %w", err)
	}
	return records, nil
}

func key(userID string) string {
	return keyPrefix + userID
}
