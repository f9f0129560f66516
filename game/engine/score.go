package engine

import "context"

// ScoreKeeper persists completed games per user
type ScoreKeeper interface {
	BestScore(ctx context.Context, userID string) (int, error)
	SaveGameScore(ctx context.Context, userID string, score int) error
}

// CalculateScore returns max(1, 1000 - 10*moves - 2*seconds)
func CalculateScore(moves, seconds int) int {
	score := MaxScore - MovePenalty*moves - SecondPenalty*seconds
	if score < MinScore {
		return MinScore
	}
	return score
}

// PerfectScore is the best achievable score for a deck of pairs, finished in
// zero seconds with one move per pair
func PerfectScore(pairs int) int {
	return CalculateScore(pairs, 0)
}
