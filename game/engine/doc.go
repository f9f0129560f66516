// Package engine provides the core logic of the memory matching game.
//
// The engine package implements the game mechanics including:
//   - Dealing a shuffled deck of symbol pairs
//   - Flip guards, pair resolution and the mismatch delay
//   - The elapsed-seconds timer and completion scoring
//   - Best score tracking through a ScoreKeeper port
//   - Preset loading and validation (JSON or YAML)
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState is a snapshot of one deal, while
// GameConfig defines the deck preset.
//
// Usage:
//
//	config, err := engine.LoadConfigFromFile("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config,
//		engine.WithScoreKeeper(scoreStore),
//		engine.WithUserID(userID),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer gameEngine.Close()
//
//	outcome := gameEngine.Flip(3)
//	state := gameEngine.State()
//
// Game Rules:
//
// The deck holds two cards per symbol, face down. The player reveals two
// cards at a time; an equal pair stays face-up as matched, a different pair
// is hidden again after a short delay during which further flips are ignored.
// Every pair of flips counts as one move. The timer starts on the first flip
// and stops when the last pair is matched. The final score is
// max(1, 1000 - 10*moves - 2*seconds).
//
// Concurrency:
//
// The timer ticker and the mismatch delay run as scheduled tasks on an
// injectable clockwork.Clock. Elapsed seconds are measured from the first
// flip on every tick, so a slow tick never makes the timer drift. Tasks belong to a deal generation; Reset and
// Close cancel them so that a stale callback never touches a newer or
// discarded deal. All methods are safe for concurrent use.
package engine
