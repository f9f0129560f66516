// Package autoplay plays the memory game without a human.
//
// The Memory strategy sees only masked game states, like a player at the
// board: it learns a symbol once the card has been face-up and never forgets
// it. With that it always completes a known pair and otherwise explores the
// lowest unseen card, so a deal of P pairs takes between P and 2P moves.
//
// Games run against a fake clock. Time passes only while a mismatched pair is
// showing, so a game's elapsed seconds are the sum of its mismatch delays and
// runs are reproducible from their seeds.
//
// Usage:
//
//	runner, err := autoplay.NewRunner(engine.DefaultConfig(), autoplay.WithSeed(7))
//	results, err := runner.Run(ctx, 100)
//	stats := autoplay.Summarize(engine.DefaultConfig(), results)
package autoplay
