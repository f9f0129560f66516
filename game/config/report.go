package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/moodjournal/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Notes holds informational lines; otherwise Errors lists
// what is wrong.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

// ValidateFile loads and validates a single preset file
func ValidateFile(path string) ValidationResult {
	result := ValidationResult{File: filepath.Base(path), Valid: true}

	if !engine.IsConfigFile(path) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Unsupported extension %q", filepath.Ext(path)))
		return result
	}

	config, err := engine.LoadConfigFromFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	a := Analyze(config)
	result.Notes = append(result.Notes,
		fmt.Sprintf("✓ %d pairs (%d cards) from a pool of %d symbols", a.Pairs, a.Cards, a.SymbolPool),
		fmt.Sprintf("✓ Perfect game: %d moves, score bound %d", a.PerfectMoves, a.ScoreBound),
	)
	if a.SymbolPool == a.Pairs {
		result.Notes = append(result.Notes, "⚠️  Every deal uses the same symbols")
	}
	return result
}

// ValidateDir validates every preset file in dir, sorted by file name
func ValidateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var results []ValidationResult
	for _, entry := range entries {
		if entry.IsDir() || !engine.IsConfigFile(entry.Name()) {
			continue
		}
		results = append(results, ValidateFile(filepath.Join(dir, entry.Name())))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}

// Analysis summarizes how hard a preset is
type Analysis struct {
	Name       string
	Pairs      int
	Cards      int
	SymbolPool int
	// PerfectMoves is the fewest moves that can finish a deal: one per pair
	PerfectMoves int
	// ScoreBound is the best score reachable, a perfect game in zero seconds
	ScoreBound int
	// Deals is the number of distinct symbol sets a deal can draw, capped at MaxInt
	Deals           int
	MismatchDelayMS int
}

// Analyze computes the statistics of a preset
func Analyze(config *engine.GameConfig) Analysis {
	return Analysis{
		Name:            config.Name,
		Pairs:           config.Pairs,
		Cards:           2 * config.Pairs,
		SymbolPool:      len(config.Symbols),
		PerfectMoves:    config.Pairs,
		ScoreBound:      engine.PerfectScore(config.Pairs),
		Deals:           binomial(len(config.Symbols), config.Pairs),
		MismatchDelayMS: int(config.MismatchDelay().Milliseconds()),
	}
}

// binomial returns n choose k, saturating instead of overflowing
func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	const maxInt = int(^uint(0) >> 1)
	result := 1
	for i := 1; i <= k; i++ {
		next := n - k + i
		if result > maxInt/next {
			return maxInt
		}
		result = result * next / i
	}
	return result
}
