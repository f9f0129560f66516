package engine

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the randomness used to deal cards
type RandomSource interface {
	// Intn returns a uniform value in [0, n)
	Intn(n int) int
}

type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a deterministic source for seed
func NewRandomSource(seed uint64) RandomSource {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

type globalSource struct{}

func (globalSource) Intn(n int) int { return rand.IntN(n) }

// Shuffle returns a Fisher-Yates permutation of items. The input is not modified.
func Shuffle[T any](rnd RandomSource, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal picks config.Pairs symbols without repetition, duplicates them and
// shuffles the result. Card ids follow the shuffled order.
func Deal(rnd RandomSource, config *GameConfig) []Card {
	symbols := Shuffle(rnd, config.Symbols)[:config.Pairs]

	values := make([]string, 0, 2*len(symbols))
	values = append(values, symbols...)
	values = append(values, symbols...)
	values = Shuffle(rnd, values)

	cards := make([]Card, len(values))
	for i, v := range values {
		cards[i] = Card{ID: i, Value: v}
	}
	return cards
}
