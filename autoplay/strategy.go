package autoplay

import (
	"sort"

	"github.com/wricardo/moodjournal/game/engine"
)

// Memory is a perfect-memory strategy. It only ever looks at masked states,
// so it knows a card's symbol once the card has been face-up.
type Memory struct {
	seen map[int]string
}

// NewMemory creates a strategy that has seen nothing yet
func NewMemory() *Memory {
	return &Memory{seen: make(map[int]string)}
}

// Reset forgets everything, for a new deal
func (m *Memory) Reset() {
	m.seen = make(map[int]string)
}

// Known returns how many unmatched cards the strategy remembers
func (m *Memory) Known() int {
	return len(m.seen)
}

// Observe records the symbols of face-up cards and forgets matched ones
func (m *Memory) Observe(state *engine.GameState) {
	for _, card := range state.Cards {
		switch {
		case card.IsMatched:
			delete(m.seen, card.ID)
		case card.IsFlipped && card.Value != "":
			m.seen[card.ID] = card.Value
		}
	}
}

// Next picks the card to flip. It completes a known pair when it can and
// otherwise explores the lowest unknown card. It returns -1 when no face-down
// card is left or two cards are already face-up.
func (m *Memory) Next(state *engine.GameState) int {
	switch len(state.FlippedIDs) {
	case 0:
		if id, ok := m.knownPair(state); ok {
			return id
		}
		return m.unknown(state)
	case 1:
		first := state.FlippedIDs[0]
		value := state.Cards[first].Value
		if value == "" {
			value = m.seen[first]
		}
		for _, id := range m.ids() {
			if id != first && m.seen[id] == value && faceDown(state, id) {
				return id
			}
		}
		if id := m.unknown(state); id >= 0 {
			return id
		}
		// Every other card is known, so flip any of them to end the move
		for _, id := range m.ids() {
			if id != first && faceDown(state, id) {
				return id
			}
		}
	}
	return -1
}

// knownPair returns a face-down card whose partner has also been seen
func (m *Memory) knownPair(state *engine.GameState) (int, bool) {
	byValue := make(map[string]int)
	for _, id := range m.ids() {
		if !faceDown(state, id) {
			continue
		}
		value := m.seen[id]
		if _, ok := byValue[value]; ok {
			return byValue[value], true
		}
		byValue[value] = id
	}
	return 0, false
}

// unknown returns the lowest face-down card that has never been seen
func (m *Memory) unknown(state *engine.GameState) int {
	for _, card := range state.Cards {
		if _, ok := m.seen[card.ID]; !ok && faceDown(state, card.ID) {
			return card.ID
		}
	}
	return -1
}

// ids returns the remembered card ids in ascending order
func (m *Memory) ids() []int {
	ids := make([]int, 0, len(m.seen))
	for id := range m.seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func faceDown(state *engine.GameState, id int) bool {
	if id < 0 || id >= len(state.Cards) {
		return false
	}
	card := state.Cards[id]
	return !card.IsFlipped && !card.IsMatched
}
