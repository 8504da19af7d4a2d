package board

import (
	"slices"

	"github.com/hpungsan/workboard/internal/card"
)

// Board is a point-in-time copy of the store for display.
type Board struct {
	Order       []string               `json:"order"`
	Columns     map[string][]card.Card `json:"columns"`
	Highlighted string                 `json:"highlighted,omitempty"`
}

// Column returns the cards in one column.
func (b Board) Column(subject string) []card.Card {
	return b.Columns[subject]
}

// Count returns the total number of cards on the board.
func (b Board) Count() int {
	n := 0
	for _, cards := range b.Columns {
		n += len(cards)
	}
	return n
}

// Snapshot returns a deep copy of the board.
func (s *Store) Snapshot() Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := Board{
		Order:       slices.Clone(s.order),
		Columns:     make(map[string][]card.Card, len(s.columns)),
		Highlighted: s.highlighted,
	}
	for subj, cards := range s.columns {
		cp := make([]card.Card, len(cards))
		for i, c := range cards {
			cp[i] = c.Clone()
		}
		b.Columns[subj] = cp
	}
	return b
}
