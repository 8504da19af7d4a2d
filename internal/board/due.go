package board

import (
	"cmp"
	"slices"
	"time"

	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/dates"
)

// DueSoonInput contains parameters for the DueSoon operation.
type DueSoonInput struct {
	WindowDays int // default: the store's configured window
}

// DueSoon returns every card due on or before today + WindowDays, including
// overdue ones, earliest first. Ties keep column order, then insertion order.
func (s *Store) DueSoon(input DueSoonInput) []card.Card {
	window := input.WindowDays
	if window <= 0 {
		window = s.dueSoonDays
	}

	s.mu.Lock()
	now := s.now()
	all := s.allLocked()
	s.mu.Unlock()

	out := filterDue(all, now, window)
	slices.SortStableFunc(out, func(a, b card.Card) int {
		return cmp.Compare(dates.DaysBetween(now, a.DueDate), dates.DaysBetween(now, b.DueDate))
	})
	return out
}

// Urgent returns the cards due today or tomorrow, plus overdue ones, in
// board order.
func (s *Store) Urgent() []card.Card {
	s.mu.Lock()
	now := s.now()
	all := s.allLocked()
	s.mu.Unlock()

	return filterDue(all, now, 1)
}

// filterDue keeps cards whose due day is at most window days after now's day.
func filterDue(cards []card.Card, now time.Time, window int) []card.Card {
	out := make([]card.Card, 0, len(cards))
	for _, c := range cards {
		if dates.DaysBetween(now, c.DueDate) <= window {
			out = append(out, c)
		}
	}
	return out
}
