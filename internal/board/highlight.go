package board

import (
	"context"

	"github.com/hpungsan/workboard/internal/errors"
)

// ClearHighlight clears IsNewCard on every card and forgets the highlighted
// card. Pending highlight timers are cancelled.
func (s *Store) ClearHighlight(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.highlighted = ""
	for subj, cards := range s.columns {
		for i := range cards {
			s.columns[subj][i].IsNewCard = false
		}
	}
	s.persistLocked(ctx)
}

// Dismiss clears the highlight of a single card.
func (s *Store) Dismiss(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCardLocked(id) {
		return errors.NewNotFound(id)
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if s.clearCardLocked(id) {
		s.persistLocked(ctx)
	}
	return nil
}

func (s *Store) hasCardLocked(id string) bool {
	for _, cards := range s.columns {
		for _, c := range cards {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}
