package board

import (
	"context"
	"fmt"
	"slices"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/errors"
)

// SourceImport marks cards restored from a backup file.
const SourceImport = "import"

// PrepareImport checks a previously exported card and returns it in the
// form ImportCards stores: canonical subject and type, no highlight.
func PrepareImport(c card.Card) (card.Card, error) {
	if _, err := ulid.ParseStrict(c.ID); err != nil {
		return card.Card{}, errors.NewInvalidRequest(fmt.Sprintf("invalid card id %q", c.ID))
	}
	subj, ok := card.ParseSubject(c.Subject)
	if !ok {
		return card.Card{}, errors.NewUnknownSubject(c.Subject)
	}
	c.Subject = subj
	if t, ok := card.ParseType(string(c.Type)); ok {
		c.Type = t
	}

	in := card.Input{Title: c.Title, Type: c.Type, DueDate: c.DueDate, Subject: c.Subject}
	if err := in.Validate(); err != nil {
		return card.Card{}, errors.NewInvalidRequest(err.Error())
	}

	c.IsNewCard = false
	return c.Clone(), nil
}

// HasCard reports whether a card with id is on the board.
func (s *Store) HasCard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasCardLocked(id)
}

// ImportCards appends previously exported cards, keeping their IDs. The
// batch is all-or-nothing: an invalid card or an ID that is already on the
// board (or repeated in the batch) rejects every card. Imported cards are
// not highlighted and the column order is left alone.
func (s *Store) ImportCards(ctx context.Context, cards []card.Card) error {
	prepared := make([]card.Card, 0, len(cards))
	seen := make(map[string]bool, len(cards))
	for i, c := range cards {
		p, err := PrepareImport(c)
		if err != nil {
			return fmt.Errorf("cards[%d]: %w", i, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("cards[%d]: %w", i, errors.NewInvalidRequest("duplicate card id "+p.ID))
		}
		seen[p.ID] = true
		prepared = append(prepared, p)
	}
	if len(prepared) == 0 {
		return nil
	}

	s.mu.Lock()
	for i, c := range prepared {
		if s.hasCardLocked(c.ID) {
			s.mu.Unlock()
			return fmt.Errorf("cards[%d]: %w", i, errors.NewInvalidRequest("card already on the board: "+c.ID))
		}
	}
	for _, c := range prepared {
		s.columns[c.Subject] = append(s.columns[c.Subject], c)
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Infow("cards imported", "count", len(prepared))
	if s.onCardAdded != nil {
		for _, c := range prepared {
			s.onCardAdded(c.Clone(), SourceImport)
		}
	}
	return nil
}

// Cards returns every card in board order.
func (s *Store) Cards() []card.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clip(s.allLocked())
}
