package board

import (
	"context"
	"crypto/rand"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/errors"
)

// Card sources, used for metrics and logs.
const (
	SourceManual = "manual"
	SourceChat   = "chat"
)

// AddCardInput contains parameters for the AddCard operation.
type AddCardInput struct {
	Card   card.Input
	Source string // default: SourceManual
}

// AddCard validates the input, appends a new card to its subject's column,
// moves that column to the front, and highlights the card until the
// highlight delay passes or the user dismisses it.
func (s *Store) AddCard(ctx context.Context, input AddCardInput) (*card.Card, error) {
	in := input.Card
	if subj, ok := card.ParseSubject(in.Subject); ok {
		in.Subject = subj
	} else if in.Subject != "" {
		return nil, errors.NewUnknownSubject(in.Subject)
	}
	if t, ok := card.ParseType(string(in.Type)); ok {
		in.Type = t
	}
	if err := in.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	source := input.Source
	if source == "" {
		source = SourceManual
	}

	id, err := generateULID(s.now())
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	c := card.Card{
		ID:        id,
		Title:     in.Title,
		Type:      in.Type,
		DueDate:   in.DueDate,
		Subject:   in.Subject,
		Tags:      slices.Clone(in.Tags),
		Score:     in.Score,
		IsDue:     in.IsDue,
		IsNewCard: true,
	}

	s.mu.Lock()
	s.columns[c.Subject] = append(s.columns[c.Subject], c)
	s.moveToFrontLocked(c.Subject)
	s.highlighted = c.ID
	s.scheduleExpiryLocked(c.ID)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Infow("card added", "id", c.ID, "subject", c.Subject, "type", c.Type, "source", source)
	if s.onCardAdded != nil {
		s.onCardAdded(c.Clone(), source)
	}
	out := c.Clone()
	return &out, nil
}

// moveToFrontLocked puts subject at index 0 of the column order,
// preserving the relative order of the others.
func (s *Store) moveToFrontLocked(subject string) {
	idx := slices.Index(s.order, subject)
	if idx <= 0 {
		return
	}
	s.order = slices.Delete(s.order, idx, idx+1)
	s.order = slices.Insert(s.order, 0, subject)
}

// scheduleExpiryLocked clears the card's highlight after the delay.
func (s *Store) scheduleExpiryLocked(id string) {
	if s.closed {
		return
	}
	s.timers[id] = time.AfterFunc(s.highlightDelay, func() {
		s.expireHighlight(id)
	})
}

// expireHighlight is the timer callback for one card.
func (s *Store) expireHighlight(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
	if s.clearCardLocked(id) {
		s.persistLocked(context.Background())
	}
}

// clearCardLocked unsets IsNewCard on one card and drops it as the
// highlighted card. Reports whether anything changed.
func (s *Store) clearCardLocked(id string) bool {
	changed := false
	if s.highlighted == id {
		s.highlighted = ""
		changed = true
	}
	for subj, cards := range s.columns {
		for i := range cards {
			if cards[i].ID == id && cards[i].IsNewCard {
				s.columns[subj][i].IsNewCard = false
				changed = true
			}
		}
	}
	return changed
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// generateULID returns a new ULID. The shared monotonic entropy keeps ids
// unique and sortable even when generated within the same millisecond.
func generateULID(now time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
