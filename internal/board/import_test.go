package board

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/errors"
)

func exported(title, subject string, days int) card.Card {
	return card.Card{
		ID:        ulid.Make().String(),
		Title:     title,
		Type:      card.TypeQuiz,
		Subject:   subject,
		DueDate:   monday.AddDate(0, 0, days),
		IsNewCard: true,
	}
}

func TestImportCards(t *testing.T) {
	p := &memPersister{}
	s := newTestStore(t, p)
	var sources []string
	s.onCardAdded = func(_ card.Card, source string) { sources = append(sources, source) }

	a := exported("Cell Quiz", "ap biology", 2)
	b := exported("Limits", card.SubjectCoreMath, 5)
	require.NoError(t, s.ImportCards(context.Background(), []card.Card{a, b}))

	snap := s.Snapshot()
	assert.Equal(t, card.Subjects, snap.Order, "import must not reorder columns")
	assert.Empty(t, snap.Highlighted)
	require.Len(t, snap.Column(card.SubjectBiology), 1)
	got := snap.Column(card.SubjectBiology)[0]
	assert.Equal(t, a.ID, got.ID)
	assert.False(t, got.IsNewCard)
	assert.True(t, s.HasCard(b.ID))
	assert.Equal(t, []string{SourceImport, SourceImport}, sources)
	assert.Equal(t, 1, p.saves, "one save per batch")
}

func TestImportCards_AllOrNothing(t *testing.T) {
	s := newTestStore(t, nil)
	existing := addCard(t, s, "Essay", card.SubjectAmericanLit, 3)

	good := exported("Cell Quiz", card.SubjectBiology, 2)
	tests := []struct {
		name  string
		batch []card.Card
		code  errors.ErrorCode
	}{
		{name: "unknown subject", batch: []card.Card{good, exported("x", "Chemistry", 1)}, code: errors.ErrUnknownSubject},
		{name: "bad id", batch: []card.Card{good, {ID: "nope", Title: "x", Type: card.TypeQuiz, Subject: card.SubjectCoreMath, DueDate: monday}}, code: errors.ErrInvalidRequest},
		{name: "repeated id", batch: []card.Card{good, good}, code: errors.ErrInvalidRequest},
		{name: "already on board", batch: []card.Card{good, *existing}, code: errors.ErrInvalidRequest},
		{name: "missing title", batch: []card.Card{good, exported("", card.SubjectCoreMath, 1)}, code: errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ImportCards(context.Background(), tt.batch)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "err = %v", err)
			assert.Contains(t, err.Error(), "cards[1]")
			assert.False(t, s.HasCard(good.ID), "nothing from a rejected batch may land")
		})
	}
	assert.Equal(t, 1, s.Snapshot().Count())
}

func TestCards_BoardOrder(t *testing.T) {
	s := newTestStore(t, nil)
	addCard(t, s, "First", card.SubjectCoreMath, 1)
	addCard(t, s, "Second", card.SubjectBiology, 1)

	cards := s.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "Second", cards[0].Title)
	assert.Equal(t, "First", cards[1].Title)
}
