// Package board holds the in-memory workboard: a fixed set of subject
// columns, each an insertion-ordered list of cards, plus the display order
// of the columns and the transient "new card" highlight.
package board

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/logger"
)

// Defaults
const (
	DefaultHighlightDelay = 5 * time.Second
	DefaultDueSoonDays    = 3
)

// Persister stores the board as a single opaque blob.
// Load returns (nil, nil) when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Persister      Persister
	Clock          func() time.Time
	HighlightDelay time.Duration
	DueSoonDays    int
	Logger         *logger.Logger

	// OnCardAdded is called after every successful AddCard, outside the lock.
	OnCardAdded func(c card.Card, source string)
}

// Store is the board state container. It is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	columns     map[string][]card.Card
	order       []string
	highlighted string
	timers      map[string]*time.Timer
	closed      bool

	persister      Persister
	now            func() time.Time
	highlightDelay time.Duration
	dueSoonDays    int
	onCardAdded    func(card.Card, string)
	log            *logger.Logger
}

// persistedState is the JSON blob written through the Persister.
type persistedState struct {
	Columns map[string][]card.Card `json:"columns"`
	Order   []string               `json:"order,omitempty"`
}

// New creates an empty board with every column present, then restores any
// saved state from opts.Persister. A missing or corrupt blob leaves the
// board empty; it is logged, not returned.
func New(ctx context.Context, opts Options) *Store {
	s := &Store{
		columns:        emptyColumns(),
		order:          slices.Clone(card.Subjects),
		timers:         make(map[string]*time.Timer),
		persister:      opts.Persister,
		now:            opts.Clock,
		highlightDelay: opts.HighlightDelay,
		dueSoonDays:    opts.DueSoonDays,
		onCardAdded:    opts.OnCardAdded,
		log:            opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.highlightDelay <= 0 {
		s.highlightDelay = DefaultHighlightDelay
	}
	if s.dueSoonDays <= 0 {
		s.dueSoonDays = DefaultDueSoonDays
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("component", "board")
	s.restore(ctx)
	return s
}

func emptyColumns() map[string][]card.Card {
	cols := make(map[string][]card.Card, len(card.Subjects))
	for _, subj := range card.Subjects {
		cols[subj] = []card.Card{}
	}
	return cols
}

// restore loads the persisted blob. Unknown columns are dropped and the
// highlight flag is cleared, since it never outlives a session.
func (s *Store) restore(ctx context.Context) {
	if s.persister == nil {
		return
	}
	blob, err := s.persister.Load(ctx)
	if err != nil {
		s.log.Warnw("failed to load saved board, starting empty", "error", err)
		return
	}
	if len(blob) == 0 {
		return
	}

	var st persistedState
	if err := json.Unmarshal(blob, &st); err != nil {
		s.log.Warnw("saved board is corrupt, starting empty", "error", err)
		return
	}

	for subj, cards := range st.Columns {
		if _, ok := s.columns[subj]; !ok {
			s.log.Warnw("dropping cards for unknown column", "column", subj, "cards", len(cards))
			continue
		}
		restored := make([]card.Card, 0, len(cards))
		for _, c := range cards {
			c.IsNewCard = false
			c.Subject = subj
			restored = append(restored, c)
		}
		s.columns[subj] = restored
	}
	if isPermutation(st.Order, card.Subjects) {
		s.order = slices.Clone(st.Order)
	}
}

// isPermutation reports whether order contains exactly the names in set.
func isPermutation(order, set []string) bool {
	if len(order) != len(set) {
		return false
	}
	a := slices.Clone(order)
	b := slices.Clone(set)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// persistLocked snapshots the board and saves it. Failures are logged:
// storage is best effort and never fails the operation that triggered it.
// Callers must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	if s.persister == nil {
		return
	}
	st := persistedState{Columns: make(map[string][]card.Card, len(s.columns)), Order: slices.Clone(s.order)}
	for subj, cards := range s.columns {
		st.Columns[subj] = cards
	}
	blob, err := json.Marshal(st)
	if err != nil {
		s.log.Errorw("failed to encode board", "error", err)
		return
	}
	if err := s.persister.Save(ctx, blob); err != nil {
		s.log.Warnw("failed to save board", "error", err)
	}
}

// DueSoonDays is the configured default window for DueSoon.
func (s *Store) DueSoonDays() int {
	return s.dueSoonDays
}

// Close stops pending highlight timers. The store stays readable.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// allLocked returns every card in column display order, then insertion order.
func (s *Store) allLocked() []card.Card {
	var out []card.Card
	for _, subj := range s.order {
		for _, c := range s.columns[subj] {
			out = append(out, c.Clone())
		}
	}
	return out
}
