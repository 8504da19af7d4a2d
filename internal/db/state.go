package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/workboard/internal/errors"
)

// StateKey is the kv key the board is saved under.
const StateKey = "workboard-state"

// StateStore persists the board blob in the kv table.
// It satisfies board.Persister.
type StateStore struct {
	db  *sql.DB
	key string
}

// NewStateStore returns a StateStore writing under StateKey.
func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db, key: StateKey}
}

// Load returns the saved blob, or (nil, nil) when nothing was saved.
func (s *StateStore) Load(ctx context.Context) ([]byte, error) {
	value, err := Get(ctx, s.db, s.key)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(value), nil
}

// Save replaces the saved blob.
func (s *StateStore) Save(ctx context.Context, blob []byte) error {
	return Put(ctx, s.db, s.key, string(blob))
}
