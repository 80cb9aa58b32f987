package quota

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStateStore implements [StateStore] over the quota_state table.
type SQLStateStore struct {
	db *sql.DB
}

// NewSQLStateStore creates a new SQLStateStore with the given database connection.
func NewSQLStateStore(db *sql.DB) *SQLStateStore {
	return &SQLStateStore{db: db}
}

// Load retrieves the persisted state for an identity, or nil when none exists.
func (s *SQLStateStore) Load(identity string) (*State, error) {
	row := s.db.QueryRow(
		`SELECT identity, allocated, consumed, last_reset FROM quota_state WHERE identity = ?`,
		identity,
	)

	var (
		state    State
		resetRaw string
	)
	err := row.Scan(&state.Identity, &state.Allocated, &state.Consumed, &resetRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan quota state: %w", err)
	}

	lastReset, err := time.Parse(time.RFC3339Nano, resetRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_reset for %s: %w", identity, err)
	}
	state.LastReset = lastReset

	return &state, nil
}

// Save upserts an identity's state.
func (s *SQLStateStore) Save(state State) error {
	_, err := s.db.Exec(
		`INSERT INTO quota_state (identity, allocated, consumed, last_reset)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(identity) DO UPDATE SET
             allocated = excluded.allocated,
             consumed = excluded.consumed,
             last_reset = excluded.last_reset`,
		state.Identity,
		state.Allocated,
		state.Consumed,
		state.LastReset.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert quota state: %w", err)
	}
	return nil
}
