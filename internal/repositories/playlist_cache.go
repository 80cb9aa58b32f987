// package repositories provides SQLite-backed persistence adapters.
//
// PlaylistCacheRepository implements services.PlaylistCache over the
// playlist_cache table, giving extractor reads a TTL-bounded local snapshot
// so repeated planning passes do not hammer the extractor service.
package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ytbatch/internal/services"
)

// PlaylistCacheRepository stores fetched playlist exports keyed by reference.
type PlaylistCacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlaylistCacheRepository creates a repository over a migrated database.
func NewPlaylistCacheRepository(db *sql.DB) *PlaylistCacheRepository {
	return &PlaylistCacheRepository{db: db, now: time.Now}
}

// WithClock overrides the repository's clock. Test hook.
func (r *PlaylistCacheRepository) WithClock(now func() time.Time) *PlaylistCacheRepository {
	r.now = now
	return r
}

// Get returns the cached export for a reference when one exists and is not
// older than maxAge. Decode failures are treated as misses; a corrupt row
// just forces a refetch.
func (r *PlaylistCacheRepository) Get(ref string, maxAge time.Duration) (*services.PlaylistExport, bool) {
	row := r.db.QueryRow(
		`SELECT payload, fetched_at FROM playlist_cache WHERE ref = ?`, ref)

	var payload, fetchedRaw string
	if err := row.Scan(&payload, &fetchedRaw); err != nil {
		return nil, false
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, fetchedRaw)
	if err != nil {
		return nil, false
	}
	if r.now().UTC().Sub(fetchedAt) > maxAge {
		return nil, false
	}

	var export services.PlaylistExport
	if err := json.Unmarshal([]byte(payload), &export); err != nil {
		return nil, false
	}
	return &export, true
}

// Put upserts a fetched export, stamping it with the current time.
func (r *PlaylistCacheRepository) Put(ref string, export *services.PlaylistExport) error {
	if export == nil {
		return errors.New("cannot cache a nil export")
	}

	payload, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("failed to encode playlist export: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO playlist_cache (ref, payload, fetched_at)
         VALUES (?, ?, ?)
         ON CONFLICT(ref) DO UPDATE SET
             payload = excluded.payload,
             fetched_at = excluded.fetched_at`,
		ref, string(payload), r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert playlist cache entry: %w", err)
	}
	return nil
}

// Prune removes entries fetched before the cutoff and returns how many rows
// went away.
func (r *PlaylistCacheRepository) Prune(olderThan time.Duration) (int, error) {
	cutoff := r.now().UTC().Add(-olderThan)
	res, err := r.db.Exec(
		`DELETE FROM playlist_cache WHERE fetched_at < ?`,
		cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to prune playlist cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	return int(affected), nil
}
