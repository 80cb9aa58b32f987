package repositories

import (
	"testing"
	"time"

	"ytbatch/internal/services"
	"ytbatch/internal/shared"
)

func newTestRepo(t *testing.T) *PlaylistCacheRepository {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewPlaylistCacheRepository(db)
}

func sampleExport() *services.PlaylistExport {
	return &services.PlaylistExport{
		Playlist: services.Playlist{ID: "PL-one", Title: "Morning Mix", ItemCount: 2},
		VideoIDs: []string{"v1", "v2"},
	}
}

func TestPlaylistCache_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	if _, ok := repo.Get("PL-one", time.Hour); ok {
		t.Error("Get() on empty cache should miss")
	}

	if err := repo.Put("PL-one", sampleExport()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := repo.Get("PL-one", time.Hour)
	if !ok {
		t.Fatal("Get() should hit after Put()")
	}
	if got.Playlist.Title != "Morning Mix" || len(got.VideoIDs) != 2 {
		t.Errorf("cached export = %+v", got)
	}

	// Upsert replaces the payload.
	updated := sampleExport()
	updated.VideoIDs = append(updated.VideoIDs, "v3")
	if err := repo.Put("PL-one", updated); err != nil {
		t.Fatalf("Put() upsert error = %v", err)
	}
	got, _ = repo.Get("PL-one", time.Hour)
	if len(got.VideoIDs) != 3 {
		t.Errorf("upserted export has %d videos, want 3", len(got.VideoIDs))
	}
}

func TestPlaylistCache_TTLExpiry(t *testing.T) {
	repo := newTestRepo(t)

	fetched := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := fetched
	repo.WithClock(func() time.Time { return current })

	if err := repo.Put("PL-one", sampleExport()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	current = fetched.Add(30 * time.Minute)
	if _, ok := repo.Get("PL-one", time.Hour); !ok {
		t.Error("entry inside the TTL should hit")
	}

	current = fetched.Add(2 * time.Hour)
	if _, ok := repo.Get("PL-one", time.Hour); ok {
		t.Error("entry beyond the TTL should miss")
	}
}

func TestPlaylistCache_Prune(t *testing.T) {
	repo := newTestRepo(t)

	old := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	current := old
	repo.WithClock(func() time.Time { return current })
	if err := repo.Put("PL-old", sampleExport()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	current = old.Add(48 * time.Hour)
	if err := repo.Put("PL-new", sampleExport()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	removed, err := repo.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d entries, want 1", removed)
	}
	if _, ok := repo.Get("PL-new", 72*time.Hour); !ok {
		t.Error("fresh entry should survive pruning")
	}
	if _, ok := repo.Get("PL-old", 72*time.Hour); ok {
		t.Error("stale entry should be gone")
	}
}
