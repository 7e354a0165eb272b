package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// setupTestStore creates a file-backed SQLite database with migrations applied
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTracks() []models.Track {
	a1 := models.Artist{ID: "a1", Name: "First"}
	a2 := models.Artist{ID: "a2", Name: "Second"}
	return []models.Track{
		{ID: "t2", Name: "Two", Duration: 2000, Album: models.Album{ID: "al1", Name: "Record", Art: "art1", Artists: []models.Artist{a1}}, Artists: []models.Artist{a2, a1}},
		{ID: "t1", Name: "One", Duration: 1000, Album: models.Album{ID: "al1", Name: "Record", Art: "art1", Artists: []models.Artist{a1}}, Artists: []models.Artist{a1}},
		{ID: "t3", Name: "Three", Duration: 3000, Album: models.Album{ID: "al2", Name: "Single", Artists: []models.Artist{a2}}, Artists: []models.Artist{a2}},
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("RunInTx commits", func(t *testing.T) {
		store := setupTestStore(t)
		err := store.RunInTx(ctx, func(tx DBTX) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO artist (artist_id, artist_name) VALUES ('a', 'A')")
			return err
		})
		if err != nil {
			t.Fatal(err)
		}

		var n int
		if err := store.DB().GetContext(ctx, &n, "SELECT COUNT(*) FROM artist"); err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("expected committed row, got %d", n)
		}
	})

	t.Run("RunInTx rolls back on error", func(t *testing.T) {
		store := setupTestStore(t)
		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(tx DBTX) error {
			if _, err := tx.ExecContext(ctx, "INSERT INTO artist (artist_id, artist_name) VALUES ('a', 'A')"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		var n int
		if err := store.DB().GetContext(ctx, &n, "SELECT COUNT(*) FROM artist"); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("expected rollback, got %d rows", n)
		}
	})
}

func TestMirrorRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Apply", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewMirrorRepository(store)

		if err := repo.ApplyBatch(ctx, models.Dedupe(1, sampleTracks())); err != nil {
			t.Fatalf("ApplyBatch() error = %v", err)
		}

		counts, err := repo.Counts(ctx, store.DB())
		if err != nil {
			t.Fatal(err)
		}
		want := MirrorCounts{Artists: 2, Albums: 2, Tracks: 3, AlbumArtists: 2, ArtistTracks: 4, AlbumTracks: 3}
		if *counts != want {
			t.Errorf("counts = %+v, want %+v", *counts, want)
		}
	})

	t.Run("Apply is idempotent", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewMirrorRepository(store)
		batch := models.Dedupe(1, sampleTracks())

		if err := repo.ApplyBatch(ctx, batch); err != nil {
			t.Fatal(err)
		}
		first, _ := repo.Counts(ctx, store.DB())

		if err := repo.ApplyBatch(ctx, batch); err != nil {
			t.Fatalf("second ApplyBatch() error = %v", err)
		}
		second, _ := repo.Counts(ctx, store.DB())

		if *first != *second {
			t.Errorf("counts changed: %+v -> %+v", *first, *second)
		}
	})

	t.Run("existing rows are not updated", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewMirrorRepository(store)
		if err := repo.ApplyBatch(ctx, models.Dedupe(1, sampleTracks())); err != nil {
			t.Fatal(err)
		}

		renamed := sampleTracks()[:1]
		renamed[0].Artists = []models.Artist{{ID: "a2", Name: "Renamed"}}
		if err := repo.ApplyBatch(ctx, models.Dedupe(2, renamed)); err != nil {
			t.Fatal(err)
		}

		var name string
		if err := store.DB().GetContext(ctx, &name, "SELECT artist_name FROM artist WHERE artist_id = 'a2'"); err != nil {
			t.Fatal(err)
		}
		if name != "Second" {
			t.Errorf("artist name = %q, want Second", name)
		}
	})

	t.Run("chunked inserts", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewMirrorRepository(store)
		repo.chunkSize = 2

		if err := repo.ApplyBatch(ctx, models.Dedupe(1, sampleTracks())); err != nil {
			t.Fatal(err)
		}
		counts, _ := repo.Counts(ctx, store.DB())
		if counts.Tracks != 3 || counts.ArtistTracks != 4 {
			t.Errorf("counts = %+v", *counts)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		store := setupTestStore(t)
		if err := NewMirrorRepository(store).ApplyBatch(ctx, models.Dedupe(1, nil)); err != nil {
			t.Errorf("ApplyBatch() on empty batch error = %v", err)
		}
	})

	t.Run("failure rolls back the whole batch", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewMirrorRepository(store)
		_, err := store.DB().ExecContext(ctx, `
			CREATE TRIGGER fail_album_track BEFORE INSERT ON album_track
			BEGIN SELECT RAISE(ABORT, 'simulated fault'); END`)
		if err != nil {
			t.Fatal(err)
		}

		err = repo.ApplyBatch(ctx, models.Dedupe(1, sampleTracks()))
		if !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}

		counts, _ := repo.Counts(ctx, store.DB())
		if counts.Artists != 0 || counts.Tracks != 0 {
			t.Errorf("expected nothing persisted, got %+v", *counts)
		}
	})

	t.Run("PurgeTracks keeps artists and albums", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewMirrorRepository(store)
		if err := repo.ApplyBatch(ctx, models.Dedupe(1, sampleTracks())); err != nil {
			t.Fatal(err)
		}

		n, err := repo.PurgeTracks(ctx, store.DB())
		if err != nil {
			t.Fatal(err)
		}
		if n != 3 {
			t.Errorf("purged %d, want 3", n)
		}

		counts, _ := repo.Counts(ctx, store.DB())
		if counts.Tracks != 0 || counts.Artists != 2 || counts.Albums != 2 {
			t.Errorf("counts after purge = %+v", *counts)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewSessionRepository(store)
		started := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

		id, err := repo.Create(ctx, store.DB(), "Friday", "pl1", started)
		if err != nil {
			t.Fatal(err)
		}

		row, err := repo.Get(ctx, store.DB(), id)
		if err != nil {
			t.Fatal(err)
		}
		if row.Name != "Friday" || row.PlaylistID != "pl1" || !row.StartedAt.Equal(started) {
			t.Errorf("unexpected row %+v", row)
		}
	})

	t.Run("Latest prefers newest start then highest id", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewSessionRepository(store)
		base := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

		repo.Create(ctx, store.DB(), "old", "pl", base)
		repo.Create(ctx, store.DB(), "newer", "pl", base.Add(time.Hour))
		tieID, _ := repo.Create(ctx, store.DB(), "tie", "pl", base.Add(time.Hour))

		row, err := repo.Latest(ctx, store.DB())
		if err != nil {
			t.Fatal(err)
		}
		if row.ID != tieID {
			t.Errorf("latest = %+v, want id %d", row, tieID)
		}

		rows, err := repo.List(ctx, store.DB())
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 3 || rows[2].Name != "old" {
			t.Errorf("list = %+v", rows)
		}
	})

	t.Run("Latest with no sessions", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := NewSessionRepository(store).Latest(ctx, store.DB())
		if !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := setupTestStore(t)
		repo := NewSessionRepository(store)
		id, _ := repo.Create(ctx, store.DB(), "Friday", "pl1", time.Now())

		if err := repo.Delete(ctx, store.DB(), id); err != nil {
			t.Fatal(err)
		}
		if err := repo.Delete(ctx, store.DB(), id); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("second delete: expected ErrSessionNotFound, got %v", err)
		}
		if _, err := repo.Get(ctx, store.DB(), id); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestTrackRepository(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*Store, *TrackRepository) {
		t.Helper()
		store := setupTestStore(t)
		if err := NewMirrorRepository(store).ApplyBatch(ctx, models.Dedupe(1, sampleTracks())); err != nil {
			t.Fatal(err)
		}
		return store, NewTrackRepository(store)
	}

	t.Run("Select all ordered by id", func(t *testing.T) {
		_, repo := seed(t)

		tracks, err := repo.Select(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(tracks))
		}
		for i, want := range []string{"t1", "t2", "t3"} {
			if tracks[i].ID != want {
				t.Errorf("tracks[%d] = %s, want %s", i, tracks[i].ID, want)
			}
		}

		two := tracks[1]
		if len(two.Artists) != 2 || two.Artists[0].ID != "a2" || two.Artists[1].ID != "a1" {
			t.Errorf("t2 artists = %+v, want credit order a2, a1", two.Artists)
		}
		if two.Album.ID != "al1" || two.Album.Art != "art1" {
			t.Errorf("t2 album = %+v", two.Album)
		}
		if len(two.Album.Artists) != 1 || two.Album.Artists[0].Name != "First" {
			t.Errorf("t2 album artists = %+v", two.Album.Artists)
		}
		if two.QueuedAt != nil {
			t.Errorf("expected unqueued track")
		}
	})

	t.Run("Select by ids", func(t *testing.T) {
		_, repo := seed(t)

		tracks, err := repo.Select(ctx, "t3", "missing")
		if err != nil {
			t.Fatal(err)
		}
		if len(tracks) != 1 || tracks[0].ID != "t3" {
			t.Errorf("tracks = %+v", tracks)
		}
		if len(tracks[0].Album.Artists) != 1 || tracks[0].Album.Artists[0].ID != "a2" {
			t.Errorf("album artists = %+v", tracks[0].Album.Artists)
		}
	})

	t.Run("Select empty mirror", func(t *testing.T) {
		repo := NewTrackRepository(setupTestStore(t))
		tracks, err := repo.Select(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tracks == nil || len(tracks) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", tracks)
		}
	})

	t.Run("track on several albums uses smallest album id", func(t *testing.T) {
		store := setupTestStore(t)
		tr := sampleTracks()[1]
		other := tr
		other.Album = models.Album{ID: "al0", Name: "Compilation"}
		if err := NewMirrorRepository(store).ApplyBatch(ctx, models.Dedupe(1, []models.Track{tr, other})); err != nil {
			t.Fatal(err)
		}

		got, err := NewTrackRepository(store).Get(ctx, tr.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Album.ID != "al0" {
			t.Errorf("album = %s, want al0", got.Album.ID)
		}
	})

	t.Run("orphaned links are ignored", func(t *testing.T) {
		store, repo := seed(t)
		if _, err := NewMirrorRepository(store).PurgeTracks(ctx, store.DB()); err != nil {
			t.Fatal(err)
		}

		tracks, err := repo.Select(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(tracks) != 0 {
			t.Errorf("expected no tracks after purge, got %d", len(tracks))
		}
	})

	t.Run("MarkQueued", func(t *testing.T) {
		_, repo := seed(t)
		now := time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)
		repo.WithClock(func() time.Time { return now })

		track, err := repo.MarkQueued(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if track.QueuedAt == nil || !track.QueuedAt.Equal(now) {
			t.Errorf("queued_at = %v, want %v", track.QueuedAt, now)
		}
	})

	t.Run("MarkQueued never moves backwards", func(t *testing.T) {
		_, repo := seed(t)
		later := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)
		earlier := later.Add(-time.Hour)

		repo.WithClock(func() time.Time { return later })
		if _, err := repo.MarkQueued(ctx, "t1"); err != nil {
			t.Fatal(err)
		}

		repo.WithClock(func() time.Time { return earlier })
		track, err := repo.MarkQueued(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if !track.QueuedAt.Equal(later) {
			t.Errorf("queued_at = %v, want %v", track.QueuedAt, later)
		}
	})

	t.Run("MarkQueued unknown track", func(t *testing.T) {
		_, repo := seed(t)
		_, err := repo.MarkQueued(ctx, "nope")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})
}
