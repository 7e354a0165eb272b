package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/repositories"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	tu "github.com/desertthunder/partyq/internal/testing"
)

func newEngine(t *testing.T) (*SessionEngine, *tu.MockCatalog, *repositories.Store) {
	t.Helper()
	catalog := tu.NewMockCatalog()
	catalog.AddPlaylist(models.Playlist{ID: "pl1", Name: "Friday"},
		tu.RawTrack("t1", "One", "al1", "a1"),
		tu.RawTrack("t2", "Two - 2011 Remastered", "al1", "a1", "a2"),
		tu.RawTrack("t3", "Three", "al2", "a2"),
		tu.RawTrack("t4", "Four", "al2", "a2"),
		tu.RawTrack("t5", "Five", "al3", "a3"),
	)
	catalog.AddPlaylist(models.Playlist{ID: "pl2", Name: "Brunch"},
		tu.RawTrack("t9", "Nine", "al9", "a9"),
		services.SpotifyPlaylistTrack{Track: nil},
	)
	store := tu.NewTestStore(t)
	return NewSessionEngine(catalog, store, nil), catalog, store
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors every page", func(t *testing.T) {
		engine, catalog, _ := newEngine(t)
		progress := make(chan ProgressUpdate, 32)

		result, err := engine.StartSession(ctx, "Party", "pl1", progress)
		if err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}

		if catalog.PageCalls != 3 {
			t.Errorf("page calls = %d, want 3", catalog.PageCalls)
		}
		if len(result.Tracks) != 5 {
			t.Fatalf("tracks = %d, want 5", len(result.Tracks))
		}
		if result.Tracks[1].Name != "Two" {
			t.Errorf("expected sanitized name, got %q", result.Tracks[1].Name)
		}
		if result.Session.ID == 0 || result.Session.Name != "Party" || result.Session.Playlist.ID != "pl1" {
			t.Errorf("unexpected session %+v", result.Session)
		}

		close(progress)
		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) == 0 || phases[0] != FetchPlaylist || phases[len(phases)-1] != Complete {
			t.Errorf("phases = %v", phases)
		}
	})

	t.Run("name defaults to playlist name", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		result, err := engine.StartSession(ctx, "  ", "pl2", nil)
		if err != nil {
			t.Fatal(err)
		}
		if result.Session.Name != "Brunch" {
			t.Errorf("name = %q, want Brunch", result.Session.Name)
		}
		if len(result.Tracks) != 1 {
			t.Errorf("expected unavailable item to be dropped, got %d tracks", len(result.Tracks))
		}
	})

	t.Run("new session replaces the mirror", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		if _, err := engine.StartSession(ctx, "first", "pl1", nil); err != nil {
			t.Fatal(err)
		}

		result, err := engine.StartSession(ctx, "second", "pl2", nil)
		if err != nil {
			t.Fatal(err)
		}
		if result.Purged != 5 {
			t.Errorf("purged = %d, want 5", result.Purged)
		}

		tracks, err := engine.Tracks(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(tracks) != 1 || tracks[0].ID != "t9" {
			t.Errorf("tracks = %+v, want only t9", tracks)
		}

		active, err := engine.ActiveSession(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if active.Name != "second" {
			t.Errorf("active = %q, want second", active.Name)
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		_, err := engine.StartSession(ctx, "x", "missing", nil)
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("missing playlist id", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		_, err := engine.StartSession(ctx, "x", "", nil)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("catalog failure mid-pagination keeps previous state", func(t *testing.T) {
		engine, catalog, _ := newEngine(t)
		first, err := engine.StartSession(ctx, "first", "pl1", nil)
		if err != nil {
			t.Fatal(err)
		}

		catalog.PageCalls = 0
		catalog.PageErr = shared.ErrUpstreamUnavailable
		catalog.FailOnPage = 2

		_, err = engine.StartSession(ctx, "second", "pl1", nil)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
		}

		tracks, _ := engine.Tracks(ctx)
		if len(tracks) != 5 {
			t.Errorf("tracks = %d, want previous 5", len(tracks))
		}
		catalog.PageErr = nil
		active, _ := engine.ActiveSession(ctx)
		if active == nil || active.ID != first.Session.ID {
			t.Errorf("active = %+v, want first session", active)
		}
	})

	t.Run("storage failure keeps previous state", func(t *testing.T) {
		engine, _, store := newEngine(t)
		first, err := engine.StartSession(ctx, "first", "pl1", nil)
		if err != nil {
			t.Fatal(err)
		}

		_, err = store.DB().ExecContext(ctx, `
			CREATE TRIGGER fail_album_track BEFORE INSERT ON album_track
			BEGIN SELECT RAISE(ABORT, 'simulated fault'); END`)
		if err != nil {
			t.Fatal(err)
		}

		_, err = engine.StartSession(ctx, "second", "pl2", nil)
		if !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}

		tracks, _ := engine.Tracks(ctx)
		if len(tracks) != 5 {
			t.Errorf("tracks = %d, want previous 5", len(tracks))
		}
		active, _ := engine.ActiveSession(ctx)
		if active == nil || active.ID != first.Session.ID {
			t.Errorf("active = %+v, want first session", active)
		}
	})
}

func TestActiveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		s, err := engine.ActiveSession(ctx)
		if err != nil || s != nil {
			t.Errorf("expected nil, nil; got %v, %v", s, err)
		}
	})

	t.Run("unresolvable playlist degrades to none", func(t *testing.T) {
		engine, catalog, _ := newEngine(t)
		if _, err := engine.StartSession(ctx, "first", "pl1", nil); err != nil {
			t.Fatal(err)
		}
		catalog.PlaylistErr = shared.ErrPlaylistNotFound

		s, err := engine.ActiveSession(ctx)
		if err != nil || s != nil {
			t.Errorf("expected nil, nil; got %v, %v", s, err)
		}
	})

	t.Run("EndSession", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		result, err := engine.StartSession(ctx, "first", "pl1", nil)
		if err != nil {
			t.Fatal(err)
		}

		if err := engine.EndSession(ctx, result.Session.ID); err != nil {
			t.Fatal(err)
		}
		if s, _ := engine.ActiveSession(ctx); s != nil {
			t.Errorf("expected no active session, got %+v", s)
		}
		if tracks, _ := engine.Tracks(ctx); len(tracks) != 5 {
			t.Errorf("ending a session should keep the mirror, got %d tracks", len(tracks))
		}
		if err := engine.EndSession(ctx, result.Session.ID); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestQueueTrack(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*SessionEngine, *tu.MockCatalog) {
		engine, catalog, _ := newEngine(t)
		engine.WithClock(func() time.Time { return now })
		if _, err := engine.StartSession(ctx, "party", "pl1", nil); err != nil {
			t.Fatal(err)
		}
		catalog.QueueState = &models.Queue{Current: &models.CurrentTrack{Track: models.Track{ID: "t1"}}}
		return engine, catalog
	}

	t.Run("queues and stamps", func(t *testing.T) {
		engine, catalog := setup(t)

		queue, err := engine.QueueTrack(ctx, "t3")
		if err != nil {
			t.Fatalf("QueueTrack() error = %v", err)
		}
		if len(catalog.Enqueued) != 1 || catalog.Enqueued[0] != "t3" {
			t.Errorf("enqueued = %v", catalog.Enqueued)
		}
		if len(queue.Tracks) != 1 || queue.Tracks[0].ID != "t3" {
			t.Errorf("queue = %+v", queue.Tracks)
		}

		tracks, _ := engine.Tracks(ctx)
		for _, tr := range tracks {
			if tr.ID == "t3" && (tr.QueuedAt == nil || !tr.QueuedAt.Equal(now)) {
				t.Errorf("t3 queued_at = %v, want %v", tr.QueuedAt, now)
			}
			if tr.ID != "t3" && tr.QueuedAt != nil {
				t.Errorf("%s unexpectedly queued", tr.ID)
			}
		}
	})

	t.Run("track outside the mirror", func(t *testing.T) {
		engine, catalog := setup(t)
		_, err := engine.QueueTrack(ctx, "t9")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
		if len(catalog.Enqueued) != 0 {
			t.Errorf("catalog should not be called, got %v", catalog.Enqueued)
		}
	})

	t.Run("no active device leaves track unqueued", func(t *testing.T) {
		engine, catalog := setup(t)
		catalog.EnqueueErr = shared.ErrNoActiveDevice

		_, err := engine.QueueTrack(ctx, "t3")
		if !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Fatalf("expected ErrNoActiveDevice, got %v", err)
		}

		tracks, _ := engine.Tracks(ctx)
		for _, tr := range tracks {
			if tr.QueuedAt != nil {
				t.Errorf("%s should not be stamped", tr.ID)
			}
		}
	})
}

func TestPlayback(t *testing.T) {
	ctx := context.Background()

	t.Run("Playlists sorted by name", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		playlists, err := engine.Playlists(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(playlists) != 2 || playlists[0].Name != "Brunch" || playlists[1].Name != "Friday" {
			t.Errorf("playlists = %+v", playlists)
		}
	})

	t.Run("nothing playing", func(t *testing.T) {
		engine, _, _ := newEngine(t)
		if _, err := engine.Current(ctx); !errors.Is(err, shared.ErrNothingPlaying) {
			t.Errorf("Current(): expected ErrNothingPlaying, got %v", err)
		}
		if _, err := engine.Queue(ctx); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("Queue(): expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		engine, catalog, _ := newEngine(t)
		if _, err := engine.StartSession(ctx, "party", "pl1", nil); err != nil {
			t.Fatal(err)
		}
		catalog.Current = &models.CurrentTrack{Track: models.Track{ID: "t1"}, Start: 42}

		snap, err := engine.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Session == nil || snap.Session.Name != "party" {
			t.Errorf("session = %+v", snap.Session)
		}
		if len(snap.Tracks) != 5 {
			t.Errorf("tracks = %d", len(snap.Tracks))
		}
		if snap.Current == nil || snap.Current.Start != 42 {
			t.Errorf("current = %+v", snap.Current)
		}
		if snap.Queue == nil {
			t.Error("queue should be an empty slice, not nil")
		}
	})

	t.Run("Snapshot degrades on playback failure", func(t *testing.T) {
		engine, catalog, _ := newEngine(t)
		catalog.PlaybackErr = shared.ErrUpstreamUnavailable

		snap, err := engine.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if snap.Current != nil || snap.Session != nil {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPlaylist:   "fetch_playlist",
		FetchTracks:     "fetch_tracks",
		ReplaceMirror:   "replace_mirror",
		Complete:        "complete",
		ExportPlaylists: "export_playlists",
		Phase(99):       "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
