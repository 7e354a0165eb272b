package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/repositories"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
)

// StartResult is the outcome of [SessionEngine.StartSession].
type StartResult struct {
	Session *models.Session
	Tracks  []models.Track
	Purged  int64 // tracks removed from the previous mirror
}

// PartyEngine defines the operations exposed to guests and the host.
type PartyEngine interface {
	// StartSession seeds a new session from a playlist, replacing the mirrored tracks.
	StartSession(ctx context.Context, name, playlistID string, progress chan<- ProgressUpdate) (*StartResult, error)

	// EndSession removes a session row.
	EndSession(ctx context.Context, id int64) error

	// ActiveSession returns the most recently started session, or nil when there is none.
	ActiveSession(ctx context.Context) (*models.Session, error)

	// Tracks lists the mirrored tracks.
	Tracks(ctx context.Context) ([]models.Track, error)

	// QueueTrack queues a mirrored track on the playback device and returns the resulting queue.
	QueueTrack(ctx context.Context, trackID string) (*models.Queue, error)

	// Playlists lists catalog playlists sorted by name.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// Current returns the playing track.
	Current(ctx context.Context) (*models.CurrentTrack, error)

	// Queue returns the device queue.
	Queue(ctx context.Context) (*models.Queue, error)

	// Snapshot gathers the session, tracks and playback state in one call.
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// SessionEngine implements [PartyEngine] on top of a [services.Catalog] and the SQLite mirror.
type SessionEngine struct {
	catalog  services.Catalog
	store    *repositories.Store
	sessions *repositories.SessionRepository
	mirror   *repositories.MirrorRepository
	tracks   *repositories.TrackRepository
	logger   *log.Logger
	now      func() time.Time
}

// NewSessionEngine creates a new SessionEngine with the provided catalog and store.
func NewSessionEngine(catalog services.Catalog, store *repositories.Store, logger *log.Logger) *SessionEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SessionEngine{
		catalog:  catalog,
		store:    store,
		sessions: repositories.NewSessionRepository(store),
		mirror:   repositories.NewMirrorRepository(store),
		tracks:   repositories.NewTrackRepository(store),
		logger:   shared.WithLogger(logger, "component", "session"),
		now:      time.Now,
	}
}

// WithClock replaces the engine's time source, including the one used to stamp queued tracks.
func (e *SessionEngine) WithClock(now func() time.Time) *SessionEngine {
	e.now = now
	e.tracks.WithClock(now)
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SessionEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// StartSession resolves playlistID, fetches all of its tracks and, in a single transaction, records the session,
// purges the previous mirror and stores the new tracks.
//
// An empty name defaults to the playlist's name. Any failure leaves the previous session and mirror untouched.
func (e *SessionEngine) StartSession(ctx context.Context, name, playlistID string, progress chan<- ProgressUpdate) (*StartResult, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, fetchPlaylistUpdate(playlistID))
	playlist, err := e.catalog.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, foundPlaylistUpdate(playlist))

	name = strings.TrimSpace(name)
	if name == "" {
		name = playlist.Name
	}

	tracks, err := services.CollectPlaylistTracks(ctx, e.catalog, playlist.ID, func(page, count int) {
		e.sendProgress(progress, fetchTracksUpdate(page, count, playlist.TrackCount))
	})
	if err != nil {
		e.logger.Error("failed to fetch playlist tracks", "playlist", playlist.ID, "error", err)
		return nil, err
	}

	session := &models.Session{Name: name, Playlist: *playlist, StartedAt: e.now().UTC()}
	var purged int64

	err = e.store.RunInTx(ctx, func(tx repositories.DBTX) error {
		id, err := e.sessions.Create(ctx, tx, session.Name, playlist.ID, session.StartedAt)
		if err != nil {
			return err
		}
		session.ID = id

		if purged, err = e.mirror.PurgeTracks(ctx, tx); err != nil {
			return err
		}

		batch := models.Dedupe(id, tracks)
		e.sendProgress(progress, replaceMirrorUpdate(purged, batch))
		return e.mirror.Apply(ctx, tx, batch)
	})
	if err != nil {
		e.logger.Error("failed to replace mirror", "playlist", playlist.ID, "error", err)
		return nil, err
	}

	mirrored, err := e.tracks.Select(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("session started", "id", session.ID, "name", session.Name, "playlist", playlist.ID, "tracks", len(mirrored), "purged", purged)
	e.sendProgress(progress, completeUpdate(session, len(mirrored)))

	return &StartResult{Session: session, Tracks: mirrored, Purged: purged}, nil
}

// EndSession deletes the session row. The mirror keeps its tracks until the next session replaces them.
func (e *SessionEngine) EndSession(ctx context.Context, id int64) error {
	if err := e.sessions.Delete(ctx, e.store.DB(), id); err != nil {
		return err
	}
	e.logger.Info("session ended", "id", id)
	return nil
}

// ActiveSession returns the most recently started session with its playlist resolved.
//
// It returns nil, nil when there is no session or when the playlist can no longer be resolved.
func (e *SessionEngine) ActiveSession(ctx context.Context) (*models.Session, error) {
	row, err := e.sessions.Latest(ctx, e.store.DB())
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	playlist, err := e.catalog.Playlist(ctx, row.PlaylistID)
	if err != nil {
		e.logger.Warn("active session playlist unavailable", "session", row.ID, "playlist", row.PlaylistID, "error", err)
		return nil, nil
	}

	return &models.Session{ID: row.ID, Name: row.Name, Playlist: *playlist, StartedAt: row.StartedAt}, nil
}

// Tracks lists the mirrored tracks ordered by id.
func (e *SessionEngine) Tracks(ctx context.Context) ([]models.Track, error) {
	return e.tracks.Select(ctx)
}

// QueueTrack queues a mirrored track and stamps it as queued.
//
// Only tracks in the mirror may be queued. The stamp is written after the catalog accepts the track,
// so a failed enqueue leaves the mirror unchanged.
func (e *SessionEngine) QueueTrack(ctx context.Context, trackID string) (*models.Queue, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	if _, err := e.tracks.Get(ctx, trackID); err != nil {
		return nil, err
	}

	if err := e.catalog.Enqueue(ctx, trackID); err != nil {
		e.logger.Warn("enqueue failed", "track", trackID, "error", err)
		return nil, err
	}

	if _, err := e.tracks.MarkQueued(ctx, trackID); err != nil {
		return nil, err
	}
	e.logger.Info("track queued", "track", trackID)

	return e.Queue(ctx)
}

// Playlists lists catalog playlists sorted by name.
func (e *SessionEngine) Playlists(ctx context.Context) ([]models.Playlist, error) {
	playlists, err := e.catalog.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(playlists, func(i, j int) bool {
		return playlists[i].Name < playlists[j].Name
	})
	return playlists, nil
}

// Current returns the playing track or [shared.ErrNothingPlaying].
func (e *SessionEngine) Current(ctx context.Context) (*models.CurrentTrack, error) {
	current, err := e.catalog.CurrentPlayback(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, shared.ErrNothingPlaying
	}
	return current, nil
}

// Queue returns the device queue or [shared.ErrNothingPlaying].
func (e *SessionEngine) Queue(ctx context.Context) (*models.Queue, error) {
	queue, err := e.catalog.Queue(ctx)
	if err != nil {
		return nil, err
	}
	if queue == nil || queue.Current == nil {
		return nil, shared.ErrNothingPlaying
	}
	if queue.Tracks == nil {
		queue.Tracks = []models.Track{}
	}
	return queue, nil
}

// Snapshot gathers the active session, the mirror and playback state concurrently.
//
// Tracks are empty without an active session. Playback failures degrade to empty fields;
// only storage failures are returned.
func (e *SessionEngine) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Tracks: []models.Track{}, Queue: []models.Track{}}

	var (
		wg                   sync.WaitGroup
		sessionErr, trackErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		snap.Session, sessionErr = e.ActiveSession(ctx)
	}()
	go func() {
		defer wg.Done()
		tracks, err := e.tracks.Select(ctx)
		if err != nil {
			trackErr = err
			return
		}
		snap.Tracks = tracks
	}()
	go func() {
		defer wg.Done()
		current, err := e.catalog.CurrentPlayback(ctx)
		if err != nil {
			e.logger.Debug("snapshot without current track", "error", err)
			return
		}
		snap.Current = current
	}()
	go func() {
		defer wg.Done()
		queue, err := e.catalog.Queue(ctx)
		if err != nil {
			e.logger.Debug("snapshot without queue", "error", err)
			return
		}
		if queue != nil && queue.Tracks != nil {
			snap.Queue = queue.Tracks
		}
	}()
	wg.Wait()

	if err := errors.Join(sessionErr, trackErr); err != nil {
		return nil, err
	}
	if snap.Session == nil {
		snap.Tracks = []models.Track{}
	}
	return snap, nil
}
