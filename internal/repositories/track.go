package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/jmoiron/sqlx"
)

// Each track is paired with one album: the smallest album id it is linked to.
const selectTracks = `
	SELECT t.track_id, t.track_name, t.track_duration, t.queued_at,
	       al.album_id, al.album_name, al.album_art
	FROM track t
	INNER JOIN (
		SELECT track_id, MIN(album_id) AS album_id FROM album_track GROUP BY track_id
	) ta ON ta.track_id = t.track_id
	INNER JOIN album al ON al.album_id = ta.album_id`

// Link rowids preserve insertion order, which is credit order.
const selectTrackArtists = `
	SELECT lt.track_id AS owner_id, ar.artist_id, ar.artist_name
	FROM artist_track lt
	INNER JOIN artist ar ON ar.artist_id = lt.artist_id
	INNER JOIN track t ON t.track_id = lt.track_id`

const selectAlbumArtists = `
	SELECT aa.album_id AS owner_id, ar.artist_id, ar.artist_name
	FROM album_artist aa
	INNER JOIN artist ar ON ar.artist_id = aa.artist_id
	WHERE aa.album_id IN (
		SELECT ta.album_id FROM album_track ta
		INNER JOIN track t ON t.track_id = ta.track_id`

type trackRow struct {
	ID        string       `db:"track_id"`
	Name      string       `db:"track_name"`
	Duration  int          `db:"track_duration"`
	QueuedAt  sql.NullTime `db:"queued_at"`
	AlbumID   string       `db:"album_id"`
	AlbumName string       `db:"album_name"`
	AlbumArt  string       `db:"album_art"`
}

type artistRow struct {
	OwnerID string `db:"owner_id"`
	ID      string `db:"artist_id"`
	Name    string `db:"artist_name"`
}

// TrackRepository reads normalized tracks back out of the mirror.
type TrackRepository struct {
	store *Store
	now   func() time.Time
}

// NewTrackRepository creates a new TrackRepository with the given store
func NewTrackRepository(store *Store) *TrackRepository {
	return &TrackRepository{store: store, now: time.Now}
}

// WithClock replaces the time source used to stamp queued tracks.
func (r *TrackRepository) WithClock(now func() time.Time) *TrackRepository {
	r.now = now
	return r
}

// Select returns mirrored tracks ordered by id. With ids it returns only those tracks;
// unknown ids are skipped. All reads run in one transaction so the result is a consistent snapshot.
func (r *TrackRepository) Select(ctx context.Context, ids ...string) ([]models.Track, error) {
	var tracks []models.Track
	err := r.store.RunInTx(ctx, func(tx DBTX) error {
		var err error
		tracks, err = r.SelectTx(ctx, tx, ids...)
		return err
	})
	return tracks, err
}

// SelectTx is [TrackRepository.Select] inside the caller's transaction.
func (r *TrackRepository) SelectTx(ctx context.Context, q DBTX, ids ...string) ([]models.Track, error) {
	var rows []trackRow
	if err := selectFiltered(ctx, q, &rows, selectTracks, " WHERE t.track_id IN (?)", " ORDER BY t.track_id", ids); err != nil {
		return nil, storageErr("select tracks", err)
	}

	tracks := make([]models.Track, 0, len(rows))
	if len(rows) == 0 {
		return tracks, nil
	}

	var trackArtists []artistRow
	if err := selectFiltered(ctx, q, &trackArtists, selectTrackArtists, " WHERE t.track_id IN (?)", " ORDER BY lt.rowid", ids); err != nil {
		return nil, storageErr("select track artists", err)
	}

	var albumArtists []artistRow
	if err := selectFiltered(ctx, q, &albumArtists, selectAlbumArtists, " WHERE t.track_id IN (?)", ") ORDER BY aa.rowid", ids); err != nil {
		return nil, storageErr("select album artists", err)
	}

	byTrack := groupArtists(trackArtists)
	byAlbum := groupArtists(albumArtists)

	for _, row := range rows {
		t := models.Track{
			ID:       row.ID,
			Name:     row.Name,
			Duration: row.Duration,
			Album: models.Album{
				ID:      row.AlbumID,
				Name:    row.AlbumName,
				Art:     row.AlbumArt,
				Artists: orEmpty(byAlbum[row.AlbumID]),
			},
			Artists: orEmpty(byTrack[row.ID]),
		}
		if row.QueuedAt.Valid {
			queued := row.QueuedAt.Time
			t.QueuedAt = &queued
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Get returns a single mirrored track.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	tracks, err := r.Select(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, shared.ErrTrackNotFound
	}
	return &tracks[0], nil
}

// MarkQueued stamps a track as queued now and returns it.
// The stamp never moves backwards: if the stored time is later than the clock it is kept.
func (r *TrackRepository) MarkQueued(ctx context.Context, id string) (*models.Track, error) {
	var track *models.Track
	err := r.store.RunInTx(ctx, func(tx DBTX) error {
		var prev sql.NullTime
		err := tx.GetContext(ctx, &prev, "SELECT queued_at FROM track WHERE track_id = ?", id)
		if errors.Is(err, sql.ErrNoRows) {
			return shared.ErrTrackNotFound
		}
		if err != nil {
			return storageErr("read queued_at", err)
		}

		stamp := r.now().UTC()
		if prev.Valid && prev.Time.After(stamp) {
			stamp = prev.Time
		}
		if _, err := tx.ExecContext(ctx, "UPDATE track SET queued_at = ? WHERE track_id = ?", stamp, id); err != nil {
			return storageErr("mark queued", err)
		}

		tracks, err := r.SelectTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			return shared.ErrTrackNotFound
		}
		track = &tracks[0]
		return nil
	})
	return track, err
}

// Count returns the number of mirrored tracks.
func (r *TrackRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.DB().GetContext(ctx, &n, "SELECT COUNT(*) FROM track"); err != nil {
		return 0, storageErr("count tracks", err)
	}
	return n, nil
}

// selectFiltered runs base, adding filter when ids is non-empty, then suffix.
func selectFiltered(ctx context.Context, q DBTX, dest any, base, filter, suffix string, ids []string) error {
	if len(ids) == 0 {
		return q.SelectContext(ctx, dest, base+suffix)
	}
	query, args, err := sqlx.In(base+filter+suffix, ids)
	if err != nil {
		return err
	}
	return q.SelectContext(ctx, dest, q.Rebind(query), args...)
}

func groupArtists(rows []artistRow) map[string][]models.Artist {
	grouped := make(map[string][]models.Artist)
	for _, row := range rows {
		grouped[row.OwnerID] = append(grouped[row.OwnerID], models.Artist{ID: row.ID, Name: row.Name})
	}
	return grouped
}

func orEmpty(artists []models.Artist) []models.Artist {
	if artists == nil {
		return []models.Artist{}
	}
	return artists
}
