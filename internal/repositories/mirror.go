package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/partyq/internal/models"
)

// DefaultChunkSize bounds rows per INSERT statement, keeping bound parameters well under SQLite's limit.
const DefaultChunkSize = 500

const (
	insertArtists      = `INSERT INTO artist (artist_id, artist_name) VALUES (:artist_id, :artist_name) ON CONFLICT DO NOTHING`
	insertAlbums       = `INSERT INTO album (album_id, album_name, album_art) VALUES (:album_id, :album_name, :album_art) ON CONFLICT DO NOTHING`
	insertTracks       = `INSERT INTO track (track_id, track_name, track_duration, session_id) VALUES (:track_id, :track_name, :track_duration, :session_id) ON CONFLICT DO NOTHING`
	insertAlbumArtists = `INSERT INTO album_artist (album_id, artist_id) VALUES (:album_id, :artist_id) ON CONFLICT DO NOTHING`
	insertArtistTracks = `INSERT INTO artist_track (artist_id, track_id) VALUES (:artist_id, :track_id) ON CONFLICT DO NOTHING`
	insertAlbumTracks  = `INSERT INTO album_track (album_id, track_id) VALUES (:album_id, :track_id) ON CONFLICT DO NOTHING`
)

// MirrorCounts is the row count of every mirror table.
type MirrorCounts struct {
	Artists      int
	Albums       int
	Tracks       int
	AlbumArtists int
	ArtistTracks int
	AlbumTracks  int
}

// MirrorRepository writes deduplicated batches into the mirror tables.
type MirrorRepository struct {
	store     *Store
	chunkSize int
}

// NewMirrorRepository creates a new MirrorRepository with the given store
func NewMirrorRepository(store *Store) *MirrorRepository {
	return &MirrorRepository{store: store, chunkSize: DefaultChunkSize}
}

// Apply inserts every row of b, ignoring rows whose key already exists.
//
// Entities go in before the links that reference them. Applying the same batch twice leaves the tables unchanged.
func (r *MirrorRepository) Apply(ctx context.Context, q DBTX, b *models.Batch) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"artists", func() error { return insertChunked(ctx, q, insertArtists, b.Artists, r.chunkSize) }},
		{"albums", func() error { return insertChunked(ctx, q, insertAlbums, b.Albums, r.chunkSize) }},
		{"tracks", func() error { return insertChunked(ctx, q, insertTracks, b.Tracks, r.chunkSize) }},
		{"album artists", func() error { return insertChunked(ctx, q, insertAlbumArtists, b.AlbumArtists, r.chunkSize) }},
		{"artist tracks", func() error { return insertChunked(ctx, q, insertArtistTracks, b.ArtistTracks, r.chunkSize) }},
		{"album tracks", func() error { return insertChunked(ctx, q, insertAlbumTracks, b.AlbumTracks, r.chunkSize) }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			return storageErr("insert "+step.name, err)
		}
	}
	return nil
}

// ApplyBatch runs [MirrorRepository.Apply] in its own transaction.
func (r *MirrorRepository) ApplyBatch(ctx context.Context, b *models.Batch) error {
	return r.store.RunInTx(ctx, func(tx DBTX) error {
		return r.Apply(ctx, tx, b)
	})
}

// PurgeTracks deletes every mirrored track and returns how many were removed.
// Artists, albums and link rows are kept.
func (r *MirrorRepository) PurgeTracks(ctx context.Context, q DBTX) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM track")
	if err != nil {
		return 0, storageErr("purge tracks", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Counts reports the size of each mirror table.
func (r *MirrorRepository) Counts(ctx context.Context, q DBTX) (*MirrorCounts, error) {
	var c MirrorCounts
	for table, dst := range map[string]*int{
		"artist":       &c.Artists,
		"album":        &c.Albums,
		"track":        &c.Tracks,
		"album_artist": &c.AlbumArtists,
		"artist_track": &c.ArtistTracks,
		"album_track":  &c.AlbumTracks,
	} {
		if err := q.GetContext(ctx, dst, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, storageErr("count "+table, err)
		}
	}
	return &c, nil
}

// insertChunked runs a named bulk insert over rows in slices of at most size.
// sqlx rejects an empty slice, so nothing is sent for empty input.
func insertChunked[T any](ctx context.Context, q DBTX, query string, rows []T, size int) error {
	if size <= 0 {
		size = DefaultChunkSize
	}
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		if _, err := q.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}
