package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/desertthunder/partyq/internal/shared"
)

// SessionRow is a stored session. The playlist is kept by id and resolved against the catalog on read.
type SessionRow struct {
	ID         int64     `db:"session_id"`
	Name       string    `db:"session_name"`
	PlaylistID string    `db:"playlist_id"`
	StartedAt  time.Time `db:"session_start"`
}

// SessionRepository persists sessions.
type SessionRepository struct {
	store *Store
}

// NewSessionRepository creates a new SessionRepository with the given store
func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// Create inserts a session and returns its generated id.
func (r *SessionRepository) Create(ctx context.Context, q DBTX, name, playlistID string, startedAt time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO session (session_name, playlist_id, session_start) VALUES (?, ?, ?)",
		name, playlistID, startedAt.UTC(),
	)
	if err != nil {
		return 0, storageErr("insert session", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read session id", err)
	}
	return id, nil
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, q DBTX, id int64) (*SessionRow, error) {
	var row SessionRow
	err := q.GetContext(ctx, &row,
		"SELECT session_id, session_name, playlist_id, session_start FROM session WHERE session_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, storageErr("get session", err)
	}
	return &row, nil
}

// Latest returns the most recently started session. Ties on start time go to the higher id.
func (r *SessionRepository) Latest(ctx context.Context, q DBTX) (*SessionRow, error) {
	var row SessionRow
	err := q.GetContext(ctx, &row, `
		SELECT session_id, session_name, playlist_id, session_start
		FROM session
		ORDER BY session_start DESC, session_id DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, storageErr("get latest session", err)
	}
	return &row, nil
}

// List returns every session, newest first.
func (r *SessionRepository) List(ctx context.Context, q DBTX) ([]SessionRow, error) {
	var rows []SessionRow
	err := q.SelectContext(ctx, &rows, `
		SELECT session_id, session_name, playlist_id, session_start
		FROM session
		ORDER BY session_start DESC, session_id DESC`)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	return rows, nil
}

// Delete removes the session with id. Mirrored tracks are left alone.
func (r *SessionRepository) Delete(ctx context.Context, q DBTX, id int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM session WHERE session_id = ?", id)
	if err != nil {
		return storageErr("delete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrSessionNotFound
	}
	return nil
}
