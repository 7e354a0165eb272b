// package repositories provides the SQLite persistence layer for the playlist mirror and session history.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/partyq/internal/shared"
	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both [sqlx.DB] and [sqlx.Tx] so repository methods compose inside a caller's transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// Store owns the database handle and runs units of work.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open opens the database at path, applies pending migrations and returns a ready [Store].
func Open(ctx context.Context, cfg shared.DatabaseConfig) (*Store, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Path != ":memory:" {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if err := shared.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db), nil
}

// DB returns the handle for statements that run outside a transaction.
func (s *Store) DB() DBTX {
	return s.db
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTx runs fn inside a transaction. The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(tx DBTX) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", shared.ErrStorage, op, err)
}
