package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*TxManager)(nil)

// TxManager runs callbacks inside a *sqlx.Tx. SQLite transactions are always
// serializable, so the isolation level in txOpt is ignored.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(s *Store) *TxManager {
	return &TxManager{db: s.db}
}

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapSQLiteError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// getExecutor picks the transaction when one is given and the pool otherwise.
func getExecutor(db *sqlx.DB, tx repository.Tx) (sqlx.ExtContext, error) {
	switch v := tx.(type) {
	case *sqlx.Tx:
		return v, nil
	case *sqlx.DB:
		return v, nil
	case nil:
		if db != nil {
			return db, nil
		}
		return nil, domain.ErrInvalidArgument
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

// mapSQLiteError converts constraint and locking failures into domain errors.
func mapSQLiteError(err error) error {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	code := se.Code()
	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		msg := se.Error()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			strings.Contains(msg, "UNIQUE constraint failed"):
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, msg)
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, msg)
		}
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return domain.ErrConcurrentRedemption
	}
	return err
}

func scanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if mapped := mapSQLiteError(err); mapped != err {
		return mapped
	}
	return fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
}
