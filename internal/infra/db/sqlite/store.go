package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"pos-activation/internal/infra/metrics"
)

// Store is the embedded SQLite backend used for local development and tests.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (and migrates) the database at path. Pass "" for in-memory.
func NewStore(path string) (*Store, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:?_pragma=foreign_keys(1)&_time_format=sqlite"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are private to the connection that created them.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}
	return s, nil
}

// NewStoreFromDB wraps an existing handle without migrating it.
func NewStoreFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) PoolStats() metrics.PoolStats {
	st := s.db.Stats()
	return metrics.PoolStats{
		Total: int32(st.OpenConnections),
		Idle:  int32(st.Idle),
		InUse: int32(st.InUse),
	}
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS features (
			id                  TEXT PRIMARY KEY,
			name                TEXT NOT NULL UNIQUE,
			description         TEXT NOT NULL DEFAULT '',
			is_enabled          BOOLEAN NOT NULL DEFAULT 1,
			requires_activation BOOLEAN NOT NULL DEFAULT 1,
			created_at          DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activation_keys (
			id          TEXT PRIMARY KEY,
			key_digest  TEXT NOT NULL UNIQUE,
			key_prefix  TEXT NOT NULL,
			business_id TEXT NOT NULL REFERENCES businesses(id),
			feature_id  TEXT NOT NULL REFERENCES features(id),
			expires_at  DATETIME,
			is_used     BOOLEAN NOT NULL DEFAULT 0,
			used_at     DATETIME,
			created_at  DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activation_keys_business ON activation_keys(business_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS business_features (
			id                TEXT PRIMARY KEY,
			business_id       TEXT NOT NULL REFERENCES businesses(id),
			feature_id        TEXT NOT NULL REFERENCES features(id),
			is_active         BOOLEAN NOT NULL DEFAULT 1,
			activated_at      DATETIME NOT NULL,
			activation_key_id TEXT REFERENCES activation_keys(id),
			UNIQUE(business_id, feature_id)
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
