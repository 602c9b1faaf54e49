package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS envelopes (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_envelopes_expires_at ON envelopes(expires_at);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM envelopes WHERE key = ? AND expires_at > datetime('now')`,
		key,
	)
	var value []byte
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO envelopes (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
			expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		key, value, now.Add(ttl), now,
	)
	return eris.Wrapf(err, "sqlite: set %s", key)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM envelopes WHERE key = ?`, key)
	return eris.Wrapf(err, "sqlite: delete %s", key)
}

// DeleteExpired removes rows whose TTL has lapsed and returns the count.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM envelopes WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
