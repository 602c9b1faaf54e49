package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. It is satisfied
// by both *pgxpool.Pool and pgxmock.PgxPoolIface.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool and ensures the
// envelopes table exists.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS envelopes (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_envelopes_expires_at ON envelopes(expires_at);
`

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT value FROM envelopes WHERE key = $1 AND expires_at > now()`,
		key,
	)
	var value []byte
	err := row.Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", key)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO envelopes (key, value, expires_at, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		key, value, now.Add(ttl), now,
	)
	return eris.Wrapf(err, "postgres: set %s", key)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM envelopes WHERE key = $1`, key)
	return eris.Wrapf(err, "postgres: delete %s", key)
}

// DeleteExpired removes rows whose TTL has lapsed and returns the count.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM envelopes WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
