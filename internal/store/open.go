package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver string
	DSN    string
	Redis  RedisOptions
	Pool   *PoolConfig
}

// Open creates the Store backend named by opts.Driver: "memory", "sqlite",
// "postgres", or "redis".
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(opts.DSN)
	case "postgres":
		return NewPostgres(ctx, opts.DSN, opts.Pool)
	case "redis":
		return NewRedis(opts.Redis), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}
