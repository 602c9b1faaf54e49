package main

import (
	"context"

	"github.com/sells-group/leadrouter/internal/rubric"
	"github.com/sells-group/leadrouter/internal/session"
	"github.com/sells-group/leadrouter/internal/store"
)

// env bundles the collaborators a command needs.
type env struct {
	Store    store.Store
	Fetcher  *rubric.Fetcher
	Sessions *session.Registry
}

// initEnv opens the configured store backend and wires the rubric fetcher
// and session registry.
func initEnv(ctx context.Context) (*env, error) {
	s, err := store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DatabaseURL,
		Redis: store.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		},
		Pool: &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
	})
	if err != nil {
		return nil, err
	}

	fetcher := rubric.NewFetcher(rubric.Options{
		URL:         cfg.Rubric.URL,
		UserAgent:   cfg.Rubric.UserAgent,
		Timeout:     cfg.Rubric.Timeout(),
		MaxRetries:  cfg.Rubric.MaxRetries,
		MaxCacheTTL: cfg.Rubric.MaxCacheTTL(),
		Strict:      cfg.Rubric.StrictThresholds,
	}, s)

	return &env{
		Store:    s,
		Fetcher:  fetcher,
		Sessions: session.NewRegistry(s, fetcher, cfg.State.TTL(), cfg.Routing.BookingPath),
	}, nil
}

func (e *env) Close() {
	_ = e.Store.Close()
}
