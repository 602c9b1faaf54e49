package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisStore implements Store using go-redis. Redis expiry handles the TTL
// natively; the envelope timestamp check on read is kept as a second line so
// all backends behave alike.
type RedisStore struct {
	client *redis.Client
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// NewRedis creates a RedisStore.
func NewRedis(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisStore{client: client}
}

// NewRedisWithClient wraps an existing client, for miniredis-backed tests.
func NewRedisWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s", key)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return eris.Wrapf(s.client.Set(ctx, key, value, ttl).Err(), "redis: set %s", key)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return eris.Wrapf(s.client.Del(ctx, key).Err(), "redis: delete %s", key)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx).Err(), "redis: ping")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
