// Package rubric fetches and caches the remote lead-scoring configuration.
package rubric

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/store"
)

// ErrConfigUnavailable is returned when the rubric cannot be fetched or the
// body is not a valid config document.
var ErrConfigUnavailable = eris.New("rubric: config unavailable")

// CacheKey is the fixed store key for the cached rubric.
const CacheKey = "rubric_cache"

const maxBodyBytes = 1 << 20

// Options configures a Fetcher.
type Options struct {
	URL        string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// MaxCacheTTL caps the cache lifetime regardless of the document's
	// own ttl_ms.
	MaxCacheTTL time.Duration
	// Strict enables threshold monotonicity validation on every fetch.
	Strict bool
}

// Fetcher retrieves the scoring config with a short-lived store-backed
// cache. Cache reads and writes are best-effort: a broken cache never fails
// the fetch.
type Fetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	cache   store.Store
	clock   func() time.Time
}

// NewFetcher creates a Fetcher. cache may be nil to disable caching.
func NewFetcher(opts Options, cache store.Store) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "leadrouter/1.0"
	}
	if opts.MaxCacheTTL == 0 {
		opts.MaxCacheTTL = 15 * time.Minute
	}
	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(5, 5),
		cache:   cache,
		clock:   time.Now,
	}
}

// WithClock overrides the wall clock, for cache expiry tests.
func (f *Fetcher) WithClock(clock func() time.Time) *Fetcher {
	f.clock = clock
	return f
}

// Get returns the scoring config, serving from cache when the cached copy is
// still within its TTL and hitting the remote endpoint otherwise.
func (f *Fetcher) Get(ctx context.Context) (*model.ScoringConfig, error) {
	if cfg := f.fromCache(ctx); cfg != nil {
		return cfg, nil
	}

	raw, err := f.fetch(ctx)
	if err != nil {
		return nil, eris.Wrap(ErrConfigUnavailable, err.Error())
	}

	if err := ValidateSchema(raw); err != nil {
		return nil, eris.Wrap(ErrConfigUnavailable, err.Error())
	}

	cfg, err := model.ParseScoringConfig(raw)
	if err != nil {
		return nil, eris.Wrap(ErrConfigUnavailable, err.Error())
	}

	if f.opts.Strict {
		if err := ValidateThresholds(cfg); err != nil {
			return nil, eris.Wrap(ErrConfigUnavailable, err.Error())
		}
	}

	f.toCache(ctx, raw, cfg)
	return cfg, nil
}

// Prefetch warms the cache ahead of submission. Errors are logged, never
// surfaced: submission falls back to its own Get.
func (f *Fetcher) Prefetch(ctx context.Context) {
	if _, err := f.Get(ctx); err != nil {
		zap.L().Debug("rubric: prefetch failed", zap.Error(err))
	}
}

func (f *Fetcher) cacheTTL(cfg *model.ScoringConfig) time.Duration {
	ttl := time.Duration(cfg.TTLMillis) * time.Millisecond
	if ttl <= 0 || ttl > f.opts.MaxCacheTTL {
		return f.opts.MaxCacheTTL
	}
	return ttl
}

func (f *Fetcher) fromCache(ctx context.Context) *model.ScoringConfig {
	if f.cache == nil {
		return nil
	}
	raw, err := f.cache.Get(ctx, CacheKey)
	if err != nil {
		return nil
	}
	env, err := store.DecodeEnvelope(raw)
	if err != nil {
		return nil
	}
	cfg, err := model.ParseScoringConfig(env.Data)
	if err != nil {
		return nil
	}
	if store.IsExpired(env, f.cacheTTL(cfg), f.clock()) {
		return nil
	}
	return cfg
}

func (f *Fetcher) toCache(ctx context.Context, raw []byte, cfg *model.ScoringConfig) {
	if f.cache == nil {
		return
	}
	env := &store.Envelope{Timestamp: f.clock().UnixMilli(), Data: raw}
	encoded, err := env.Encode()
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, CacheKey, encoded, f.cacheTTL(cfg)); err != nil {
		zap.L().Debug("rubric: cache write failed", zap.Error(err))
	}
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rubric: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.URL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "rubric: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		req.Header.Set("Cache-Control", "no-store")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("rubric: request failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("rubric: http %d from %s", resp.StatusCode, f.opts.URL)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("rubric: unexpected status %d from %s", resp.StatusCode, f.opts.URL)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			f.backoff(ctx, attempt)
			continue
		}
		return body, nil
	}
	return nil, eris.Wrap(lastErr, "rubric: all retries exhausted")
}

func (f *Fetcher) backoff(ctx context.Context, attempt int) {
	base := 250 * time.Millisecond
	maxBackoff := 5 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
