package rubric

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/store"
)

const validConfig = `{
	"version": "v3",
	"ttl_ms": 600000,
	"questions": [
		{"id": "revenue", "answers": {"over_100k": 30, "under_100k": 10}},
		{"id": "notes", "enrichment_only": true}
	],
	"rules": {
		"conditional_scoring": [
			{"if_question_id": "revenue", "if_answer_equals": "under_100k", "ignore_question_ids": ["notes"]}
		]
	},
	"thresholds": {"tier_5_min": 80, "tier_4_min": 60, "tier_3_min": 40, "tier_2_min": 10},
	"outputs": {"lead_tier_values": {"tier_2": "SDR"}, "lead_tier_param": "lead-tier"},
	"routing": {"tier_1": {"type": "redirect", "url": "/fast-starter-program"}}
}`

func newFetcherFor(t *testing.T, handler http.HandlerFunc, cache store.Store) *Fetcher {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewFetcher(Options{URL: ts.URL, MaxRetries: 3}, cache)
}

func TestFetcher_Get(t *testing.T) {
	f := newFetcherFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		fmt.Fprint(w, validConfig)
	}, nil)

	cfg, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v3", cfg.Version)
	assert.Len(t, cfg.Questions, 2)
	require.NotNil(t, cfg.Thresholds.Tier2Min)
	assert.Equal(t, 10, *cfg.Thresholds.Tier2Min)
}

func TestFetcher_CacheHitSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	f := newFetcherFor(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, validConfig)
	}, store.NewMemory())

	_, err := f.Get(context.Background())
	require.NoError(t, err)
	_, err = f.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_CacheExpiryRefetches(t *testing.T) {
	var hits atomic.Int32
	cache := store.NewMemory()
	f := newFetcherFor(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, validConfig)
	}, cache)

	now := time.Now()
	f.WithClock(func() time.Time { return now })

	_, err := f.Get(context.Background())
	require.NoError(t, err)

	// Past the document's own ttl_ms (10 minutes) the cache is stale.
	now = now.Add(11 * time.Minute)
	_, err = f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	ts.Close()

	f := NewFetcher(Options{URL: ts.URL, MaxRetries: 2}, nil)
	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrConfigUnavailable)
}

func TestFetcher_MalformedBody(t *testing.T) {
	f := newFetcherFor(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not json at all")
	}, nil)

	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrConfigUnavailable)
}

func TestFetcher_SchemaRejection(t *testing.T) {
	f := newFetcherFor(t, func(w http.ResponseWriter, _ *http.Request) {
		// questions must be an array.
		fmt.Fprint(w, `{"version": "v1", "questions": {"id": "x"}}`)
	}, nil)

	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrConfigUnavailable)
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	f := newFetcherFor(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, validConfig)
	}, nil)

	cfg, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v3", cfg.Version)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_ClientErrorDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	f := newFetcherFor(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrConfigUnavailable)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_StrictThresholds(t *testing.T) {
	bad := `{"version": "v1", "questions": [], "thresholds": {"tier_5_min": 10, "tier_2_min": 50}}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, bad)
	}))
	t.Cleanup(ts.Close)

	permissive := NewFetcher(Options{URL: ts.URL}, nil)
	_, err := permissive.Get(context.Background())
	require.NoError(t, err, "non-monotonic thresholds accepted by default")

	strict := NewFetcher(Options{URL: ts.URL, Strict: true}, nil)
	_, err = strict.Get(context.Background())
	assert.ErrorIs(t, err, ErrConfigUnavailable)
}

func TestValidateThresholds(t *testing.T) {
	good := &model.ScoringConfig{Thresholds: model.Thresholds{
		Tier5Min: intPtr(80), Tier3Min: intPtr(40), Tier2Min: intPtr(10),
	}}
	assert.NoError(t, ValidateThresholds(good))

	bad := &model.ScoringConfig{Thresholds: model.Thresholds{
		Tier5Min: intPtr(10), Tier4Min: intPtr(60),
	}}
	assert.Error(t, ValidateThresholds(bad))

	assert.NoError(t, ValidateThresholds(&model.ScoringConfig{}))
}

func TestValidateSchema(t *testing.T) {
	assert.NoError(t, ValidateSchema([]byte(validConfig)))
	assert.Error(t, ValidateSchema([]byte(`{"questions": []}`)), "version required")
	assert.Error(t, ValidateSchema([]byte(`{"version":"v1","questions":[{"id":"q","answers":{"a":"ten"}}]}`)),
		"points must be integers")
}

func intPtr(i int) *int { return &i }
