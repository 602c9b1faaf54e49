package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	env, err := NewEnvelope(map[string]string{"utm_source": "google"}, now)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), env.Timestamp)

	raw, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, env.Timestamp, decoded.Timestamp)

	var data map[string]string
	require.NoError(t, decoded.DecodeData(&data))
	assert.Equal(t, "google", data["utm_source"])
}

func TestIsExpired(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	ttl := 24 * time.Hour

	fresh := &Envelope{Timestamp: now.Add(-1 * time.Hour).UnixMilli()}
	assert.False(t, IsExpired(fresh, ttl, now))

	// Exactly at the boundary is still valid; expiry is strictly greater.
	boundary := &Envelope{Timestamp: now.Add(-ttl).UnixMilli()}
	assert.False(t, IsExpired(boundary, ttl, now))

	stale := &Envelope{Timestamp: now.Add(-25 * time.Hour).UnixMilli()}
	assert.True(t, IsExpired(stale, ttl, now))

	assert.True(t, IsExpired(nil, ttl, now))
	assert.True(t, IsExpired(&Envelope{}, ttl, now))
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	now := time.UnixMilli(1_700_000_000_000)
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Hour))

	now = now.Add(2 * time.Hour)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvelopeHelpers_TTLApplied(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	now := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, SetEnvelope(ctx, s, "k", "payload", 24*time.Hour, now))

	env, err := GetEnvelope(ctx, s, "k", 24*time.Hour, now.Add(time.Hour))
	require.NoError(t, err)
	var v string
	require.NoError(t, env.DecodeData(&v))
	assert.Equal(t, "payload", v)

	// The envelope timestamp check catches staleness even when the backend
	// has not evicted yet.
	_, err = GetEnvelope(ctx, s, "k", time.Minute, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "bolt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}
