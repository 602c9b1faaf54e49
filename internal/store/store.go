// Package store persists TTL-bounded JSON envelope records for the lead
// routing engine. Every value is a {ts, data} envelope keyed by a namespaced
// string; backends may additionally enforce the TTL natively, but expiry is
// always re-checked against the envelope timestamp so behavior is identical
// across backends.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by Get when the key is absent or already expired.
var ErrNotFound = eris.New("store: key not found")

// Store is the persistence interface for envelope records.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Envelope wraps stored data with its write timestamp (epoch milliseconds).
type Envelope struct {
	Timestamp int64           `json:"ts"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope wraps data in an envelope stamped at now.
func NewEnvelope(data any, now time.Time) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal envelope data")
	}
	return &Envelope{Timestamp: now.UnixMilli(), Data: raw}, nil
}

// Encode serializes the envelope for storage.
func (e *Envelope) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal envelope")
	}
	return raw, nil
}

// DecodeData unmarshals the envelope payload into v.
func (e *Envelope) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return eris.Wrap(err, "store: unmarshal envelope data")
	}
	return nil
}

// DecodeEnvelope parses a stored envelope.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal envelope")
	}
	return &e, nil
}

// IsExpired reports whether an envelope written at e.Timestamp has outlived
// ttl at the given instant. A zero timestamp is always expired.
func IsExpired(e *Envelope, ttl time.Duration, now time.Time) bool {
	if e == nil || e.Timestamp == 0 {
		return true
	}
	return now.UnixMilli()-e.Timestamp > ttl.Milliseconds()
}

// GetEnvelope reads and decodes an envelope, applying the TTL check. Returns
// ErrNotFound for absent or expired records.
func GetEnvelope(ctx context.Context, s Store, key string, ttl time.Duration, now time.Time) (*Envelope, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if IsExpired(env, ttl, now) {
		return nil, ErrNotFound
	}
	return env, nil
}

// SetEnvelope wraps data in a fresh envelope and writes it with the TTL.
func SetEnvelope(ctx context.Context, s Store, key string, data any, ttl time.Duration, now time.Time) error {
	env, err := NewEnvelope(data, now)
	if err != nil {
		return err
	}
	raw, err := env.Encode()
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}
