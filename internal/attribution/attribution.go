// Package attribution maintains the merged record of URL query parameters a
// prospect has arrived with, so marketing attribution survives page
// navigations without a backend session. Every observed value is kept: a key
// seen with different values across visits grows an ordered sequence instead
// of being overwritten.
package attribution

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/store"
)

// DefaultTTL bounds how long an attribution record stays readable.
const DefaultTTL = 24 * time.Hour

const (
	recordKey        = "attribution"
	utmSessionPrefix = "utm_session:"
	utmCookiePrefix  = "utm_cookie:"
)

// Manager reads and writes the attribution record for one session namespace.
// Storage failures are absorbed: reads degrade to an empty record and writes
// are dropped, so the scoring flow never fails on blocked storage.
type Manager struct {
	store store.Store
	ns    string
	ttl   time.Duration
	clock func() time.Time
}

// NewManager creates a Manager over the given store and session namespace.
func NewManager(s store.Store, namespace string) *Manager {
	return &Manager{store: s, ns: namespace, ttl: DefaultTTL, clock: time.Now}
}

// WithTTL overrides the record TTL. Non-positive values keep the default.
func (m *Manager) WithTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

// WithClock overrides the wall clock, for expiry tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

func (m *Manager) key(suffix string) string {
	return m.ns + ":" + suffix
}

// ParseQuery converts a raw query string into a Value mapping. Repeated keys
// become a sequence in first-seen order. Malformed escapes are tolerated:
// whatever parsed is kept.
func ParseQuery(rawQuery string) map[string]Value {
	parsed, err := url.ParseQuery(rawQuery)
	if err != nil {
		zap.L().Debug("attribution: partial query parse", zap.Error(err))
	}
	out := make(map[string]Value, len(parsed))
	for k, vs := range parsed {
		if len(vs) == 0 {
			continue
		}
		out[k] = Value(vs)
	}
	return out
}

// ReadMerged returns the stored record's data, or an empty mapping when the
// record is absent, expired, or unreadable.
func (m *Manager) ReadMerged(ctx context.Context) map[string]Value {
	env, err := store.GetEnvelope(ctx, m.store, m.key(recordKey), m.ttl, m.clock())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("attribution: read record", zap.Error(err))
		}
		return map[string]Value{}
	}
	var data map[string]Value
	if err := env.DecodeData(&data); err != nil {
		zap.L().Warn("attribution: decode record", zap.Error(err))
		return map[string]Value{}
	}
	return data
}

// CaptureFromURL merges the current query string into the stored record and
// returns the merged mapping. The record is written back only when the URL
// contributed at least one parameter; navigating without query parameters
// leaves the stored record untouched.
func (m *Manager) CaptureFromURL(ctx context.Context, rawQuery string) map[string]Value {
	return m.capture(ctx, rawQuery, nil)
}

// CaptureForSubmit behaves like CaptureFromURL but additionally folds
// supplemental scalar values (captured lead identity) into the merged
// mapping before it is persisted.
func (m *Manager) CaptureForSubmit(ctx context.Context, rawQuery string, extra map[string]string) map[string]Value {
	return m.capture(ctx, rawQuery, extra)
}

func (m *Manager) capture(ctx context.Context, rawQuery string, extra map[string]string) map[string]Value {
	fromURL := ParseQuery(rawQuery)
	merged := MergeMaps(m.ReadMerged(ctx), fromURL)

	if len(extra) > 0 {
		add := make(map[string]Value, len(extra))
		for k, v := range extra {
			if v == "" {
				continue
			}
			add[k] = Scalar(v)
		}
		merged = MergeMaps(merged, add)
	}

	if len(fromURL) == 0 {
		return merged
	}

	now := m.clock()
	if err := store.SetEnvelope(ctx, m.store, m.key(recordKey), merged, m.ttl, now); err != nil {
		zap.L().Warn("attribution: write record", zap.Error(err))
	}
	m.saveUTM(ctx, fromURL, now)

	return merged
}

// saveUTM persists first-touch UTM values from the URL to the two
// independent side channels so a later page can recover them even when the
// full record is gone.
func (m *Manager) saveUTM(ctx context.Context, fromURL map[string]Value, now time.Time) {
	for _, k := range model.UTMKeys {
		v := fromURL[k].First()
		if v == "" {
			continue
		}
		for _, prefix := range []string{utmSessionPrefix, utmCookiePrefix} {
			if err := store.SetEnvelope(ctx, m.store, m.key(prefix+k), v, m.ttl, now); err != nil {
				zap.L().Warn("attribution: write utm channel",
					zap.String("key", k),
					zap.Error(err),
				)
			}
		}
	}
}

// StoredUTM recovers first-touch UTM values from the side channels, session
// channel first, cookie channel as fallback.
func (m *Manager) StoredUTM(ctx context.Context) map[string]string {
	out := make(map[string]string)
	for _, k := range model.UTMKeys {
		for _, prefix := range []string{utmSessionPrefix, utmCookiePrefix} {
			env, err := store.GetEnvelope(ctx, m.store, m.key(prefix+k), m.ttl, m.clock())
			if err != nil {
				continue
			}
			var v string
			if err := env.DecodeData(&v); err != nil || v == "" {
				continue
			}
			out[k] = v
			break
		}
	}
	return out
}

// UTMFrom extracts the UTM scalar values present in a merged mapping.
func UTMFrom(data map[string]Value) map[string]string {
	out := make(map[string]string)
	for _, k := range model.UTMKeys {
		if v := data[k].First(); v != "" {
			out[k] = v
		}
	}
	return out
}
