// Package identity persists the prospect's self-reported contact details,
// written once at lead-capture time and read by every downstream page within
// the TTL. Unlike attribution, identity fields are scalar: when a stored
// field arrives as a sequence (duplicate form fields), the last element wins.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadrouter/internal/attribution"
	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/store"
)

// DefaultTTL bounds how long an identity record stays readable.
const DefaultTTL = 24 * time.Hour

const recordKey = "identity"

// Manager reads and writes the identity record for one session namespace.
// Storage failures are absorbed the same way as in the attribution store.
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

func (m *Manager) key() string {
	return m.ns + ":" + recordKey
}

// Set overwrites the whole record with a fresh timestamp. Fields are trimmed
// and the phone number is normalized to E.164 when it parses. Placeholder
// strings are dropped before the write.
func (m *Manager) Set(ctx context.Context, id model.Identity) error {
	clean := model.Identity{
		Name:  cleanField(id.Name),
		Email: cleanField(id.Email),
		Phone: NormalizePhone(cleanField(id.Phone)),
	}
	err := store.SetEnvelope(ctx, m.store, m.key(), clean, m.ttl, m.clock())
	if err != nil {
		zap.L().Warn("identity: write record", zap.Error(err))
	}
	return err
}

// Get returns the stored identity, or nil when the record is expired,
// absent, or all fields are empty after trimming.
func (m *Manager) Get(ctx context.Context) *model.Identity {
	env, err := store.GetEnvelope(ctx, m.store, m.key(), m.ttl, m.clock())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("identity: read record", zap.Error(err))
		}
		return nil
	}

	// Stored fields may each be a scalar or a sequence; read defensively.
	var raw map[string]attribution.Value
	if err := env.DecodeData(&raw); err != nil {
		zap.L().Warn("identity: decode record", zap.Error(err))
		return nil
	}

	id := model.Identity{
		Name:  cleanField(raw["name"].Last()),
		Email: cleanField(raw["email"].Last()),
		Phone: cleanField(raw["phone"].Last()),
	}
	if id.Empty() {
		return nil
	}
	return &id
}

// cleanField trims and filters out the placeholder strings serializers leave
// behind for missing values.
func cleanField(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "", "undefined", "null":
		return ""
	}
	return v
}
