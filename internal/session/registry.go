package session

import (
	"sync"
	"time"

	"github.com/sells-group/leadrouter/internal/attribution"
	"github.com/sells-group/leadrouter/internal/identity"
	"github.com/sells-group/leadrouter/internal/rubric"
	"github.com/sells-group/leadrouter/internal/store"
)

// Registry hands out one Session per visitor id so the submit guard and
// store namespace survive across requests.
type Registry struct {
	store       store.Store
	fetcher     *rubric.Fetcher
	ttl         time.Duration
	bookingPath string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry over shared collaborators.
func NewRegistry(s store.Store, fetcher *rubric.Fetcher, ttl time.Duration, bookingPath string) *Registry {
	return &Registry{
		store:       s,
		fetcher:     fetcher,
		ttl:         ttl,
		bookingPath: bookingPath,
		sessions:    make(map[string]*Session),
	}
}

// Get returns the Session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}

	ns := "sess:" + id
	s := New(
		id,
		attribution.NewManager(r.store, ns).WithTTL(r.ttl),
		identity.NewManager(r.store, ns).WithTTL(r.ttl),
		r.fetcher,
		r.bookingPath,
	)
	r.sessions[id] = s
	return s
}
