// Package session orchestrates the lead scoring flow for one visitor
// session: attribution capture on page load, scoring and routing on submit,
// and the booking-page resolution afterwards. All cross-page state lives in
// the session's store namespace; nothing is module-global.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadrouter/internal/attribution"
	"github.com/sells-group/leadrouter/internal/identity"
	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/routing"
	"github.com/sells-group/leadrouter/internal/rubric"
	"github.com/sells-group/leadrouter/internal/scoring"
)

// Form is a submitted application form: the answer set plus whatever
// identity fields the prospect filled in, and the query string of the page
// the submit happened on.
type Form struct {
	Answers  model.AnswerSet `json:"answers"`
	Identity model.Identity  `json:"identity"`
	RawQuery string          `json:"raw_query,omitempty"`
}

// Outcome is the result of a submit: the computed classification and the
// navigation effect. Duplicate marks a submit that was ignored because one
// was already in flight or already succeeded.
type Outcome struct {
	Score       int    `json:"score"`
	Tier        int    `json:"tier"`
	Route       string `json:"route"`
	Version     string `json:"version"`
	Destination string `json:"destination"`
	Duplicate   bool   `json:"duplicate,omitempty"`
}

// Session is the explicit per-visitor context object. It owns the submit
// guard and the store-backed managers for its namespace.
type Session struct {
	ID          string
	Attribution *attribution.Manager
	Identity    *identity.Manager
	Rubric      *rubric.Fetcher
	BookingPath string

	mu        sync.Mutex
	submitted bool
}

// New assembles a Session from its collaborators.
func New(id string, attr *attribution.Manager, ident *identity.Manager, fetcher *rubric.Fetcher, bookingPath string) *Session {
	return &Session{
		ID:          id,
		Attribution: attr,
		Identity:    ident,
		Rubric:      fetcher,
		BookingPath: bookingPath,
	}
}

// tryBeginSubmit acquires the idempotency guard. A second submit while one
// is processing, or after one succeeded, is a no-op.
func (s *Session) tryBeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return false
	}
	s.submitted = true
	return true
}

// releaseSubmit re-arms the guard so the user may retry after a failure.
func (s *Session) releaseSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = false
}

// Submit scores the form against the current rubric and derives the
// navigation effect. On rubric failure the degraded path populates
// scoring_status/scoring_error and releases the guard; it never silently
// routes to a default tier.
func (s *Session) Submit(ctx context.Context, form Form, sink FieldSink) (*Outcome, error) {
	if !s.tryBeginSubmit() {
		zap.L().Debug("session: duplicate submit ignored", zap.String("session", s.ID))
		return &Outcome{Duplicate: true}, nil
	}

	cfg, err := s.Rubric.Get(ctx)
	if err != nil {
		s.failSubmit(sink, "config_fetch_failed")
		return nil, err
	}

	score := scoring.Score(cfg, form.Answers)
	tier := routing.TierOf(cfg, score)
	route := routing.RouteOf(cfg, tier)

	if !routing.ValidTier(tier) {
		s.failSubmit(sink, "invalid_tier")
		return nil, eris.Wrapf(routing.ErrInvalidTier, "tier %d", tier)
	}

	destination, err := routing.DestinationOf(cfg, s.BookingPath, tier, route)
	if err != nil {
		s.failSubmit(sink, "invalid_tier")
		return nil, err
	}

	version := cfg.Version
	if version == "" {
		version = "v1"
	}

	sink.SetField("lead_score", strconv.Itoa(score))
	sink.SetField("lead_tier", strconv.Itoa(tier))
	sink.SetField("lead_route", route)
	sink.SetField("scoring_version", version)
	sink.SetField("scoring_status", "ok")
	for qid, key := range form.Answers {
		if key != nil {
			sink.SetField(qid+"_key", *key)
		}
	}

	s.persistCapture(ctx, form, sink)

	zap.L().Info("session: submit scored",
		zap.String("session", s.ID),
		zap.Int("score", score),
		zap.Int("tier", tier),
		zap.String("route", route),
	)

	return &Outcome{
		Score:       score,
		Tier:        tier,
		Route:       route,
		Version:     version,
		Destination: destination,
	}, nil
}

func (s *Session) failSubmit(sink FieldSink, reason string) {
	sink.SetField("scoring_status", "error")
	sink.SetField("scoring_error", reason)
	s.releaseSubmit()
	zap.L().Warn("session: submit degraded",
		zap.String("session", s.ID),
		zap.String("reason", reason),
	)
}

// persistCapture stores the captured identity and folds it, together with
// the page's query string, into the attribution record.
func (s *Session) persistCapture(ctx context.Context, form Form, sink FieldSink) {
	if !form.Identity.Empty() {
		// Best-effort: storage being blocked must not fail the flow.
		_ = s.Identity.Set(ctx, form.Identity)
	}

	extra := map[string]string{
		"name":  form.Identity.Name,
		"email": form.Identity.Email,
		"phone": form.Identity.Phone,
	}
	merged := s.Attribution.CaptureForSubmit(ctx, form.RawQuery, extra)
	writeRawQuery(sink, merged)
}

// Hydration is what a freshly loaded page prefills from stored state.
type Hydration struct {
	Merged   map[string]attribution.Value `json:"merged"`
	UTM      map[string]string            `json:"utm"`
	Identity *model.Identity              `json:"identity,omitempty"`
}

// PageLoad captures the page's query string into the attribution record and
// returns the hydration values, prefetching the rubric concurrently to hide
// network latency from the eventual submit.
func (s *Session) PageLoad(ctx context.Context, rawQuery string, sink FieldSink) *Hydration {
	var g errgroup.Group
	g.Go(func() error {
		s.Rubric.Prefetch(ctx)
		return nil
	})

	merged := s.Attribution.CaptureFromURL(ctx, rawQuery)
	utm := s.Attribution.StoredUTM(ctx)
	ident := s.Identity.Get(ctx)

	writeRawQuery(sink, merged)
	for k, v := range utm {
		sink.SetField(k, v)
	}
	if ident != nil {
		if ident.Name != "" {
			sink.SetField("name", ident.Name)
		}
		if ident.Email != "" {
			sink.SetField("email", ident.Email)
		}
		if ident.Phone != "" {
			sink.SetField("phone", ident.Phone)
		}
	}

	_ = g.Wait()
	return &Hydration{Merged: merged, UTM: utm, Identity: ident}
}

func writeRawQuery(sink FieldSink, merged map[string]attribution.Value) {
	raw, err := json.Marshal(merged)
	if err != nil {
		zap.L().Warn("session: marshal raw query", zap.Error(err))
		return
	}
	sink.SetField("raw_query", string(raw))
}

// WaitReady polls probe until it reports true, the poll ceiling elapses, or
// ctx is done. It returns false when the dependency never became ready; the
// caller must fall back rather than hang.
func WaitReady(ctx context.Context, probe func() bool, interval, ceiling time.Duration) bool {
	if interval <= 0 {
		interval = 25 * time.Millisecond
	}
	if ceiling <= 0 {
		ceiling = 6 * time.Second
	}

	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		if probe() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
		}
	}
}

// IsConfigUnavailable reports whether err is the rubric degraded-path error.
func IsConfigUnavailable(err error) bool {
	return errors.Is(err, rubric.ErrConfigUnavailable)
}
