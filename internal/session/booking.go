package session

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sells-group/leadrouter/internal/attribution"
	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/routing"
)

// BookingView is what the booking page renders for an arriving lead. Exactly
// one of RedirectURL and Embed is set; both empty means the rubric has no
// routing entry for the tier and there is nothing to render.
type BookingView struct {
	Tier        int           `json:"tier"`
	Route       string        `json:"route,omitempty"`
	RedirectURL string        `json:"redirect_url,omitempty"`
	Embed       *EmbedContent `json:"embed,omitempty"`
}

// EmbedContent carries the scheduler embed plus the prefill payload
// assembled from stored identity and first-touch UTM values. Rendering the
// widget itself is the page's job.
type EmbedContent struct {
	URL      string            `json:"url"`
	Headline string            `json:"headline,omitempty"`
	Prefill  *model.Identity   `json:"prefill,omitempty"`
	UTM      map[string]string `json:"utm,omitempty"`
}

// Booking resolves the booking experience for the tier carried in the
// booking page's query string. A missing or unknown tier fails soft: the
// view is nil, not an error.
func (s *Session) Booking(ctx context.Context, rawQuery string) (*BookingView, error) {
	cfg, err := s.Rubric.Get(ctx)
	if err != nil {
		return nil, err
	}

	query, _ := url.ParseQuery(rawQuery)
	tier, _ := strconv.Atoi(query.Get("tier"))
	route := query.Get(routing.LeadTierParam(cfg))

	entry := routing.Resolve(cfg, tier)
	if entry == nil {
		return nil, nil
	}

	view := &BookingView{Tier: tier, Route: route}

	if entry.Type == "redirect" {
		view.RedirectURL = entry.URL
		if view.RedirectURL == "" {
			view.RedirectURL = routing.DefaultDownsellPath
		}
		return view, nil
	}

	utm := s.Attribution.StoredUTM(ctx)
	if len(utm) == 0 {
		utm = attribution.UTMFrom(s.Attribution.ReadMerged(ctx))
	}

	view.Embed = &EmbedContent{
		URL:      entry.URL,
		Headline: entry.Headline,
		Prefill:  s.Identity.Get(ctx),
		UTM:      utm,
	}
	return view, nil
}
