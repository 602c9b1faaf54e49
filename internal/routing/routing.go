// Package routing maps a lead score to a priority tier, the tier to a sales
// queue route label, and both to the destination the prospect is sent to.
package routing

import (
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadrouter/internal/model"
)

// ErrInvalidTier guards against a computed tier outside 1..5. Unreachable
// given TierOf, but checked before any navigation effect.
var ErrInvalidTier = eris.New("routing: invalid tier")

// Defaults applied when the rubric omits the corresponding output fields.
const (
	DefaultBookingPath   = "/call-booking"
	DefaultDownsellPath  = "/fast-starter-program"
	DefaultLeadTierParam = "lead-tier"
)

var defaultRoutes = map[int]string{
	5: "AE",
	4: "AE",
	3: "AE",
	2: "SDR",
	1: "DOWNSELL",
}

// TierOf returns the highest tier whose minimum threshold the score meets,
// falling through to tier 1. An absent threshold never matches, so
// evaluation is first-match-wins from tier 5 down.
func TierOf(cfg *model.ScoringConfig, score int) int {
	t := cfg.Thresholds
	switch {
	case t.Tier5Min != nil && score >= *t.Tier5Min:
		return 5
	case t.Tier4Min != nil && score >= *t.Tier4Min:
		return 4
	case t.Tier3Min != nil && score >= *t.Tier3Min:
		return 3
	case t.Tier2Min != nil && score >= *t.Tier2Min:
		return 2
	default:
		return 1
	}
}

// ValidTier reports whether tier is within the supported 1..5 range.
func ValidTier(tier int) bool {
	return tier >= 1 && tier <= 5
}

func tierKey(tier int) string {
	return fmt.Sprintf("tier_%d", tier)
}

// RouteOf looks up the route label for a tier in outputs.lead_tier_values,
// with fixed per-tier fallbacks when the rubric omits an entry.
func RouteOf(cfg *model.ScoringConfig, tier int) string {
	if v, ok := cfg.Outputs.LeadTierValues[tierKey(tier)]; ok && v != "" {
		return v
	}
	return defaultRoutes[tier]
}

// LeadTierParam returns the query parameter name carrying the route label.
func LeadTierParam(cfg *model.ScoringConfig) string {
	if cfg.Outputs.LeadTierParam != "" {
		return cfg.Outputs.LeadTierParam
	}
	return DefaultLeadTierParam
}

// DestinationOf builds the URL the prospect navigates to after scoring.
// Tier 1 always goes to the static downsell destination regardless of route
// label; tiers 2-5 go to the booking page carrying the route label and tier
// as query parameters.
func DestinationOf(cfg *model.ScoringConfig, bookingPath string, tier int, route string) (string, error) {
	if !ValidTier(tier) {
		return "", eris.Wrapf(ErrInvalidTier, "tier %d", tier)
	}

	if tier == 1 {
		if entry, ok := cfg.Routing[tierKey(1)]; ok && entry.URL != "" {
			return entry.URL, nil
		}
		return DefaultDownsellPath, nil
	}

	if bookingPath == "" {
		bookingPath = DefaultBookingPath
	}
	qs := url.Values{}
	qs.Set(LeadTierParam(cfg), route)
	qs.Set("tier", fmt.Sprintf("%d", tier))
	return bookingPath + "?" + qs.Encode(), nil
}

// Resolve returns the routing entry for a tier, or nil when the rubric has
// no entry for it. A nil result means "no content to render", not an error:
// the booking page fails soft on unexpected tiers.
func Resolve(cfg *model.ScoringConfig, tier int) *model.RoutingEntry {
	if !ValidTier(tier) {
		tier = 1
	}
	entry, ok := cfg.Routing[tierKey(tier)]
	if !ok {
		return nil
	}
	return &entry
}
