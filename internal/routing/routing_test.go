package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadrouter/internal/model"
)

func intPtr(i int) *int { return &i }

func thresholdsConfig() *model.ScoringConfig {
	return &model.ScoringConfig{
		Thresholds: model.Thresholds{
			Tier5Min: intPtr(80),
			Tier4Min: intPtr(60),
			Tier3Min: intPtr(40),
			Tier2Min: intPtr(10),
		},
	}
}

func TestTierOf(t *testing.T) {
	cfg := thresholdsConfig()

	assert.Equal(t, 1, TierOf(cfg, 0))
	assert.Equal(t, 1, TierOf(cfg, 9))
	assert.Equal(t, 2, TierOf(cfg, 10))
	assert.Equal(t, 3, TierOf(cfg, 40))
	assert.Equal(t, 4, TierOf(cfg, 79))
	assert.Equal(t, 5, TierOf(cfg, 80))
	assert.Equal(t, 5, TierOf(cfg, 500))
}

func TestTierOf_Monotonic(t *testing.T) {
	cfg := thresholdsConfig()
	prev := 0
	for score := -5; score <= 100; score++ {
		tier := TierOf(cfg, score)
		assert.GreaterOrEqual(t, tier, prev, "score %d", score)
		prev = tier
	}
}

func TestTierOf_AbsentThresholdsNeverMatch(t *testing.T) {
	cfg := &model.ScoringConfig{
		Thresholds: model.Thresholds{Tier2Min: intPtr(10)},
	}
	assert.Equal(t, 1, TierOf(cfg, 9))
	assert.Equal(t, 2, TierOf(cfg, 10))
	assert.Equal(t, 2, TierOf(cfg, 1000), "no tier 3-5 thresholds configured")

	empty := &model.ScoringConfig{}
	assert.Equal(t, 1, TierOf(empty, 1000))
}

func TestRouteOf_ConfigValuesAndFallbacks(t *testing.T) {
	cfg := &model.ScoringConfig{
		Outputs: model.Outputs{
			LeadTierValues: map[string]string{
				"tier_5": "AE_SENIOR",
				"tier_2": "",
			},
		},
	}

	assert.Equal(t, "AE_SENIOR", RouteOf(cfg, 5))
	assert.Equal(t, "AE", RouteOf(cfg, 4))
	assert.Equal(t, "AE", RouteOf(cfg, 3))
	assert.Equal(t, "SDR", RouteOf(cfg, 2), "empty config value falls back")
	assert.Equal(t, "DOWNSELL", RouteOf(cfg, 1))
}

func TestDestinationOf_TierOne(t *testing.T) {
	cfg := &model.ScoringConfig{
		Routing: map[string]model.RoutingEntry{
			"tier_1": {Type: "redirect", URL: "/starter-offer"},
		},
	}

	// Tier 1 ignores the route label entirely.
	dest, err := DestinationOf(cfg, "/call-booking", 1, "DOWNSELL")
	require.NoError(t, err)
	assert.Equal(t, "/starter-offer", dest)

	// Without a routing entry the static default applies.
	dest, err = DestinationOf(&model.ScoringConfig{}, "/call-booking", 1, "whatever")
	require.NoError(t, err)
	assert.Equal(t, DefaultDownsellPath, dest)
}

func TestDestinationOf_BookingTiers(t *testing.T) {
	cfg := &model.ScoringConfig{
		Outputs: model.Outputs{LeadTierParam: "lead-tier"},
	}

	dest, err := DestinationOf(cfg, "/call-booking", 2, "SDR")
	require.NoError(t, err)
	assert.Equal(t, "/call-booking?lead-tier=SDR&tier=2", dest)

	dest, err = DestinationOf(cfg, "", 5, "AE")
	require.NoError(t, err)
	assert.Equal(t, DefaultBookingPath+"?lead-tier=AE&tier=5", dest)
}

func TestDestinationOf_DefaultParamName(t *testing.T) {
	dest, err := DestinationOf(&model.ScoringConfig{}, "/call-booking", 3, "AE")
	require.NoError(t, err)
	assert.Contains(t, dest, "lead-tier=AE")
	assert.Contains(t, dest, "tier=3")
}

func TestDestinationOf_InvalidTier(t *testing.T) {
	_, err := DestinationOf(&model.ScoringConfig{}, "/call-booking", 0, "AE")
	assert.ErrorIs(t, err, ErrInvalidTier)

	_, err = DestinationOf(&model.ScoringConfig{}, "/call-booking", 6, "AE")
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestResolve(t *testing.T) {
	cfg := &model.ScoringConfig{
		Routing: map[string]model.RoutingEntry{
			"tier_1": {Type: "redirect", URL: "/starter-offer"},
			"tier_3": {Type: "embed", URL: "https://calendly.com/x/ae", Headline: "Book your call"},
		},
	}

	entry := Resolve(cfg, 3)
	require.NotNil(t, entry)
	assert.Equal(t, "embed", entry.Type)
	assert.Equal(t, "Book your call", entry.Headline)

	assert.Nil(t, Resolve(cfg, 4), "missing tier entry fails soft")

	// Out-of-range tiers resolve to the tier 1 entry.
	entry = Resolve(cfg, 0)
	require.NotNil(t, entry)
	assert.Equal(t, "/starter-offer", entry.URL)
}
