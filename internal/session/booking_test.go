package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadrouter/internal/model"
)

func TestBooking_RedirectView(t *testing.T) {
	sess, _, _ := newTestSession(t, testRubric)

	view, err := sess.Booking(context.Background(), "tier=1&lead-tier=DOWNSELL")
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, 1, view.Tier)
	assert.Equal(t, "DOWNSELL", view.Route)
	assert.Equal(t, "/fast-starter-program", view.RedirectURL)
	assert.Nil(t, view.Embed)
}

func TestBooking_EmbedViewWithPrefill(t *testing.T) {
	sess, _, _ := newTestSession(t, testRubric)
	ctx := context.Background()

	require.NoError(t, sess.Identity.Set(ctx, model.Identity{
		Name:  "Jo",
		Email: "jo@example.com",
	}))
	sess.Attribution.CaptureFromURL(ctx, "utm_source=google&utm_campaign=spring")

	view, err := sess.Booking(ctx, "tier=5&lead-tier=AE")
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, 5, view.Tier)
	assert.Equal(t, "AE", view.Route)
	assert.Empty(t, view.RedirectURL)
	require.NotNil(t, view.Embed)
	assert.Equal(t, "https://calendly.com/x/ae", view.Embed.URL)
	assert.Equal(t, "You qualify", view.Embed.Headline)
	require.NotNil(t, view.Embed.Prefill)
	assert.Equal(t, "Jo", view.Embed.Prefill.Name)
	assert.Equal(t, "google", view.Embed.UTM["utm_source"])
	assert.Equal(t, "spring", view.Embed.UTM["utm_campaign"])
}

func TestBooking_EmbedUTMFallsBackToRecord(t *testing.T) {
	sess, s, _ := newTestSession(t, testRubric)
	ctx := context.Background()

	sess.Attribution.CaptureFromURL(ctx, "utm_source=linkedin")
	// Drop both side channels so only the attribution record remains.
	for _, k := range model.UTMKeys {
		require.NoError(t, s.Delete(ctx, "sess:test-session:utm_session:"+k))
		require.NoError(t, s.Delete(ctx, "sess:test-session:utm_cookie:"+k))
	}

	view, err := sess.Booking(ctx, "tier=5&lead-tier=AE")
	require.NoError(t, err)
	require.NotNil(t, view.Embed)
	assert.Equal(t, "linkedin", view.Embed.UTM["utm_source"])
}

func TestBooking_MissingRoutingEntry(t *testing.T) {
	sess, _, _ := newTestSession(t, testRubric)

	// No routing entry for tier 3 in the rubric: nothing to render.
	view, err := sess.Booking(context.Background(), "tier=3&lead-tier=AE")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestBooking_AbsentTierCoercesToDownsell(t *testing.T) {
	sess, _, _ := newTestSession(t, testRubric)

	view, err := sess.Booking(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "/fast-starter-program", view.RedirectURL)
}

func TestBooking_ConfigUnavailable(t *testing.T) {
	sess := newFailingSession(t)

	view, err := sess.Booking(context.Background(), "tier=5")
	require.Error(t, err)
	assert.True(t, IsConfigUnavailable(err))
	assert.Nil(t, view)
}
