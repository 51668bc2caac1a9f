package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
	"github.com/eharris128/mycontentbuddy/internal/ratelimit"
	"github.com/eharris128/mycontentbuddy/internal/store"
)

func newTestGateway(now time.Time) (*Gateway, *ratelimit.Tracker) {
	clock := func() time.Time { return now }
	tracker := ratelimit.NewTracker(store.NewMemory(), zap.NewNop()).WithClock(clock)
	return New(tracker, zap.NewNop()).WithClock(clock), tracker
}

func TestGateway_RecordsSnapshotOnSuccess(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	g, tracker := newTestGateway(now)

	payload, err := g.Invoke(ctx, "timeline", func(context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return json.RawMessage(`{"data":[]}`), &domaintwitter.RateLimit{Limit: 15, Remaining: 3, Reset: now.Unix() + 300}, nil
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"data":[]}`, string(payload))

	decision := tracker.Check(ctx, "timeline")
	require.True(t, decision.CanProceed)
	require.Equal(t, 3, decision.Remaining)
}

func TestGateway_Classifies429(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	g, tracker := newTestGateway(now)

	_, err := g.Invoke(ctx, "users/me", func(context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		rl := &domaintwitter.RateLimit{Limit: 25, Remaining: 0, Reset: now.Unix() + 120}
		return nil, rl, &domaintwitter.APIError{Status: 429, Body: "Too Many Requests", RateLimit: rl}
	})

	var rle *domaintwitter.RateLimitError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, now.Unix()+120, rle.Reset)
	require.Equal(t, int64(120), rle.WaitSeconds(now))

	// The failing response still updated the snapshot.
	decision := tracker.Check(ctx, "users/me")
	require.False(t, decision.CanProceed)
}

func TestGateway_429WithoutResetDefaults(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	g, _ := newTestGateway(now)

	_, err := g.Invoke(ctx, "tweets/post", func(context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return nil, nil, &domaintwitter.APIError{Status: 429, Body: "slow down"}
	})

	var rle *domaintwitter.RateLimitError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, now.Unix()+900, rle.Reset)
}

func TestGateway_OtherErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(time.Now())

	upstream := &domaintwitter.APIError{Status: 503, Body: "unavailable"}
	_, err := g.Invoke(ctx, "timeline", func(context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return nil, nil, upstream
	})
	require.ErrorIs(t, err, upstream)

	plain := errors.New("network down")
	_, err = g.Invoke(ctx, "timeline", func(context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return nil, nil, plain
	})
	require.ErrorIs(t, err, plain)
}
