package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
	"github.com/eharris128/mycontentbuddy/internal/store"
)

func TestTracker_CheckExhausted(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(store.NewMemory(), zap.NewNop()).WithClock(func() time.Time { return now })

	tr.Observe(ctx, "timeline", &domaintwitter.RateLimit{Limit: 100, Remaining: 0, Reset: now.Unix() + 120})

	decision := tr.Check(ctx, "timeline")
	require.False(t, decision.CanProceed)
	require.Equal(t, int64(120), decision.WaitSeconds)
	require.Equal(t, now.Unix()+120, decision.Reset)
}

func TestTracker_StaleSnapshotAllows(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(store.NewMemory(), zap.NewNop()).WithClock(func() time.Time { return now })

	tr.Observe(ctx, "timeline", &domaintwitter.RateLimit{Limit: 100, Remaining: 0, Reset: now.Unix() + 120})

	// Advance to exactly the reset instant: the window has rolled over.
	now = now.Add(120 * time.Second)
	decision := tr.Check(ctx, "timeline")
	require.True(t, decision.CanProceed)
}

func TestTracker_HealthySnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(store.NewMemory(), zap.NewNop()).WithClock(func() time.Time { return now })

	tr.Observe(ctx, "users/me", &domaintwitter.RateLimit{Limit: 25, Remaining: 7, Reset: now.Unix() + 600})

	decision := tr.Check(ctx, "users/me")
	require.True(t, decision.CanProceed)
	require.Equal(t, 7, decision.Remaining)
}

func TestTracker_AbsentSnapshotAllows(t *testing.T) {
	tr := NewTracker(store.NewMemory(), zap.NewNop())
	decision := tr.Check(context.Background(), "never-seen")
	require.True(t, decision.CanProceed)
	require.Zero(t, decision.Remaining)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("store down") }
func (failingStore) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("store down")
}
func (failingStore) DeletePattern(context.Context, string) (int, error) {
	return 0, errors.New("store down")
}

func TestTracker_FailsOpenOnStoreErrors(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(failingStore{}, zap.NewNop())

	decision := tr.Check(ctx, "timeline")
	require.True(t, decision.CanProceed)

	// Observe must swallow the failure too.
	tr.Observe(ctx, "timeline", &domaintwitter.RateLimit{Limit: 1, Remaining: 0, Reset: time.Now().Unix() + 60})
	require.Empty(t, tr.Overview(ctx))
}

func TestTracker_Overview(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(store.NewMemory(), zap.NewNop()).WithClock(func() time.Time { return now })

	tr.Observe(ctx, "timeline", &domaintwitter.RateLimit{Limit: 5, Remaining: 2, Reset: now.Unix() + 300})
	tr.Observe(ctx, "lists/owned", &domaintwitter.RateLimit{Limit: 15, Remaining: 0, Reset: now.Unix() + 60})

	overview := tr.Overview(ctx)
	require.Len(t, overview, 2)
	require.True(t, overview["timeline"].CanProceed)
	require.False(t, overview["lists/owned"].CanProceed)
}
