package apicache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eharris128/mycontentbuddy/internal/store"
)

func newTestCache(now *time.Time) *Cache {
	clock := func() time.Time { return *now }
	st := store.NewMemoryWithClock(clock)
	windows := Windows{"timeline": 5 * time.Minute, "profile": 30 * time.Minute}
	return New(st, windows, 15*time.Minute, zap.NewNop()).WithClock(clock)
}

func TestCache_HitWithinBucket(t *testing.T) {
	ctx := context.Background()
	// Exactly on a 5-minute bucket boundary, so the whole window lies ahead.
	now := time.UnixMilli(1_700_000_100_000)
	c := newTestCache(&now)

	c.Put(ctx, "timeline", "u1", json.RawMessage(`{"data":[]}`))

	got := c.Get(ctx, "timeline", "u1")
	require.JSONEq(t, `{"data":[]}`, string(got))

	// Still inside the same 5-minute bucket.
	now = now.Add(4 * time.Minute)
	got = c.Get(ctx, "timeline", "u1")
	require.NotNil(t, got)
}

func TestCache_MissAcrossBucketBoundary(t *testing.T) {
	ctx := context.Background()
	// One minute before the 5-minute bucket boundary at 1_700_000_100_000ms.
	now := time.UnixMilli(1_700_000_100_000 - time.Minute.Milliseconds())
	c := newTestCache(&now)

	c.Put(ctx, "timeline", "u1", json.RawMessage(`{"data":[1]}`))
	require.NotNil(t, c.Get(ctx, "timeline", "u1"))

	// Two minutes later the literal age is below any naive TTL, but the
	// bucket has rolled over.
	now = now.Add(2 * time.Minute)
	require.Nil(t, c.Get(ctx, "timeline", "u1"))
}

func TestCache_SubjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	c := newTestCache(&now)

	c.Put(ctx, "profile", "u1", json.RawMessage(`{"id":"1"}`))
	require.Nil(t, c.Get(ctx, "profile", "u2"))
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	c := newTestCache(&now)

	c.Put(ctx, "timeline", "u1", json.RawMessage(`{}`))
	c.Put(ctx, "profile", "u1", json.RawMessage(`{}`))

	deleted := c.Invalidate(ctx, "timeline:*")
	require.Equal(t, 1, deleted)
	require.Nil(t, c.Get(ctx, "timeline", "u1"))
	require.NotNil(t, c.Get(ctx, "profile", "u1"))
}

func TestCache_Status(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	c := newTestCache(&now)

	c.Put(ctx, "timeline", "u1", json.RawMessage(`{}`))
	c.Put(ctx, "timeline", "u2", json.RawMessage(`{}`))
	c.Put(ctx, "lists/owned", "u1", json.RawMessage(`{}`))

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, status["timeline"])
	require.Equal(t, 1, status["lists/owned"])
}
