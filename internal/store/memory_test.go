package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, m.Delete(ctx, "k"))
	got, err = m.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	m := NewMemoryWithClock(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)

	now = now.Add(time.Minute + time.Second)
	got, err = m.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got, "expired entry must read as absent")
}

func TestMemory_PatternOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "cache:timeline:u1:1", []byte("a"), 0))
	require.NoError(t, m.Set(ctx, "cache:timeline:u1:2", []byte("b"), 0))
	require.NoError(t, m.Set(ctx, "cache:profile:u1:1", []byte("c"), 0))

	keys, err := m.Keys(ctx, "cache:timeline:*")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	deleted, err := m.DeletePattern(ctx, "cache:timeline:*")
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	keys, err = m.Keys(ctx, "cache:*")
	require.NoError(t, err)
	require.Equal(t, []string{"cache:profile:u1:1"}, keys)
}

func TestGlobMatch(t *testing.T) {
	require.True(t, globMatch("*", "anything"))
	require.True(t, globMatch("cache:*:u1:*", "cache:timeline:u1:42"))
	require.False(t, globMatch("cache:timeline:*", "cache:profile:u1:1"))
	require.True(t, globMatch("exact", "exact"))
	require.False(t, globMatch("exact", "exactly"))
}
