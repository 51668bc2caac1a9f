package store

import (
	"context"
	"time"
)

// Store is the key-value abstraction every short-lived piece of state goes
// through: PKCE state/verifier pairs, sync handoffs, sessions, rate-limit
// snapshots, and cached API responses. Implementations must be safe for
// concurrent key-based access.
//
// Get returns (nil, nil) when the key is absent or expired; callers rely on
// that to distinguish "not found" from a backend failure.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys returns all live keys matching a redis-style glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// DeletePattern removes every key matching the pattern and reports how
	// many were deleted.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}
