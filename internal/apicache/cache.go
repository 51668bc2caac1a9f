package apicache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eharris128/mycontentbuddy/internal/store"
)

const keyPrefix = "cache:"

// ttlGrace extends the stored TTL past the bucket window so a read late in
// the bucket does not race eviction.
const ttlGrace = time.Minute

// Windows maps endpoint names to their cache windows. Wider windows protect
// the endpoints with the tightest provider quotas.
type Windows map[string]time.Duration

// Cache stores full upstream responses keyed by (endpoint, subject, time
// bucket). The bucket is part of the key, so a new window always misses even
// when the previous entry has not yet expired, and hits within one window
// need no timestamp comparison.
type Cache struct {
	store   store.Store
	windows Windows
	def     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Cache; endpoints absent from windows use def.
func New(st store.Store, windows Windows, def time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.L()
	}
	if def <= 0 {
		def = 5 * time.Minute
	}
	return &Cache{store: st, windows: windows, def: def, logger: logger, now: time.Now}
}

// WithClock overrides the cache clock, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the payload cached for the current time bucket, or nil on a
// miss. Store failures read as misses so a cache outage degrades to a live
// call.
func (c *Cache) Get(ctx context.Context, endpoint, subject string) json.RawMessage {
	payload, err := c.store.Get(ctx, c.key(endpoint, subject))
	if err != nil {
		c.logger.Warn("response cache read failed, falling through to live call",
			zap.String("endpoint", endpoint), zap.Error(err))
		return nil
	}
	return payload
}

// Put stores the payload for the current time bucket.
func (c *Cache) Put(ctx context.Context, endpoint, subject string, payload json.RawMessage) {
	ttl := c.window(endpoint) + ttlGrace
	if err := c.store.Set(ctx, c.key(endpoint, subject), payload, ttl); err != nil {
		c.logger.Warn("response cache write failed",
			zap.String("endpoint", endpoint), zap.Error(err))
	}
}

// Invalidate removes all entries whose endpoint matches the glob pattern.
// Best effort: failures are logged, never fatal.
func (c *Cache) Invalidate(ctx context.Context, pattern string) int {
	deleted, err := c.store.DeletePattern(ctx, keyPrefix+pattern)
	if err != nil {
		c.logger.Warn("response cache invalidation failed",
			zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	return deleted
}

// Status reports live entry counts per endpoint for the introspection route.
func (c *Cache) Status(ctx context.Context) (map[string]int, error) {
	keys, err := c.store.Keys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	counts := map[string]int{}
	for _, key := range keys {
		rest := strings.TrimPrefix(key, keyPrefix)
		// Key layout is cache:{endpoint}:{subject}:{bucket}; the endpoint
		// itself may contain slashes but never colons.
		if idx := strings.Index(rest, ":"); idx > 0 {
			counts[rest[:idx]]++
		}
	}
	return counts, nil
}

func (c *Cache) key(endpoint, subject string) string {
	window := c.window(endpoint)
	bucket := c.now().UnixMilli() / window.Milliseconds()
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, endpoint, subject, bucket)
}

func (c *Cache) window(endpoint string) time.Duration {
	if w, ok := c.windows[endpoint]; ok && w > 0 {
		return w
	}
	return c.def
}
