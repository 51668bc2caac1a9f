package ratelimit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
	"github.com/eharris128/mycontentbuddy/internal/store"
)

const keyPrefix = "ratelimit:"

// snapshotTTLGrace keeps a snapshot alive slightly past its own reset so a
// late Check still sees the window roll over instead of a missing key.
const snapshotTTLGrace = time.Minute

// Decision is the advisory admission verdict for one upstream endpoint. The
// gateway never blocks on it; the upstream 429 stays authoritative.
type Decision struct {
	Endpoint    string `json:"endpoint"`
	CanProceed  bool   `json:"canProceed"`
	Limit       int    `json:"limit,omitempty"`
	Remaining   int    `json:"remaining,omitempty"`
	Reset       int64  `json:"resetTime,omitempty"`
	WaitSeconds int64  `json:"waitSeconds,omitempty"`
}

// Tracker keeps the last observed rate-limit snapshot per endpoint in the
// shared key-value store. Store failures always degrade to "allow": an
// unavailable snapshot store removes an optimization, never functionality.
type Tracker struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker constructs a Tracker over the shared store.
func NewTracker(st store.Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.L()
	}
	return &Tracker{store: st, logger: logger, now: time.Now}
}

// WithClock overrides the tracker clock, for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Check consults the stored snapshot for the endpoint. Absent, stale, and
// unreadable snapshots all admit the call.
func (t *Tracker) Check(ctx context.Context, endpoint string) Decision {
	allow := Decision{Endpoint: endpoint, CanProceed: true}

	raw, err := t.store.Get(ctx, keyPrefix+endpoint)
	if err != nil {
		t.logger.Warn("rate limit snapshot unavailable, failing open",
			zap.String("endpoint", endpoint), zap.Error(err))
		return allow
	}
	if raw == nil {
		return allow
	}

	var snapshot domaintwitter.RateLimit
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		t.logger.Warn("rate limit snapshot corrupt, failing open",
			zap.String("endpoint", endpoint), zap.Error(err))
		return allow
	}

	now := t.now()
	if snapshot.Stale(now) {
		// Window rolled over; equivalent to no snapshot at all.
		return allow
	}
	if snapshot.Remaining <= 0 {
		return Decision{
			Endpoint:    endpoint,
			CanProceed:  false,
			Limit:       snapshot.Limit,
			Remaining:   0,
			Reset:       snapshot.Reset,
			WaitSeconds: snapshot.Reset - now.Unix(),
		}
	}
	return Decision{
		Endpoint:   endpoint,
		CanProceed: true,
		Limit:      snapshot.Limit,
		Remaining:  snapshot.Remaining,
		Reset:      snapshot.Reset,
	}
}

// Observe overwrites the endpoint snapshot from response metadata. Called on
// every upstream response that carried quota headers, including ones whose
// requester already disconnected.
func (t *Tracker) Observe(ctx context.Context, endpoint string, rl *domaintwitter.RateLimit) {
	if rl == nil {
		return
	}
	payload, err := json.Marshal(rl)
	if err != nil {
		return
	}
	ttl := time.Until(time.Unix(rl.Reset, 0).Add(snapshotTTLGrace))
	if ttl < snapshotTTLGrace {
		ttl = snapshotTTLGrace
	}
	if err := t.store.Set(ctx, keyPrefix+endpoint, payload, ttl); err != nil {
		t.logger.Warn("failed to persist rate limit snapshot",
			zap.String("endpoint", endpoint), zap.Error(err))
	}
}

// Overview reports the decision for every endpoint with a live snapshot,
// keyed by endpoint name. Best effort: store failures yield an empty map.
func (t *Tracker) Overview(ctx context.Context) map[string]Decision {
	overview := map[string]Decision{}
	keys, err := t.store.Keys(ctx, keyPrefix+"*")
	if err != nil {
		t.logger.Warn("rate limit overview unavailable", zap.Error(err))
		return overview
	}
	for _, key := range keys {
		endpoint := strings.TrimPrefix(key, keyPrefix)
		overview[endpoint] = t.Check(ctx, endpoint)
	}
	return overview
}
