package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
	"github.com/eharris128/mycontentbuddy/internal/ratelimit"
)

// defaultResetWindow is assumed when the provider returns 429 without a
// reset header (Twitter's app-level windows are 15 minutes).
const defaultResetWindow = 900 * time.Second

// CallFunc is one upstream call: it returns the raw payload plus whatever
// rate-limit metadata the response carried.
type CallFunc func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error)

// Gateway funnels every outbound Twitter call through a uniform
// quota-tracking and error-classification layer.
type Gateway struct {
	tracker *ratelimit.Tracker
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Gateway over the snapshot tracker.
func New(tracker *ratelimit.Tracker, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.L()
	}
	return &Gateway{tracker: tracker, logger: logger, now: time.Now}
}

// WithClock overrides the gateway clock, for tests.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// Check exposes the advisory admission decision for an endpoint.
func (g *Gateway) Check(ctx context.Context, endpoint string) ratelimit.Decision {
	return g.tracker.Check(ctx, endpoint)
}

// Overview exposes all live snapshot decisions.
func (g *Gateway) Overview(ctx context.Context) map[string]ratelimit.Decision {
	return g.tracker.Overview(ctx)
}

// Invoke runs the call and records its quota metadata whatever the outcome.
// A 429 is normalized into *twitter.RateLimitError; every other failure is
// re-raised unchanged. The gateway never retries and never blocks a call on
// the advisory snapshot: the upstream 429 is authoritative.
func (g *Gateway) Invoke(ctx context.Context, endpoint string, fn CallFunc) (json.RawMessage, error) {
	payload, rl, err := fn(ctx)

	// Snapshot updates are a side effect of the upstream response, not of
	// the requester still listening; use a background-safe context so an
	// abandoned request still records what the provider told us.
	g.tracker.Observe(context.WithoutCancel(ctx), endpoint, rl)

	if err != nil {
		var apiErr *domaintwitter.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 429 {
			return nil, g.classifyRateLimit(endpoint, apiErr)
		}
		return nil, err
	}
	return payload, nil
}

func (g *Gateway) classifyRateLimit(endpoint string, apiErr *domaintwitter.APIError) *domaintwitter.RateLimitError {
	rle := &domaintwitter.RateLimitError{
		Endpoint:  endpoint,
		Remaining: 0,
		Reset:     g.now().Add(defaultResetWindow).Unix(),
	}
	if apiErr.RateLimit != nil {
		rle.Limit = apiErr.RateLimit.Limit
		if apiErr.RateLimit.Reset > 0 {
			rle.Reset = apiErr.RateLimit.Reset
		}
	}
	g.logger.Warn("upstream rate limit hit",
		zap.String("endpoint", endpoint),
		zap.Int64("reset", rle.Reset))
	return rle
}
