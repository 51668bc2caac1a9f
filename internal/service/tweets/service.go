package tweets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	twitteradapter "github.com/eharris128/mycontentbuddy/internal/adapter/twitter"
	"github.com/eharris128/mycontentbuddy/internal/apicache"
	domainoauth "github.com/eharris128/mycontentbuddy/internal/domain/oauth"
	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
	"github.com/eharris128/mycontentbuddy/internal/gateway"
	"github.com/eharris128/mycontentbuddy/internal/ratelimit"
	"github.com/eharris128/mycontentbuddy/internal/session"
)

// Endpoint names used for rate-limit snapshots and cache keys. They contain
// slashes but never colons; the cache key layout depends on that.
const (
	EndpointProfile         = "users/me"
	EndpointTimeline        = "timeline"
	EndpointOwnedLists      = "lists/owned"
	EndpointListMemberships = "lists/memberships"
	EndpointListTweets      = "lists/tweets"
	EndpointListMembers     = "lists/members"
	EndpointPostTweet       = "tweets/post"
)

const maxTweetLength = 280

// Service is the read/write surface over the Twitter API: cached reads for
// the quota-scarce endpoints, uncached writes that invalidate what they make
// stale.
type Service struct {
	client   twitteradapter.Client
	gateway  *gateway.Gateway
	cache    *apicache.Cache
	sessions *session.Manager
	logger   *zap.Logger
}

// NewService wires the tweet service.
func NewService(client twitteradapter.Client, gw *gateway.Gateway, cache *apicache.Cache, sessions *session.Manager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{client: client, gateway: gw, cache: cache, sessions: sessions, logger: logger}
}

// Profile returns the authenticated user's profile, cached on a 30-minute
// window. The profile is keyed by a token fingerprint because the user id is
// not known until this very call succeeds; the id is memoized on the session
// so the other endpoints never pay the users/me quota for it.
func (s *Service) Profile(ctx context.Context, sess *session.Session) (json.RawMessage, error) {
	token, err := requireToken(sess)
	if err != nil {
		return nil, err
	}
	subject := tokenFingerprint(token.AccessToken)

	if cached := s.cache.Get(ctx, EndpointProfile, subject); cached != nil {
		s.memoizeUserID(ctx, sess, cached)
		return cached, nil
	}

	payload, err := s.gateway.Invoke(ctx, EndpointProfile, func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return s.client.FetchMe(ctx, token.AccessToken)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, EndpointProfile, subject, payload)
	s.memoizeUserID(ctx, sess, payload)
	return payload, nil
}

// Timeline returns the reverse-chronological home timeline, cached on a
// 5-minute window.
func (s *Service) Timeline(ctx context.Context, sess *session.Session, limit int) (json.RawMessage, error) {
	token, err := requireToken(sess)
	if err != nil {
		return nil, err
	}
	userID, err := s.ensureUserID(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.cachedFetch(ctx, EndpointTimeline, userID, func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return s.client.FetchTimeline(ctx, token.AccessToken, userID, limit)
	})
}

// OwnedLists returns the lists the user owns, cached on a 15-minute window.
func (s *Service) OwnedLists(ctx context.Context, sess *session.Session) (json.RawMessage, error) {
	token, err := requireToken(sess)
	if err != nil {
		return nil, err
	}
	userID, err := s.ensureUserID(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.cachedFetch(ctx, EndpointOwnedLists, userID, func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return s.client.FetchOwnedLists(ctx, token.AccessToken, userID)
	})
}

// ListMemberships returns the lists the user belongs to.
func (s *Service) ListMemberships(ctx context.Context, sess *session.Session) (json.RawMessage, error) {
	token, err := requireToken(sess)
	if err != nil {
		return nil, err
	}
	userID, err := s.ensureUserID(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.cachedFetch(ctx, EndpointListMemberships, userID, func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return s.client.FetchListMemberships(ctx, token.AccessToken, userID)
	})
}

// ListTweets returns a list's recent tweets, cached per list id.
func (s *Service) ListTweets(ctx context.Context, sess *session.Session, listID string, limit int) (json.RawMessage, error) {
	token, err := requireToken(sess)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(listID) == "" {
		return nil, fmt.Errorf("list id is required")
	}
	return s.cachedFetch(ctx, EndpointListTweets, listID, func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return s.client.FetchListTweets(ctx, token.AccessToken, listID, limit)
	})
}

// ListMembers returns a list's members, cached per list id.
func (s *Service) ListMembers(ctx context.Context, sess *session.Session, listID string) (json.RawMessage, error) {
	token, err := requireToken(sess)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(listID) == "" {
		return nil, fmt.Errorf("list id is required")
	}
	return s.cachedFetch(ctx, EndpointListMembers, listID, func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return s.client.FetchListMembers(ctx, token.AccessToken, listID)
	})
}

// PostTweet validates and posts. Writes bypass the cache outright and, on
// success, invalidate every timeline-shaped entry: conservative
// over-invalidation, cheap to regenerate.
func (s *Service) PostTweet(ctx context.Context, sess *session.Session, text string) (json.RawMessage, error) {
	token, err := requireToken(sess)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domaintwitter.ErrEmptyTweet
	}
	if utf8.RuneCountInString(text) > maxTweetLength {
		return nil, domaintwitter.ErrTweetTooLong
	}

	payload, err := s.gateway.Invoke(ctx, EndpointPostTweet, func(ctx context.Context) (json.RawMessage, *domaintwitter.RateLimit, error) {
		return s.client.PostTweet(ctx, token.AccessToken, text)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, EndpointTimeline+":*")
	return payload, nil
}

// PostRandomTweet posts the placeholder message the original playground
// shipped with.
func (s *Service) PostRandomTweet(ctx context.Context, sess *session.Session) (json.RawMessage, error) {
	text := fmt.Sprintf("Amor of %d.", rand.Intn(1_000_000)+1)
	return s.PostTweet(ctx, sess, text)
}

// CacheStatus reports live cache entry counts per endpoint.
func (s *Service) CacheStatus(ctx context.Context) (map[string]int, error) {
	return s.cache.Status(ctx)
}

// ClearCache drops every cached response.
func (s *Service) ClearCache(ctx context.Context) int {
	return s.cache.Invalidate(ctx, "*")
}

// CheckEndpoint exposes the advisory rate-limit decision for one endpoint.
func (s *Service) CheckEndpoint(ctx context.Context, endpoint string) ratelimit.Decision {
	return s.gateway.Check(ctx, endpoint)
}

// RateLimitOverview exposes every live snapshot decision.
func (s *Service) RateLimitOverview(ctx context.Context) map[string]ratelimit.Decision {
	return s.gateway.Overview(ctx)
}

func (s *Service) cachedFetch(ctx context.Context, endpoint, subject string, fn gateway.CallFunc) (json.RawMessage, error) {
	if cached := s.cache.Get(ctx, endpoint, subject); cached != nil {
		return cached, nil
	}
	payload, err := s.gateway.Invoke(ctx, endpoint, fn)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, endpoint, subject, payload)
	return payload, nil
}

// ensureUserID resolves the Twitter user id, paying the users/me quota at
// most once per profile-cache window.
func (s *Service) ensureUserID(ctx context.Context, sess *session.Session) (string, error) {
	if sess.TwitterUserID != "" {
		return sess.TwitterUserID, nil
	}
	if _, err := s.Profile(ctx, sess); err != nil {
		return "", err
	}
	if sess.TwitterUserID == "" {
		return "", fmt.Errorf("profile response missing user id")
	}
	return sess.TwitterUserID, nil
}

func (s *Service) memoizeUserID(ctx context.Context, sess *session.Session, payload json.RawMessage) {
	if sess.TwitterUserID != "" {
		return
	}
	var envelope struct {
		Data domaintwitter.User `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Data.ID == "" {
		return
	}
	sess.TwitterUserID = envelope.Data.ID
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Warn("failed to persist session user id", zap.Error(err))
	}
}

func requireToken(sess *session.Session) (*domainoauth.Token, error) {
	if !sess.Authenticated() {
		return nil, domainoauth.ErrUnauthenticated
	}
	return sess.Token, nil
}

// tokenFingerprint derives a stable, non-reversible cache subject from the
// access token, for use before the user id is known.
func tokenFingerprint(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:6])
}
