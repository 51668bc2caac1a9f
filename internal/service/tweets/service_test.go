package tweets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eharris128/mycontentbuddy/internal/apicache"
	domainoauth "github.com/eharris128/mycontentbuddy/internal/domain/oauth"
	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
	"github.com/eharris128/mycontentbuddy/internal/gateway"
	"github.com/eharris128/mycontentbuddy/internal/ratelimit"
	"github.com/eharris128/mycontentbuddy/internal/session"
	"github.com/eharris128/mycontentbuddy/internal/store"
)

type fakeClient struct {
	meCalls       int
	timelineCalls int
	listCalls     int
	postCalls     int
	postedText    string
	postErr       error
	postRL        *domaintwitter.RateLimit
}

func (f *fakeClient) FetchMe(context.Context, string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	f.meCalls++
	return json.RawMessage(`{"data":{"id":"42","name":"Buddy","username":"buddy"}}`), nil, nil
}

func (f *fakeClient) FetchTimeline(context.Context, string, string, int) (json.RawMessage, *domaintwitter.RateLimit, error) {
	f.timelineCalls++
	return json.RawMessage(`{"data":[{"id":"1","text":"hi"}]}`), nil, nil
}

func (f *fakeClient) FetchOwnedLists(context.Context, string, string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	f.listCalls++
	return json.RawMessage(`{"data":[]}`), nil, nil
}

func (f *fakeClient) FetchListMemberships(context.Context, string, string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	f.listCalls++
	return json.RawMessage(`{"data":[]}`), nil, nil
}

func (f *fakeClient) FetchListTweets(context.Context, string, string, int) (json.RawMessage, *domaintwitter.RateLimit, error) {
	f.listCalls++
	return json.RawMessage(`{"data":[]}`), nil, nil
}

func (f *fakeClient) FetchListMembers(context.Context, string, string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	f.listCalls++
	return json.RawMessage(`{"data":[]}`), nil, nil
}

func (f *fakeClient) PostTweet(_ context.Context, _ string, text string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	f.postCalls++
	f.postedText = text
	if f.postErr != nil {
		return nil, f.postRL, f.postErr
	}
	return json.RawMessage(`{"data":{"id":"99","text":"` + text + `"}}`), f.postRL, nil
}

type tweetTestHarness struct {
	service  *Service
	client   *fakeClient
	sessions *session.Manager
	sess     *session.Session
}

func newTweetTestHarness(t *testing.T) *tweetTestHarness {
	t.Helper()
	st := store.NewMemory()
	sessions := session.NewManager(st, "test-secret", 24*time.Hour)
	tracker := ratelimit.NewTracker(st, zap.NewNop())
	gw := gateway.New(tracker, zap.NewNop())
	windows := apicache.Windows{
		EndpointProfile:  30 * time.Minute,
		EndpointTimeline: 5 * time.Minute,
	}
	cache := apicache.New(st, windows, 15*time.Minute, zap.NewNop())
	client := &fakeClient{}
	svc := NewService(client, gw, cache, sessions, zap.NewNop())

	sess, err := sessions.Ensure(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Token = &domainoauth.Token{AccessToken: "token", TokenType: "bearer"}
	require.NoError(t, sessions.Save(context.Background(), sess))

	return &tweetTestHarness{service: svc, client: client, sessions: sessions, sess: sess}
}

func TestService_TimelineIsCached(t *testing.T) {
	h := newTweetTestHarness(t)
	ctx := context.Background()

	first, err := h.service.Timeline(ctx, h.sess, 10)
	require.NoError(t, err)
	second, err := h.service.Timeline(ctx, h.sess, 10)
	require.NoError(t, err)

	require.JSONEq(t, string(first), string(second))
	require.Equal(t, 1, h.client.timelineCalls, "second read must be a cache hit")
}

func TestService_PostInvalidatesTimeline(t *testing.T) {
	h := newTweetTestHarness(t)
	ctx := context.Background()

	_, err := h.service.Timeline(ctx, h.sess, 10)
	require.NoError(t, err)
	require.Equal(t, 1, h.client.timelineCalls)

	_, err = h.service.PostTweet(ctx, h.sess, "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", h.client.postedText)

	_, err = h.service.Timeline(ctx, h.sess, 10)
	require.NoError(t, err)
	require.Equal(t, 2, h.client.timelineCalls, "post must have invalidated the cached timeline")
}

func TestService_PostTweetBoundaries(t *testing.T) {
	h := newTweetTestHarness(t)
	ctx := context.Background()

	_, err := h.service.PostTweet(ctx, h.sess, "")
	require.ErrorIs(t, err, domaintwitter.ErrEmptyTweet)

	_, err = h.service.PostTweet(ctx, h.sess, strings.Repeat("x", 281))
	require.ErrorIs(t, err, domaintwitter.ErrTweetTooLong)
	require.Zero(t, h.client.postCalls, "invalid text must never reach upstream")

	_, err = h.service.PostTweet(ctx, h.sess, strings.Repeat("x", 280))
	require.NoError(t, err)
	require.Equal(t, 1, h.client.postCalls)
}

func TestService_ProfileMemoizesUserID(t *testing.T) {
	h := newTweetTestHarness(t)
	ctx := context.Background()

	_, err := h.service.Profile(ctx, h.sess)
	require.NoError(t, err)
	require.Equal(t, "42", h.sess.TwitterUserID)

	// Timeline resolves the user id from the session, not users/me.
	_, err = h.service.Timeline(ctx, h.sess, 5)
	require.NoError(t, err)
	require.Equal(t, 1, h.client.meCalls)
}

func TestService_TimelineResolvesUserIDOnce(t *testing.T) {
	h := newTweetTestHarness(t)
	ctx := context.Background()

	_, err := h.service.Timeline(ctx, h.sess, 5)
	require.NoError(t, err)
	require.Equal(t, 1, h.client.meCalls)
	require.Equal(t, "42", h.sess.TwitterUserID)
}

func TestService_Unauthenticated(t *testing.T) {
	h := newTweetTestHarness(t)
	ctx := context.Background()
	anon := &session.Session{ID: "anon"}

	_, err := h.service.Timeline(ctx, anon, 5)
	require.ErrorIs(t, err, domainoauth.ErrUnauthenticated)
	_, err = h.service.PostTweet(ctx, anon, "hi")
	require.ErrorIs(t, err, domainoauth.ErrUnauthenticated)
	require.Zero(t, h.client.postCalls)
}

func TestService_RandomTweetHasText(t *testing.T) {
	h := newTweetTestHarness(t)

	_, err := h.service.PostRandomTweet(context.Background(), h.sess)
	require.NoError(t, err)
	require.NotEmpty(t, h.client.postedText)
	require.LessOrEqual(t, len(h.client.postedText), 280)
}

func TestService_RateLimitErrorSurfaces(t *testing.T) {
	h := newTweetTestHarness(t)
	ctx := context.Background()

	reset := time.Now().Unix() + 300
	h.client.postRL = &domaintwitter.RateLimit{Limit: 200, Remaining: 0, Reset: reset}
	h.client.postErr = &domaintwitter.APIError{
		Status:    429,
		Body:      "Too Many Requests",
		RateLimit: h.client.postRL,
	}

	_, err := h.service.PostTweet(ctx, h.sess, "hi")
	var rle *domaintwitter.RateLimitError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, reset, rle.Reset)

	// The 429 also left a snapshot behind for the advisory check.
	decision := h.service.CheckEndpoint(ctx, EndpointPostTweet)
	require.False(t, decision.CanProceed)
}
