package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
)

// Client is the capability surface the rest of the service uses against the
// Twitter v2 API. Payloads are raw API JSON; the SPA renders them directly.
// Every call also reports the rate-limit metadata the response carried.
type Client interface {
	FetchMe(ctx context.Context, accessToken string) (json.RawMessage, *domaintwitter.RateLimit, error)
	FetchTimeline(ctx context.Context, accessToken, userID string, limit int) (json.RawMessage, *domaintwitter.RateLimit, error)
	FetchOwnedLists(ctx context.Context, accessToken, userID string) (json.RawMessage, *domaintwitter.RateLimit, error)
	FetchListMemberships(ctx context.Context, accessToken, userID string) (json.RawMessage, *domaintwitter.RateLimit, error)
	FetchListTweets(ctx context.Context, accessToken, listID string, limit int) (json.RawMessage, *domaintwitter.RateLimit, error)
	FetchListMembers(ctx context.Context, accessToken, listID string) (json.RawMessage, *domaintwitter.RateLimit, error)
	PostTweet(ctx context.Context, accessToken, text string) (json.RawMessage, *domaintwitter.RateLimit, error)
}

// HTTPClient is the production Client against api.twitter.com.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs a Client against the given API base URL
// (https://api.twitter.com/2 in production).
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

func (c *HTTPClient) FetchMe(ctx context.Context, accessToken string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	query := url.Values{}
	query.Set("user.fields", "id,name,username,profile_image_url,description,public_metrics")
	return c.do(ctx, accessToken, http.MethodGet, "/users/me", query, nil)
}

func (c *HTTPClient) FetchTimeline(ctx context.Context, accessToken, userID string, limit int) (json.RawMessage, *domaintwitter.RateLimit, error) {
	query := url.Values{}
	query.Set("max_results", strconv.Itoa(clampLimit(limit, 5, 100, 10)))
	query.Set("tweet.fields", "id,text,created_at,author_id,public_metrics")
	query.Set("expansions", "author_id")
	path := fmt.Sprintf("/users/%s/timelines/reverse_chronological", url.PathEscape(userID))
	return c.do(ctx, accessToken, http.MethodGet, path, query, nil)
}

func (c *HTTPClient) FetchOwnedLists(ctx context.Context, accessToken, userID string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	query := url.Values{}
	query.Set("list.fields", "id,name,description,member_count,follower_count,private")
	path := fmt.Sprintf("/users/%s/owned_lists", url.PathEscape(userID))
	return c.do(ctx, accessToken, http.MethodGet, path, query, nil)
}

func (c *HTTPClient) FetchListMemberships(ctx context.Context, accessToken, userID string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	query := url.Values{}
	query.Set("list.fields", "id,name,description,member_count,private")
	path := fmt.Sprintf("/users/%s/list_memberships", url.PathEscape(userID))
	return c.do(ctx, accessToken, http.MethodGet, path, query, nil)
}

func (c *HTTPClient) FetchListTweets(ctx context.Context, accessToken, listID string, limit int) (json.RawMessage, *domaintwitter.RateLimit, error) {
	query := url.Values{}
	query.Set("max_results", strconv.Itoa(clampLimit(limit, 5, 100, 25)))
	query.Set("tweet.fields", "id,text,created_at,author_id")
	path := fmt.Sprintf("/lists/%s/tweets", url.PathEscape(listID))
	return c.do(ctx, accessToken, http.MethodGet, path, query, nil)
}

func (c *HTTPClient) FetchListMembers(ctx context.Context, accessToken, listID string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	query := url.Values{}
	query.Set("user.fields", "id,name,username,profile_image_url")
	path := fmt.Sprintf("/lists/%s/members", url.PathEscape(listID))
	return c.do(ctx, accessToken, http.MethodGet, path, query, nil)
}

func (c *HTTPClient) PostTweet(ctx context.Context, accessToken, text string) (json.RawMessage, *domaintwitter.RateLimit, error) {
	payload := map[string]string{"text": text}
	return c.do(ctx, accessToken, http.MethodPost, "/tweets", nil, payload)
}

func (c *HTTPClient) do(ctx context.Context, accessToken, method, path string, query url.Values, body any) (json.RawMessage, *domaintwitter.RateLimit, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("twitter request: %w", err)
	}
	defer resp.Body.Close()

	rl := parseRateLimit(resp.Header)
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, rl, fmt.Errorf("read twitter response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, rl, &domaintwitter.APIError{
			Status:    resp.StatusCode,
			Body:      strings.TrimSpace(string(payload)),
			RateLimit: rl,
		}
	}
	return payload, rl, nil
}

// parseRateLimit reads the x-rate-limit-* headers; nil when the response
// carried no quota metadata.
func parseRateLimit(header http.Header) *domaintwitter.RateLimit {
	limitRaw := header.Get("x-rate-limit-limit")
	remainingRaw := header.Get("x-rate-limit-remaining")
	resetRaw := header.Get("x-rate-limit-reset")
	if limitRaw == "" && remainingRaw == "" && resetRaw == "" {
		return nil
	}
	limit, _ := strconv.Atoi(limitRaw)
	remaining, _ := strconv.Atoi(remainingRaw)
	reset, _ := strconv.ParseInt(resetRaw, 10, 64)
	return &domaintwitter.RateLimit{Limit: limit, Remaining: remaining, Reset: reset}
}

func clampLimit(limit, min, max, def int) int {
	if limit <= 0 {
		return def
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
