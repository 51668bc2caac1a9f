package twitter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyTweet rejects a post with no text before any upstream call.
	ErrEmptyTweet = errors.New("twitter: tweet text is empty")
	// ErrTweetTooLong rejects text over the 280-character limit before any
	// upstream call.
	ErrTweetTooLong = errors.New("twitter: tweet text exceeds 280 characters")
)

// APIError is a non-2xx upstream response, re-raised unchanged for anything
// other than 429.
type APIError struct {
	Status    int
	Body      string
	RateLimit *RateLimit
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitter: upstream status %d: %s", e.Status, e.Body)
}

// RateLimitError is the normalized form of an upstream 429. Callers must not
// retry automatically; the reset time is surfaced to the end user instead.
type RateLimitError struct {
	Endpoint  string
	Limit     int
	Remaining int
	Reset     int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("twitter: rate limited on %s until %d", e.Endpoint, e.Reset)
}

// WaitSeconds returns how long the caller should wait before the window
// rolls over, never negative.
func (e *RateLimitError) WaitSeconds(now time.Time) int64 {
	wait := e.Reset - now.Unix()
	if wait < 0 {
		return 0
	}
	return wait
}
