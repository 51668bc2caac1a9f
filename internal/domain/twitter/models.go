package twitter

import "time"

// RateLimit is the quota metadata Twitter attaches to every response via the
// x-rate-limit-* headers.
type RateLimit struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"` // epoch seconds when the window rolls over
}

// Stale reports whether the window described by the snapshot has rolled over.
// A stale snapshot must be treated as absent for admission purposes.
func (r RateLimit) Stale(now time.Time) bool {
	return now.Unix() >= r.Reset
}

// User is the subset of the users/me payload the service itself needs; the
// full payload is passed through to the SPA untouched.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Tweet is the subset of a created tweet the service inspects.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
