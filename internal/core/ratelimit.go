package core

import "time"

// RateLimitEntry is the fixed-window counter for one client and endpoint.
type RateLimitEntry struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the entry's window has elapsed at now.
func (e RateLimitEntry) Expired(now time.Time) bool {
	return e.ResetAt.Before(now)
}
