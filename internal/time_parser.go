// internal/time_parser.go
// ------------------------
// Helpers for reading the wait hints providers send with 429 responses.
//
// Functions:
// - ParseRetryAfter: a Retry-After value as delay seconds, an HTTP date, or a duration like "6m0s".
// - ParseResetEpoch: an X-RateLimit-Reset style UNIX timestamp, in seconds or milliseconds.
package internal

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter returns how long to wait according to value, measured from now.
// Dates in the past yield zero. ok is false when value is empty or unreadable.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second)), true
	}

	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d, true
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}

	return 0, false
}

// ParseResetEpoch converts a reset timestamp into the delay remaining from now.
// Values above 1e12 are taken as milliseconds.
func ParseResetEpoch(value string, now time.Time) (time.Duration, bool) {
	ts, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || ts <= 0 {
		return 0, false
	}
	var at time.Time
	if ts > 1_000_000_000_000 {
		at = time.UnixMilli(ts)
	} else {
		at = time.Unix(ts, 0)
	}
	if d := at.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
