package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Reset values above this are epoch seconds; smaller ones count from now.
const epochCutoff = 1_000_000_000

// RateLimit is the throttling state a server reported with a response.
// Counts the server did not send are -1.
type RateLimit struct {
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// RateLimit returns the throttling headers of the response, or nil when
// the server sent none.
func (r *Response) RateLimit() *RateLimit {
	if r == nil {
		return nil
	}
	return readRateLimit(r.Header, time.Now())
}

func readRateLimit(h http.Header, now time.Time) *RateLimit {
	if h == nil {
		return nil
	}
	rl := &RateLimit{
		Limit:     headerInt(h, "X-RateLimit-Limit", "RateLimit-Limit"),
		Remaining: headerInt(h, "X-RateLimit-Remaining", "RateLimit-Remaining"),
	}
	if v := headerValue(h, "X-RateLimit-Reset", "RateLimit-Reset"); v != "" {
		rl.Reset, _ = resetTime(v, now)
	}
	if v := headerValue(h, "Retry-After"); v != "" {
		if t, ok := resetTime(v, now); ok && t.After(now) {
			rl.RetryAfter = t.Sub(now).Round(time.Second)
		}
	}
	if rl.Limit < 0 && rl.Remaining < 0 && rl.Reset.IsZero() && rl.RetryAfter == 0 {
		return nil
	}
	return rl
}

// Summary renders the state as one line, e.g. "99/100 remaining".
func (rl *RateLimit) Summary() string {
	if rl == nil {
		return ""
	}
	var parts []string
	switch {
	case rl.Remaining >= 0 && rl.Limit >= 0:
		parts = append(parts, fmt.Sprintf("%d/%d remaining", rl.Remaining, rl.Limit))
	case rl.Remaining >= 0:
		parts = append(parts, fmt.Sprintf("%d remaining", rl.Remaining))
	case rl.Limit >= 0:
		parts = append(parts, fmt.Sprintf("limit %d", rl.Limit))
	}
	if !rl.Reset.IsZero() {
		parts = append(parts, "resets "+rl.Reset.Local().Format("15:04:05"))
	}
	if rl.RetryAfter > 0 {
		parts = append(parts, "retry in "+rl.RetryAfter.String())
	}
	return strings.Join(parts, ", ")
}

// Meta returns the state as a JSON-ready map.
func (rl *RateLimit) Meta() map[string]any {
	if rl == nil {
		return nil
	}
	meta := map[string]any{}
	if rl.Limit >= 0 {
		meta["limit"] = rl.Limit
	}
	if rl.Remaining >= 0 {
		meta["remaining"] = rl.Remaining
	}
	if !rl.Reset.IsZero() {
		meta["reset_at"] = rl.Reset.UTC().Format(time.RFC3339)
	}
	if rl.RetryAfter > 0 {
		meta["retry_after_seconds"] = int(rl.RetryAfter / time.Second)
	}
	return meta
}

func headerValue(h http.Header, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(h.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

func headerInt(h http.Header, keys ...string) int {
	n, err := strconv.Atoi(headerValue(h, keys...))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// resetTime accepts epoch seconds, seconds from now, or an HTTP date.
func resetTime(v string, now time.Time) (time.Time, bool) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs > epochCutoff {
			return time.Unix(secs, 0).UTC(), true
		}
		if secs >= 0 {
			return now.Add(time.Duration(secs) * time.Second).UTC(), true
		}
		return time.Time{}, false
	}
	if t, err := http.ParseTime(v); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
