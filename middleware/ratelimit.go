// ABOUTME: Rate limiting middleware with fixed-window counters
// ABOUTME: Provides per-endpoint rate limits keyed by client IP or session

package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/markalston/portal-gateway/services"
)

// Limiter decides whether another request for key fits in the current window.
// When it does not, the returned duration is the time until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

type window struct {
	hits  int
	reset time.Time
}

// RateLimiter is an in-process Limiter. Counters are per replica.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	period    time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a rate limiter that allows limit requests per period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow counts a request for key against its current window.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if !now.Before(rl.nextSweep) {
		rl.sweep(now)
		rl.nextSweep = now.Add(rl.period)
	}

	// The reset instant itself opens a new window.
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.reset) {
		rl.windows[key] = &window{hits: 1, reset: now.Add(rl.period)}
		return true, 0
	}

	if w.hits >= rl.limit {
		return false, w.reset.Sub(now)
	}
	w.hits++
	return true, 0
}

// Len returns the number of tracked keys, expired or not.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// sweep drops expired windows. Caller holds rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, w := range rl.windows {
		if !now.Before(w.reset) {
			delete(rl.windows, k)
		}
	}
}

// ClientIP keys on the leftmost X-Forwarded-For address, or RemoteAddr.
// The header is trusted, which is only safe behind a proxy that sets it.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return "ip:" + ip
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ip:" + host
}

// SessionKey keys on a digest of the session cookie so raw tokens never
// become limiter keys. Falls back to ClientIP without a cookie.
func SessionKey(r *http.Request) string {
	if token, ok := services.ReadSessionCookie(r); ok {
		sum := sha256.Sum256([]byte(token))
		return "session:" + hex.EncodeToString(sum[:8])
	}
	return ClientIP(r)
}

// RateLimit enforces limiter per key. A nil limiter disables the check and
// an empty key lets the request through.
func RateLimit(limiter Limiter, keyFunc func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil || keyFunc == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(r.Context(), key)
			if allowed {
				next(w, r)
				return
			}

			seconds := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("Rate limit exceeded", "key", key, "path", sanitizePath(r.URL.Path), "retry_after", seconds)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(struct {
				Success    bool   `json:"success"`
				Error      string `json:"error"`
				RetryAfter int    `json:"retry_after"`
			}{
				Error:      "Rate limit exceeded",
				RetryAfter: seconds,
			})
		}
	}
}
