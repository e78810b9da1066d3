package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stockagent/stockagent/internal/metrics"
	"github.com/stockagent/stockagent/internal/quota"
)

// RateLimiter limits requests per client IP with a Redis sliding window.
type RateLimiter struct {
	limiter *quota.Limiter
	maxReqs int
	window  time.Duration
}

// NewRateLimiter allows maxReqs per window for each client IP.
func NewRateLimiter(limiter *quota.Limiter, maxReqs int, window time.Duration) *RateLimiter {
	return &RateLimiter{limiter: limiter, maxReqs: maxReqs, window: window}
}

// Middleware enforces the limit. On Redis errors it fails open.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed, err := rl.limiter.Allow(r.Context(), "ip:"+ip, rl.maxReqs, rl.window)
		if err != nil {
			slog.Warn("rate limiter: redis error, failing open", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			metrics.RateLimitedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP trusts what nginx writes: X-Real-IP is $remote_addr, and
// X-Forwarded-For gets the peer appended last. Earlier XFF entries come from
// the client and are ignored.
func clientIP(r *http.Request) string {
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if last := strings.TrimSpace(parts[len(parts)-1]); last != "" {
			return last
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
