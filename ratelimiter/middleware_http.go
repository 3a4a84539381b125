package ratelimiter

import (
	"fmt"
	"math"
	"net/http"

	"github.com/pitabwire/util"
)

// GetIP extracts the caller address from forwarding headers or the remote address.
func GetIP(r *http.Request) string {
	if r == nil {
		return "unknown"
	}

	ip := util.GetIP(r)
	if ip == "" {
		return "unknown"
	}
	return ip
}

// RateLimitMiddleware rejects requests with 429 once the caller's address has
// used up its tokens. A nil limiter passes every request through.
func RateLimitMiddleware(limiter *KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.BurstSize))

			ip := GetIP(r)
			if !limiter.Allow(ip) {
				util.Log(r.Context()).WithField("ip", ip).Debug("request rate limited")
				rateLimitedResponse(w, limiter.config)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitedResponse(w http.ResponseWriter, cfg Config) {
	retryAfter := int(math.Ceil(1 / cfg.RequestsPerSecond))
	if retryAfter <= 0 {
		retryAfter = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = fmt.Fprint(w, `{"error": "rate limit exceeded"}`)
}
