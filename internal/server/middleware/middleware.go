// Package middleware provides HTTP middleware for request logging and rate limiting.
package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jonathan/nutricalc/internal/server/ratelimit"
)

// Logging logs each request line and its completion status and duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(ww, r)
		log.Printf("[%s] %s completed %d in %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// ClientID returns the IP part of RemoteAddr. Run behind chi's RealIP so
// proxied requests are keyed by the forwarded address.
func ClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RateLimit rejects requests over the limiter's budget with 429 and
// sets X-RateLimit-* headers on every limited response.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, info := limiter.Allow(ClientID(r), r.URL.Path, r.Method)
			setRateLimitHeaders(w, info)
			if !allowed {
				rateLimitResponse(w, info)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

func rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	retryAfter := int(info.RetryAfter.Seconds())
	if retryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	// Blacklisted clients carry no limit info
	if info.Limit == 0 {
		fmt.Fprint(w, `{"error":"rate_limit_exceeded","message":"Client is blocked."}`+"\n")
		return
	}
	fmt.Fprintf(w, `{"error":"rate_limit_exceeded","message":"Rate limit exceeded. Please try again later.","limit":%d,"remaining":%d,"reset_at":%q,"retry_after":%d}`+"\n",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339), retryAfter)
}
