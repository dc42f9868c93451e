package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sentrywatch/siemcore/internal/metrics"
)

// Dimension is one independently-enforced rate limit axis. All dimensions
// registered on a route must pass for the request to proceed.
type Dimension struct {
	Name   string
	Limit  int
	Window time.Duration
	// KeyFunc derives the counter key for this dimension from the request,
	// e.g. client IP or authenticated principal. Returning "" skips the
	// dimension for that request (principal dimensions before auth runs).
	KeyFunc func(r *http.Request) string
}

// Enforce builds middleware that checks every dimension in order and
// rejects with 429 plus limit/remaining/reset headers on the first one
// that fails. Headers from the last checked dimension are always set.
func Enforce(limiter *Limiter, dims ...Dimension) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, d := range dims {
				key := d.KeyFunc(r)
				if key == "" {
					continue
				}

				result, err := limiter.Check(r.Context(), d.Name+":"+key, d.Limit, d.Window)
				if err != nil {
					http.Error(w, "rate limit check failed", http.StatusServiceUnavailable)
					return
				}

				setHeaders(w, result)

				if !result.Allowed {
					metrics.RateLimitRejections.WithLabelValues(d.Name).Inc()
					w.Header().Set("Retry-After", strconv.Itoa(int(result.ResetIn.Seconds())))
					http.Error(w, "rate limit exceeded for "+d.Name, http.StatusTooManyRequests)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn.Seconds())))
}

// ClientIP extracts the request's client address, preferring
// X-Forwarded-For when present (reverse-proxy deployments).
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host := r.RemoteAddr
	if idx := lastColon(host); idx >= 0 {
		return host[:idx]
	}
	return host
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}
