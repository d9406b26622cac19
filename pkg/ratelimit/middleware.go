package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/uidgen/uidgen/pkg/httputil"
)

// Middleware enforces per-IP limits in front of next. A nil limiter passes
// every request through.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.Allow(limiter.ClientIP(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAfter, 10))

			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			httputil.WriteTooManyRequests(w, r, int(d.RetryAfter),
				"rate_limit_exceeded", "Too many requests. Please slow down.")
		})
	}
}
