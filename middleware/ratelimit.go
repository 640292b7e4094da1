package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	accesscore "github.com/fraudlens/accesscore"
)

// RateLimit returns middleware enforcing the named bucket's ceiling for each
// client. Rejected requests get a 429 with a Retry-After header in whole
// seconds, rounded up so the client never retries early.
func RateLimit(engine *accesscore.Engine, bucket string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			err := engine.CheckRateLimit(r.Context(), bucket, r.Header)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var rle *accesscore.RateLimitError
			if errors.As(err, &rle) {
				seconds := int64((rle.RetryAfter + time.Second - 1) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
				http.Error(w, "rate limited", http.StatusTooManyRequests)
				return
			}

			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		})
	}
}
