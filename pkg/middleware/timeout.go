package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context. Downstream calls that honour the
// context (Redis, Postgres, Kafka) give up once it expires; the in-memory
// index operations are bounded on their own.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
