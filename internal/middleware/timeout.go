package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Timeout bounds how long a single request may run. Only the response
// is cut off at the deadline; handlers must honor r.Context() for real
// cancellation of in-flight work.
func Timeout(limit time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(w, r.WithContext(ctx))
			}()

			select {
			case <-finished:
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					respondError(w, r, http.StatusRequestTimeout, ErrorCodeRequestTimeout, ErrorMessageRequestTimeout)
				}
			}
		})
	}
}
