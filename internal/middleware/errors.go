package middleware

import (
	"net/http"

	"github.com/go-chi/render"
)

// Error codes shared by the middleware chain and the handlers.
const (
	ErrorCodeInternal          = "INTERNAL_ERROR"
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrorCodeRequestTimeout    = "REQUEST_TIMEOUT"
)

const (
	ErrorMessageInternal          = "An internal error occurred"
	ErrorMessageRateLimitExceeded = "Too many requests"
	ErrorMessageRequestTimeout    = "Request timeout"
)

// respondError writes the uniform middleware error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.WriteHeader(status)
	render.JSON(w, r, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
