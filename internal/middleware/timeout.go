package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-blog-api/internal/model"
)

const codeRequestTimeout = "REQUEST_TIMEOUT"

// Timeout cancels the request context after d. A handler still running at
// that point is abandoned and the client gets 503 in the error envelope.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = 30 * time.Second
	}

	body, _ := json.Marshal(model.APIResponse{
		Error: &model.APIError{Code: codeRequestTimeout, Message: "request timed out"},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, string(body))
	}
}
