package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows credentialed requests so the front-ends can send the auth
// cookies. Only the configured origins are echoed back.
func CORS(origins []string) func(http.Handler) http.Handler {
	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: true,
	})

	return handler.Handler
}
