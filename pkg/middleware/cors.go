package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the browser search widget call the API from the book's origin.
// The API is read-only apart from cache invalidation, so credentials are
// never allowed.
func CORS(allowedOrigins []string, maxAge int) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-Cache"},
		AllowCredentials: false,
		MaxAge:           maxAge,
	})
}
