package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/Faith-Anthony/presently/pkg/config"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dev
	"https://presently.app",
	"https://www.presently.app",
}

// CORS returns middleware that applies the API's allowed origin policy.
// The configured share origin is always allowed so hosted wishlist pages
// can call the public endpoints.
func CORS(share config.ShareConfig) func(http.Handler) http.Handler {
	origins := defaultCORSOrigins
	if share.Origin != "" && !containsString(origins, share.Origin) {
		origins = append(append([]string{}, origins...), share.Origin)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Presently-Device", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
