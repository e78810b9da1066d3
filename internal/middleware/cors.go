package middleware

import (
	"github.com/go-chi/cors"
)

// DefaultCORSOrigin is the development frontend.
const DefaultCORSOrigin = "http://localhost:3000"

// CORSOptions allows the frontend to read health and service info. The
// surface is read-only and carries no session, so only safe methods are
// allowed and credentials are never shared.
func CORSOptions(allowedOrigins []string) cors.Options {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{DefaultCORSOrigin}
	}

	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Retry-After"},
		MaxAge:         600,
	}
}
