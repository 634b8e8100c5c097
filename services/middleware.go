package services

import (
	"net/http"

	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"
)

// corsMiddleware builds the go-chi/cors handler for the configured
// allowed origins (spec §1 calls CORS policy plumbing; the middleware
// itself is ambient stack we still carry, SPEC_FULL.md §11).
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// apiKeyAuth verifies a request's API key against apiKeyHash in constant
// time (spec §6: "authenticated by API key" / "verified in constant
// time"). An empty apiKeyHash disables authentication entirely.
func apiKeyAuth(apiKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("X-Api-Key")
			if err := bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(key)); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkAPIKey is the WebSocket-path equivalent of apiKeyAuth's check,
// invoked from the "auth" hook (spec §6) rather than an HTTP middleware
// chain.
func checkAPIKey(apiKeyHash, key string) bool {
	if apiKeyHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(key)) == nil
}
