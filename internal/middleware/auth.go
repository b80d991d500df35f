package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"socialcredit-api/pkg/apierror"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// APIKeys are accepted in X-API-Key or as a Bearer token. An empty
	// list disables the check.
	APIKeys []string

	// PublicPaths skip the check entirely.
	PublicPaths []string
}

// DefaultPublicPaths are reachable without a key.
var DefaultPublicPaths = []string{"/api/v1/health", "/api/v1/ready"}

// NewAuthMiddleware creates the bot frontend authentication middleware.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		log.Printf("[Auth] No API keys configured, /api/v1 is open")
	}

	public := cfg.PublicPaths
	if public == nil {
		public = DefaultPublicPaths
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 || isPublic(r.URL.Path, public) {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-API-Key header."))
				return
			}
			if !isValidKey(apiKey, keys) {
				writeError(w, apierror.Unauthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminKey guards admin routes with the X-Admin-Key header. When no
// admin key is configured every admin request is refused.
func RequireAdminKey(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				writeError(w, apierror.Forbidden("Admin access is not configured"))
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" {
				writeError(w, apierror.Unauthorized("Admin key required. Use X-Admin-Key header."))
				return
			}
			if !isValidKey(key, []string{adminKey}) {
				writeError(w, apierror.Forbidden("Invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

func isPublic(path string, public []string) bool {
	for _, p := range public {
		if path == p {
			return true
		}
	}
	return false
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
