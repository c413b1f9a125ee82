package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/goccy/go-json"
)

// openPaths never require a key so probes and scrapers keep working.
var openPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// APIKey enforces API-key authentication on every request.
//
//   - If mode != "apikey" or key == "", all requests pass through.
//   - Otherwise the value of header must equal key; a missing or wrong key is
//     answered with 401.
//
// The websocket endpoint also accepts the key as the api_key query parameter,
// since browsers cannot set headers on an upgrade request.
func APIKey(mode, header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if mode != "apikey" || key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(header)
			if got == "" && r.URL.Path == "/ws/stream" {
				got = r.URL.Query().Get("api_key")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				SetErrorCode(r.Context(), "unauthenticated")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
					"error": "invalid api key",
					"code":  "unauthenticated",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
