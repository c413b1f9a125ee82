// Package middleware holds the HTTP middleware chain wrapped around the REST
// API: request IDs, structured request logging, Prometheus request metrics,
// OpenTelemetry tracing and API-key authentication.
//
// Chain order in cmd/server is Tracing → RequestID → Logging → HTTPMetrics →
// APIKey → handler.
package middleware

import "net/http"

// Chain wraps h with mws so that mws[0] is the outermost handler.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
