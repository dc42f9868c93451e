// Package middleware provides the HTTP middleware stack shared by every
// ingestion endpoint: request IDs, Prometheus instrumentation, and CORS.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sentrywatch/siemcore/internal/logging"
)

// RequestID generates (or forwards) a request ID, echoes it on the response,
// and wires it plus a fresh correlation ID into the request context so
// logging.Ctx(ctx) picks them up downstream.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
