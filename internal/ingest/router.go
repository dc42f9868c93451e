// Package ingest wires the Auth Gatekeeper, Rate Limiter, and Log Parser
// into the HTTP surface that accepts events and hands them to the event
// bus producer: component E, the Ingestion Endpoint.
package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentrywatch/siemcore/internal/auth"
	"github.com/sentrywatch/siemcore/internal/middleware"
	"github.com/sentrywatch/siemcore/internal/model"
	"github.com/sentrywatch/siemcore/internal/parser"
	"github.com/sentrywatch/siemcore/internal/ratelimit"
)

const minute = time.Minute

// Producer publishes a validated, normalized event onto the event bus.
// Satisfied by eventbus.Producer; kept as a narrow interface here so
// ingest doesn't import the NATS transport directly.
type Producer interface {
	Publish(ctx context.Context, ev model.Event) error
}

// Config configures the ingestion router's per-dimension rate limits and
// CORS origin. Principal-dimension limits are resolved per request from
// ratelimit.PerUserLimits inside the handler, not here.
type Config struct {
	CORSAllowedOrigin string

	TokenGrantPerMinute  int
	IngestRawPerMinute   int
	IngestTypedPerMinute int
	BatchPerMinute       int
}

// NewRouter builds the routed http.Handler for the ingestion endpoint.
func NewRouter(cfg Config, gatekeeper *auth.Gatekeeper, registry *parser.Registry, producer Producer, limiter *ratelimit.Limiter, perUserLimits map[string]ratelimit.PerUserLimits) http.Handler {
	h := NewHandler(gatekeeper, registry, producer, limiter, perUserLimits)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.With(ratelimit.Enforce(limiter, ratelimit.Dimension{
		Name: "token_grant_ip", Limit: cfg.TokenGrantPerMinute, Window: minute, KeyFunc: ratelimit.ClientIP,
	})).Post("/token", h.IssueToken)

	r.Route("/ingest", func(r chi.Router) {
		r.With(ratelimit.Enforce(limiter, ratelimit.Dimension{
			Name: "ingest_typed_ip", Limit: cfg.IngestTypedPerMinute, Window: minute, KeyFunc: ratelimit.ClientIP,
		})).Post("/", h.IngestOne)

		r.With(ratelimit.Enforce(limiter, ratelimit.Dimension{
			Name: "ingest_batch_ip", Limit: cfg.BatchPerMinute, Window: minute, KeyFunc: ratelimit.ClientIP,
		})).Post("/batch", h.IngestBatch)

		r.With(ratelimit.Enforce(limiter, ratelimit.Dimension{
			Name: "ingest_raw_ip", Limit: cfg.IngestRawPerMinute, Window: minute, KeyFunc: ratelimit.ClientIP,
		})).Post("/raw", h.IngestRaw)

		r.Post("/webhook/{provider}", h.IngestWebhook)
	})

	return r
}
