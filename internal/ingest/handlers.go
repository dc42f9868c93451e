package ingest

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sentrywatch/siemcore/internal/apierror"
	"github.com/sentrywatch/siemcore/internal/auth"
	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/metrics"
	"github.com/sentrywatch/siemcore/internal/model"
	"github.com/sentrywatch/siemcore/internal/parser"
	"github.com/sentrywatch/siemcore/internal/ratelimit"
)

const maxRawBodyBytes = model.MaxEventDataBytes
const maxBatchBodyBytes = model.MaxBatchBytes

// Handler implements the ingestion endpoint's HTTP surface.
type Handler struct {
	gatekeeper    *auth.Gatekeeper
	registry      *parser.Registry
	producer      Producer
	limiter       *ratelimit.Limiter
	perUserLimits map[string]ratelimit.PerUserLimits
}

// NewHandler builds a Handler.
func NewHandler(gatekeeper *auth.Gatekeeper, registry *parser.Registry, producer Producer, limiter *ratelimit.Limiter, perUserLimits map[string]ratelimit.PerUserLimits) *Handler {
	return &Handler{gatekeeper: gatekeeper, registry: registry, producer: producer, limiter: limiter, perUserLimits: perUserLimits}
}

// Health reports liveness; always 200 once the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IssueToken implements POST /token.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, apierror.BadRequest("malformed request body"))
		return
	}

	token, expiresAt, err := h.gatekeeper.IssueToken(r.Context(), req.Username, req.Password, ratelimit.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
	})
}

// authorizedUser runs the bearer check plus the per-principal rate limit
// dimensions shared by every authenticated ingest route.
func (h *Handler) authorizedUser(w http.ResponseWriter, r *http.Request, requiredScope model.Scope) (model.User, bool) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == r.Header.Get("Authorization") || bearer == "" {
		writeError(w, apierror.Unauthorized("missing bearer token"))
		return model.User{}, false
	}

	user, err := h.gatekeeper.Authorize(r.Context(), bearer, ratelimit.ClientIP(r), requiredScope)
	if err != nil {
		writeError(w, err)
		return model.User{}, false
	}
	return user, true
}

// principalDimensionOK enforces the per-principal ingest/batch/event-count
// limits configured via RATE_LIMIT_<USER>-family overrides.
func (h *Handler) principalDimensionOK(w http.ResponseWriter, r *http.Request, username string, dimension string, limit int) bool {
	result, err := h.limiter.Check(r.Context(), dimension+":"+username, limit, time.Minute)
	if err != nil {
		writeError(w, apierror.ServiceBusy("rate limit check unavailable"))
		return false
	}
	if !result.Allowed {
		metrics.RateLimitRejections.WithLabelValues(dimension).Inc()
		writeError(w, apierror.RateLimited("per-principal rate limit exceeded"))
		return false
	}
	return true
}

// IngestOne implements POST /ingest: a single pre-structured event.
func (h *Handler) IngestOne(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authorizedUser(w, r, model.ScopeLogsWrite)
	if !ok {
		return
	}
	limits := ratelimit.For(h.perUserLimits, user.Username, 1000, 100, 10000)
	if !h.principalDimensionOK(w, r, user.Username, "ingest_principal", limits.EventsPerMinute) {
		return
	}

	var ev model.Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRawBodyBytes+4096)).Decode(&ev); err != nil {
		writeError(w, apierror.BadRequest("malformed event body"))
		return
	}

	if err := h.publish(r, &ev); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	metrics.EventsIngested.WithLabelValues(ev.Source).Inc()
}

// IngestBatch implements POST /ingest/batch: 1-1000 events, ≤5MiB total.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authorizedUser(w, r, model.ScopeLogsWrite)
	if !ok {
		return
	}
	limits := ratelimit.For(h.perUserLimits, user.Username, 1000, 100, 10000)
	if !h.principalDimensionOK(w, r, user.Username, "batch_principal", limits.BatchPerMinute) {
		return
	}

	var batch model.Batch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBatchBodyBytes+4096)).Decode(&batch); err != nil {
		writeError(w, apierror.BadRequest("malformed batch body"))
		return
	}
	if len(batch.Events) == 0 || len(batch.Events) > model.MaxBatchEvents {
		writeError(w, apierror.Validation("batch must carry 1-1000 events"))
		return
	}
	if !h.principalDimensionOK(w, r, user.Username, "event_count_principal", limits.EventCountLimit) {
		return
	}

	summary := model.BatchSummary{Total: len(batch.Events)}
	for i := range batch.Events {
		ev := &batch.Events[i]
		if err := h.publish(r, ev); err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, model.BatchResult{Index: i, OK: false, Error: err.Error()})
			continue
		}
		summary.Successful++
		summary.Results = append(summary.Results, model.BatchResult{Index: i, OK: true})
		metrics.EventsIngested.WithLabelValues(ev.Source).Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMultiStatus)
	json.NewEncoder(w).Encode(summary)
}

// IngestRaw implements POST /ingest/raw: a single unstructured log line,
// auto-detected or matched against an explicit ?format= query parameter.
func (h *Handler) IngestRaw(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authorizedUser(w, r, model.ScopeLogsWrite)
	if !ok {
		return
	}
	limits := ratelimit.For(h.perUserLimits, user.Username, 1000, 100, 10000)
	if !h.principalDimensionOK(w, r, user.Username, "ingest_raw_principal", limits.EventsPerMinute) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRawBodyBytes+4096))
	if err != nil {
		writeError(w, apierror.BadRequest("failed reading request body"))
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "raw"
	}
	eventType := r.URL.Query().Get("event_type")
	if eventType == "" {
		eventType = "log"
	}

	_, data, err := parser.ParseLine(h.registry, strings.TrimSpace(string(body)), r.URL.Query().Get("format"))
	if err != nil {
		metrics.ParseFailures.WithLabelValues("no_format_match").Inc()
		writeError(w, apierror.BadRequest(err.Error()))
		return
	}

	ev := parser.CreateEvent(source, eventType, data)
	if err := h.publish(r, &ev); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	metrics.EventsIngested.WithLabelValues(source).Inc()
}

// IngestWebhook implements POST /ingest/webhook/{provider}: cloud-provider
// audit log push subscriptions (AWS CloudTrail via SNS, Azure Event Grid,
// GCP Pub/Sub push) each deliver a JSON body whose shape the parser
// registry's vendor formats already recognize; the provider path segment
// only picks the source tag.
func (h *Handler) IngestWebhook(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authorizedUser(w, r, model.ScopeLogsWrite)
	if !ok {
		return
	}
	limits := ratelimit.For(h.perUserLimits, user.Username, 1000, 100, 10000)
	if !h.principalDimensionOK(w, r, user.Username, "ingest_webhook_principal", limits.EventsPerMinute) {
		return
	}

	provider := chi.URLParam(r, "provider")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRawBodyBytes+4096))
	if err != nil {
		writeError(w, apierror.BadRequest("failed reading request body"))
		return
	}

	_, data, err := parser.ParseLine(h.registry, strings.TrimSpace(string(body)), "")
	if err != nil {
		metrics.ParseFailures.WithLabelValues("webhook_" + provider).Inc()
		writeError(w, apierror.BadRequest(err.Error()))
		return
	}

	ev := parser.CreateEvent("webhook."+provider, "cloud_audit", data)
	if err := h.publish(r, &ev); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	metrics.EventsIngested.WithLabelValues(ev.Source).Inc()
}

func (h *Handler) publish(r *http.Request, ev *model.Event) error {
	ev.NormalizeTimestamp(time.Now())
	if err := ev.Validate(); err != nil {
		return apierror.Validation(err.Error())
	}
	if err := h.producer.Publish(r.Context(), *ev); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("publish to event bus failed")
		return apierror.ServiceBusy("event bus unavailable")
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.Internal(err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status())
	json.NewEncoder(w).Encode(map[string]string{
		"error": string(apiErr.Kind),
		"cause": apiErr.Cause,
	})
}
