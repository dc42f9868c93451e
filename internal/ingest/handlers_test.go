package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sentrywatch/siemcore/internal/auth"
	"github.com/sentrywatch/siemcore/internal/model"
	"github.com/sentrywatch/siemcore/internal/parser"
	"github.com/sentrywatch/siemcore/internal/ratelimit"
)

type fakeProducer struct {
	published []model.Event
	failNext  bool
}

func (p *fakeProducer) Publish(_ context.Context, ev model.Event) error {
	if p.failNext {
		return errTestPublishFailed
	}
	p.published = append(p.published, ev)
	return nil
}

var errTestPublishFailed = &testErr{"publish failed"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func newTestHandler(t *testing.T) (*Handler, *fakeProducer, string) {
	t.Helper()
	hash, err := auth.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	users := auth.NewStaticUserStore(model.User{
		Username:     "alice",
		PasswordHash: hash,
		Scopes:       []model.Scope{model.ScopeLogsWrite},
	})
	gk, err := auth.New(auth.Config{
		TokenSecret:            []byte("a-sufficiently-long-signing-secret"),
		AccessTokenLifetime:    time.Hour,
		MaxFailedLoginAttempts: 5,
		LockoutDuration:        time.Minute,
	}, users)
	if err != nil {
		t.Fatalf("auth.New() error: %v", err)
	}

	token, _, err := gk.IssueToken(context.Background(), "alice", "correct horse battery staple", "")
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	producer := &fakeProducer{}
	limiter := ratelimit.New(ratelimit.NewMemoryStore())
	h := NewHandler(gk, parser.NewRegistry(), producer, limiter, nil)
	return h, producer, token
}

func TestIngestOneRequiresBearer(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/", strings.NewReader(`{"source":"fw1","event_type":"traffic","data":{}}`))
	rec := httptest.NewRecorder()

	h.IngestOne(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("IngestOne() status = %d, want 401", rec.Code)
	}
}

func TestIngestOnePublishesValidEvent(t *testing.T) {
	h, producer, token := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/", strings.NewReader(`{"source":"fw1","event_type":"traffic","data":{"src_ip":"10.0.0.1"}}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.IngestOne(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("IngestOne() status = %d, want 202, body=%s", rec.Code, rec.Body.String())
	}
	if len(producer.published) != 1 {
		t.Fatalf("IngestOne() published %d events, want 1", len(producer.published))
	}
	if producer.published[0].Source != "fw1" {
		t.Errorf("IngestOne() source = %q, want fw1", producer.published[0].Source)
	}
}

func TestIngestOneRejectsInvalidSource(t *testing.T) {
	h, _, token := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/", strings.NewReader(`{"source":"bad source!","event_type":"traffic","data":{}}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.IngestOne(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("IngestOne() status = %d, want 422", rec.Code)
	}
}

func TestIngestRawAutoDetectsFormat(t *testing.T) {
	h, producer, token := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/raw?source=syslog-host", strings.NewReader("Feb  5 12:23:09 myhost program[123]: hello"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.IngestRaw(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("IngestRaw() status = %d, want 202, body=%s", rec.Code, rec.Body.String())
	}
	if len(producer.published) != 1 {
		t.Fatalf("IngestRaw() published %d events, want 1", len(producer.published))
	}
	if producer.published[0].Data["message"] != "hello" {
		t.Errorf("IngestRaw() message = %v, want hello", producer.published[0].Data["message"])
	}
}

func TestIngestBatchRejectsEmpty(t *testing.T) {
	h, _, token := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/batch", strings.NewReader(`{"events":[]}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.IngestBatch(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("IngestBatch() status = %d, want 422", rec.Code)
	}
}

func TestIngestBatchPartialFailureReportedPerEvent(t *testing.T) {
	h, _, token := newTestHandler(t)

	body := `{"events":[
		{"source":"fw1","event_type":"traffic","data":{}},
		{"source":"bad source","event_type":"traffic","data":{}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/batch", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.IngestBatch(rec, req)

	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("IngestBatch() status = %d, want 207, body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"successful":1`) || !strings.Contains(rec.Body.String(), `"failed":1`) {
		t.Errorf("IngestBatch() body = %s, want 1 successful and 1 failed", rec.Body.String())
	}
}

func TestIssueTokenRejectsBadCredentials(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()

	h.IssueToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("IssueToken() status = %d, want 401", rec.Code)
	}
}
