// Package archive writes events that meet the archival predicate to cold
// object storage (S3 or an S3-API-compatible MinIO endpoint).
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

// ObjectStore persists a single archived object under key.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte) error
}

// Archiver decides which events meet the archival predicate and writes
// them to an ObjectStore. Failures are logged, never propagated: cold
// storage is a best-effort shadow of the pipeline, not on its critical
// path.
type Archiver struct {
	store ObjectStore
}

// New returns an Archiver writing to store.
func New(store ObjectStore) *Archiver {
	return &Archiver{store: store}
}

// severityHigh is the set of severities that unconditionally qualify an
// event for archival, regardless of event_type.
var severityHigh = map[model.Severity]struct{}{
	model.SeverityCritical: {},
	model.SeverityHigh:     {},
}

var archivalEventTypeSubstrings = []string{"attack", "threat", "security"}

// ShouldArchive reports whether ev meets the archival predicate:
// severity in {critical, high}, or event_type containing one of
// {attack, threat, security}.
func ShouldArchive(ev *model.Event) bool {
	if _, ok := severityHigh[ev.Severity]; ok {
		return true
	}
	lowered := strings.ToLower(ev.EventType)
	for _, substr := range archivalEventTypeSubstrings {
		if strings.Contains(lowered, substr) {
			return true
		}
	}
	return false
}

// ObjectKey builds the YYYY/MM/DD/<source>/HHMMSS-<event_id>.json key for
// ev, using its normalized timestamp.
func ObjectKey(ev *model.Event) string {
	ts := ev.Timestamp.UTC()
	return fmt.Sprintf("%s/%s/%s-%s.json",
		ts.Format("2006/01/02"), ev.Source, ts.Format("150405"), ev.ID)
}

// Archive writes ev to cold storage if it meets the archival predicate.
// It never returns an error to the caller: a storage failure is logged
// and swallowed so archival can never stall or fail the event pipeline.
func (a *Archiver) Archive(ctx context.Context, ev *model.Event, body []byte) {
	if a.store == nil || !ShouldArchive(ev) {
		return
	}
	key := ObjectKey(ev)
	if err := a.store.PutObject(ctx, key, body); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("archive write failed")
		return
	}
	logging.Ctx(ctx).Debug().Str("key", key).Msg("archived event")
}
