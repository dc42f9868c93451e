// Package pipeline wires the processing-plane stages — dedup, enrich,
// archive, index, detect, alert-dispatch, playbook — into the single
// Processor the event-bus consumer drives for every event it decodes off
// the bus.
package pipeline

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/metrics"
	"github.com/sentrywatch/siemcore/internal/model"
)

// Deduplicator reports whether ev has already been processed.
type Deduplicator interface {
	IsDuplicate(ctx context.Context, ev *model.Event) (bool, error)
}

// Enricher attaches the GeoIP/DNS/threat-intel overlay to ev in place.
type Enricher interface {
	Enrich(ctx context.Context, ev *model.Event)
}

// Archiver writes ev's serialized body to cold storage when it meets the
// archival predicate. Failures are logged by the Archiver itself, never
// propagated, so this interface carries no error return.
type Archiver interface {
	Archive(ctx context.Context, ev *model.Event, body []byte)
}

// Indexer writes events into the search index.
type Indexer interface {
	BulkWrite(ctx context.Context, docs []model.Event, pipeline string) error
}

// DetectionEngine evaluates ev against the loaded rule and anomaly-model
// set, returning every Alert it fires.
type DetectionEngine interface {
	Evaluate(ctx context.Context, ev *model.Event) []model.Alert
}

// AlertDispatcher routes a fired Alert to its notification channels.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert *model.Alert)
}

// PlaybookEngine runs every enabled playbook whose triggers match alert.
type PlaybookEngine interface {
	Execute(ctx context.Context, alert *model.Alert) []model.ActionOutcome
}

// Processor chains the processing-plane stages for one event: a duplicate
// short-circuits before enrichment; everything else always runs, each
// stage's own failure logged and absorbed rather than aborting the rest,
// since a down index or archive store should never stop detection.
type Processor struct {
	dedup     Deduplicator
	enrich    Enricher
	archive   Archiver
	index     Indexer
	detect    DetectionEngine
	dispatch  AlertDispatcher
	playbooks PlaybookEngine
}

// New assembles a Processor from its stage dependencies. playbooks may be
// nil when no playbooks are configured.
func New(dedup Deduplicator, enrich Enricher, archive Archiver, index Indexer, detect DetectionEngine, dispatch AlertDispatcher, playbooks PlaybookEngine) *Processor {
	return &Processor{
		dedup:     dedup,
		enrich:    enrich,
		archive:   archive,
		index:     index,
		detect:    detect,
		dispatch:  dispatch,
		playbooks: playbooks,
	}
}

// Process implements eventbus.Processor.
func (p *Processor) Process(ctx context.Context, ev model.Event) error {
	dup, err := p.dedup.IsDuplicate(ctx, &ev)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_id", ev.ID).Msg("dedup check failed, processing anyway")
	} else if dup {
		metrics.DedupHits.Inc()
		return nil
	}

	p.enrich.Enrich(ctx, &ev)

	body, err := json.Marshal(ev)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event_id", ev.ID).Msg("marshal event for archive failed")
	} else {
		p.archive.Archive(ctx, &ev, body)
	}

	if err := p.index.BulkWrite(ctx, []model.Event{ev}, ""); err != nil {
		metrics.IndexWriteFailures.Inc()
		logging.Ctx(ctx).Error().Err(err).Str("event_id", ev.ID).Msg("index write failed")
	}

	for _, alert := range p.detect.Evaluate(ctx, &ev) {
		alert := alert
		p.dispatch.Dispatch(ctx, &alert)
		if p.playbooks != nil {
			p.playbooks.Execute(ctx, &alert)
		}
	}

	return nil
}
