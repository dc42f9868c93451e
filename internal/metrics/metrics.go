// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siemcore_events_ingested_total",
		Help: "Events accepted at the ingestion endpoint, by source.",
	}, []string{"source"})

	ParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siemcore_parse_failures_total",
		Help: "Log lines that failed format detection or field coercion.",
	}, []string{"reason"})

	DedupHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "siemcore_dedup_hits_total",
		Help: "Events dropped as duplicates within the dedup window.",
	})

	EnrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "siemcore_enrich_duration_seconds",
		Help:    "Wall time of the concurrent GeoIP/DNS/threat-intel enrichment fan-out.",
		Buckets: prometheus.DefBuckets,
	})

	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siemcore_alerts_raised_total",
		Help: "Alerts raised by the detection engine, by rule kind and severity.",
	}, []string{"kind", "severity"})

	PlaybookActionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siemcore_playbook_action_outcomes_total",
		Help: "Playbook action results, by action type and outcome.",
	}, []string{"type", "outcome"})

	IndexWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "siemcore_index_write_failures_total",
		Help: "Bulk index writes that failed after retries.",
	})

	ArchiveWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "siemcore_archive_write_failures_total",
		Help: "Cold-storage archive writes that failed (best-effort, non-fatal).",
	})

	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siemcore_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter, by dimension.",
	}, []string{"dimension"})
)
