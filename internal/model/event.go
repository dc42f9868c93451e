// Package model defines the canonical types that flow through the
// ingestion and detection pipeline: Event, Alert, Rule, and Playbook.
package model

import (
	"fmt"
	"regexp"
	"time"
)

// identifierPattern is the character class shared by Event.Source and
// Event.EventType.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// MaxEventDataBytes bounds the serialized size of Event.Data.
const MaxEventDataBytes = 1 << 20 // 1 MiB

// MaxBatchEvents bounds the number of events in one ingest batch.
const MaxBatchEvents = 1000

// MaxBatchBytes bounds the total serialized size of one ingest batch.
const MaxBatchBytes = 5 << 20 // 5 MiB

// Severity is the normalized severity of an Event or Alert.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// EnrichedOverlay holds the results of the concurrent GeoIP/DNS/threat-intel
// enrichment fan-out, attached to an Event under "enriched" once computed.
type EnrichedOverlay struct {
	ProcessingTimestamp time.Time                `json:"processing_timestamp"`
	IPInfo              map[string]IPInfo        `json:"ip_info,omitempty"`
	DNSInfo             map[string]DNSInfo       `json:"dns_info,omitempty"`
	ThreatIntel         map[string]ThreatIntel   `json:"threat_intel,omitempty"`
}

// IPInfo is the GeoIP overlay for a single address.
type IPInfo struct {
	Country  string  `json:"country,omitempty"`
	City     string  `json:"city,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	ASN      uint    `json:"asn,omitempty"`
}

// DNSInfo is the reverse/forward DNS overlay for a single hostname.
type DNSInfo struct {
	IPAddresses    []string      `json:"ip_addresses"`
	ResolutionTime time.Duration `json:"resolution_time"`
}

// ThreatIntel is the aggregated threat-intelligence overlay for a single
// indicator (IP, domain, or file hash).
type ThreatIntel struct {
	Score      float64  `json:"score"`
	Categories []string `json:"categories,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}

// Event is the canonical unit flowing through the pipeline.
type Event struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  Severity       `json:"severity"`
	Vendor    string         `json:"vendor,omitempty"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// SequenceNum, when set by the parser/collector, is excluded from the
	// dedup fingerprint because it legitimately differs between redeliveries
	// of the same underlying log line.
	SequenceNum int64 `json:"sequence_num,omitempty"`

	Enriched *EnrichedOverlay `json:"enriched,omitempty"`
}

// Validate enforces the §3 invariants that are not already guaranteed by
// the parser (character classes, size bound, default severity).
func (e *Event) Validate() error {
	if !identifierPattern.MatchString(e.Source) || len(e.Source) > 255 {
		return fmt.Errorf("source must match [A-Za-z0-9_.-]+ and be 1-255 chars: %q", e.Source)
	}
	if !identifierPattern.MatchString(e.EventType) || len(e.EventType) > 100 {
		return fmt.Errorf("event_type must match [A-Za-z0-9_.-]+ and be 1-100 chars: %q", e.EventType)
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	if !e.Severity.valid() {
		return fmt.Errorf("invalid severity: %q", e.Severity)
	}
	return nil
}

// NormalizeTimestamp fills Timestamp with the current UTC instant when
// absent, and UTC-normalizes it otherwise. Must run before the event is
// handed to the producer.
func (e *Event) NormalizeTimestamp(now time.Time) {
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
		return
	}
	e.Timestamp = e.Timestamp.UTC()
}

// Batch is the body of POST /ingest/batch.
type Batch struct {
	Events []Event `json:"events"`
}

// BatchResult is the per-event outcome returned from a batch ingest.
type BatchResult struct {
	Index int    `json:"index"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BatchSummary is the aggregate outcome of a batch ingest.
type BatchSummary struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Results    []BatchResult `json:"results"`
}

// Tree returns e as a plain map for dotted-path field navigation (rule
// selection/condition matching): top-level identity fields alongside the
// event's own Data, so a path may address either "source" or
// "data.src_ip" uniformly.
func (e *Event) Tree() map[string]any {
	return map[string]any{
		"id":         e.ID,
		"source":     e.Source,
		"event_type": e.EventType,
		"severity":   string(e.Severity),
		"vendor":     e.Vendor,
		"data":       e.Data,
	}
}
