package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/sentrywatch/siemcore/internal/model"
)

func TestFingerprintExcludesVolatileFields(t *testing.T) {
	a := &model.Event{
		Source: "fw1", EventType: "traffic",
		Data: map[string]any{"src_ip": "10.0.0.1", "timestamp": "2024-01-01T00:00:00Z", "id": "a", "sequence_num": float64(1)},
	}
	b := &model.Event{
		Source: "fw1", EventType: "traffic",
		Data: map[string]any{"src_ip": "10.0.0.1", "timestamp": "2024-01-02T00:00:00Z", "id": "b", "sequence_num": float64(2)},
	}

	fpA, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint(a) error: %v", err)
	}
	fpB, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint(b) error: %v", err)
	}
	if fpA != fpB {
		t.Errorf("Fingerprint() differed despite identical identity fields: %q vs %q", fpA, fpB)
	}
}

func TestFingerprintDiffersOnIdentityFields(t *testing.T) {
	a := &model.Event{Source: "fw1", EventType: "traffic", Data: map[string]any{"src_ip": "10.0.0.1"}}
	b := &model.Event{Source: "fw1", EventType: "traffic", Data: map[string]any{"src_ip": "10.0.0.2"}}

	fpA, _ := Fingerprint(a)
	fpB, _ := Fingerprint(b)
	if fpA == fpB {
		t.Error("Fingerprint() matched for events with different data")
	}
}

func TestDeduplicatorIsDuplicate(t *testing.T) {
	d := New(Config{Capacity: 100, Window: time.Hour, SweepSchedule: "0 0 1 1 *"})
	defer d.Stop()

	ev := &model.Event{Source: "fw1", EventType: "traffic", Data: map[string]any{"src_ip": "10.0.0.1"}}

	dup, err := d.IsDuplicate(context.Background(), ev)
	if err != nil {
		t.Fatalf("IsDuplicate() error: %v", err)
	}
	if dup {
		t.Fatal("IsDuplicate() first occurrence reported as duplicate")
	}

	dup, err = d.IsDuplicate(context.Background(), ev)
	if err != nil {
		t.Fatalf("IsDuplicate() error: %v", err)
	}
	if !dup {
		t.Fatal("IsDuplicate() second occurrence not reported as duplicate")
	}
}
