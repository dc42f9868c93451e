package eventbus

import (
	"testing"
	"time"

	"github.com/sentrywatch/siemcore/internal/model"
)

func TestMarshalUnmarshalEventRoundTrip(t *testing.T) {
	want := model.Event{
		ID:        "evt-1",
		Source:    "fw1",
		EventType: "traffic",
		Timestamp: time.Date(2024, 2, 5, 12, 23, 9, 0, time.UTC),
		Severity:  model.SeverityInfo,
		Data:      map[string]any{"src_ip": "10.0.0.1"},
	}

	payload, err := marshalEvent(want)
	if err != nil {
		t.Fatalf("marshalEvent() error: %v", err)
	}

	got, err := unmarshalEvent(payload)
	if err != nil {
		t.Fatalf("unmarshalEvent() error: %v", err)
	}

	if got.Source != want.Source || got.EventType != want.EventType {
		t.Errorf("unmarshalEvent() = %+v, want source/event_type from %+v", got, want)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("unmarshalEvent() timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
	if got.Data["src_ip"] != "10.0.0.1" {
		t.Errorf("unmarshalEvent() data = %v, want src_ip 10.0.0.1", got.Data)
	}
}

func TestSubject(t *testing.T) {
	if got, want := Subject("raw_logs", "fw1"), "raw_logs.fw1"; got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
}
