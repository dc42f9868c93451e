package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

type fakeJetStream struct {
	streams     map[string]jetstream.Stream
	createCalls int
	updateCalls int
	createCfg   jetstream.StreamConfig
	updateCfg   jetstream.StreamConfig
}

func (f *fakeJetStream) Stream(_ context.Context, name string) (jetstream.Stream, error) {
	if s, ok := f.streams[name]; ok {
		return s, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (f *fakeJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.createCalls++
	f.createCfg = cfg
	if f.streams == nil {
		f.streams = map[string]jetstream.Stream{}
	}
	f.streams[cfg.Name] = nil
	return nil, nil
}

func (f *fakeJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.updateCalls++
	f.updateCfg = cfg
	return nil, nil
}

func TestStreamInitializerCreatesMissingStream(t *testing.T) {
	js := &fakeJetStream{}
	cfg := StreamConfig{
		Name:            "RAW_LOGS",
		Subjects:        []string{"raw_logs.>"},
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
	init := &StreamInitializer{js: js, config: cfg}

	if _, err := init.EnsureStream(context.Background()); err != nil {
		t.Fatalf("EnsureStream() error: %v", err)
	}
	if js.createCalls != 1 || js.updateCalls != 0 {
		t.Errorf("createCalls=%d updateCalls=%d, want 1/0", js.createCalls, js.updateCalls)
	}
	if js.createCfg.Name != "RAW_LOGS" {
		t.Errorf("createCfg.Name = %q, want RAW_LOGS", js.createCfg.Name)
	}
}

func TestStreamInitializerUpdatesExistingStream(t *testing.T) {
	js := &fakeJetStream{streams: map[string]jetstream.Stream{"RAW_LOGS": nil}}
	init := &StreamInitializer{js: js, config: StreamConfig{Name: "RAW_LOGS", Subjects: []string{"raw_logs.>"}}}

	if _, err := init.EnsureStream(context.Background()); err != nil {
		t.Fatalf("EnsureStream() error: %v", err)
	}
	if js.updateCalls != 1 || js.createCalls != 0 {
		t.Errorf("createCalls=%d updateCalls=%d, want 0/1", js.createCalls, js.updateCalls)
	}
}
