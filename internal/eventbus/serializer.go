// Package eventbus implements the Event-Bus Producer and Consumer: a
// Watermill-over-NATS-JetStream transport carrying canonical events from
// the Ingestion Endpoint to the dedup/enrich/archive/index/detect chain.
package eventbus

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/sentrywatch/siemcore/internal/model"
)

// Subject returns the NATS subject an event publishes to: the configured
// base topic suffixed with the event's source, giving the stream
// partition-sticky ordering per source without a separate partition key.
func Subject(base, source string) string {
	return base + "." + source
}

// marshalEvent gzip-compresses the event's canonical JSON encoding, per
// the producer's compression=gzip configuration contract.
func marshalEvent(ev model.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("eventbus: marshal event: %w", err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(payload); err != nil {
		return nil, fmt.Errorf("eventbus: gzip event: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("eventbus: gzip event: %w", err)
	}
	return buf.Bytes(), nil
}

// unmarshalEvent reverses marshalEvent.
func unmarshalEvent(data []byte) (model.Event, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return model.Event{}, fmt.Errorf("eventbus: open gzip payload: %w", err)
	}
	defer gr.Close()

	payload, err := io.ReadAll(gr)
	if err != nil {
		return model.Event{}, fmt.Errorf("eventbus: read gzip payload: %w", err)
	}

	var ev model.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return model.Event{}, fmt.Errorf("eventbus: unmarshal event: %w", err)
	}
	return ev, nil
}
