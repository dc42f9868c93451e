package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sentrywatch/siemcore/internal/config"
	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

// Producer implements the Event-Bus Producer: it publishes canonical
// events onto the raw_logs topic, one NATS subject per source so JetStream
// preserves per-source ordering without a separate partition key.
//
// Idempotent-producer (TrackMsgId) and retry/backoff are configured on the
// underlying Watermill NATS publisher (see publisherConfig); Producer adds
// the request-scoped flush deadline and circuit breaker around it.
type Producer struct {
	publisher    message.Publisher
	topic        string
	flushTimeout time.Duration
	breaker      *gobreaker.CircuitBreaker[interface{}]

	mu     sync.RWMutex
	closed bool
}

// NewNATSProducer dials a Watermill NATS JetStream publisher per cfg.
func NewNATSProducer(cfg config.EventBusConfig) (*Producer, error) {
	pub, err := wmNats.NewPublisher(publisherConfig(cfg), watermillLogger())
	if err != nil {
		return nil, fmt.Errorf("eventbus: create publisher: %w", err)
	}
	return NewProducer(pub, cfg.RawLogsTopic, cfg.FlushTimeout), nil
}

// NewProducer wraps an arbitrary Watermill publisher; used directly in
// tests against an in-process gochannel pub/sub.
func NewProducer(publisher message.Publisher, topic string, flushTimeout time.Duration) *Producer {
	if flushTimeout <= 0 {
		flushTimeout = 5 * time.Second
	}
	return &Producer{publisher: publisher, topic: topic, flushTimeout: flushTimeout}
}

// SetCircuitBreaker wraps subsequent Publish calls with cb.
func (p *Producer) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.breaker = cb
}

// Publish serializes ev and publishes it to its source's subject under the
// flush deadline, returning any publish failure to the caller. Satisfies
// ingest.Producer.
func (p *Producer) Publish(ctx context.Context, ev model.Event) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("eventbus: producer is closed")
	}

	payload, err := marshalEvent(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("source", ev.Source)
	msg.Metadata.Set("event_type", ev.EventType)

	subject := Subject(p.topic, ev.Source)

	ctx, cancel := context.WithTimeout(ctx, p.flushTimeout)
	defer cancel()
	msg.SetContext(ctx)

	publish := func() error { return p.publisher.Publish(subject, msg) }

	if p.breaker != nil {
		_, err = p.breaker.Execute(func() (interface{}, error) { return nil, publish() })
	} else {
		err = publish()
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("subject", subject).Msg("event bus publish failed")
		return fmt.Errorf("eventbus: publish to %s: %w", subject, err)
	}
	return nil
}

// Close shuts the producer down; further Publish calls fail immediately.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
