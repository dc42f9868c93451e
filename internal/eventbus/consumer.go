package eventbus

import (
	"context"
	"fmt"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sentrywatch/siemcore/internal/config"
	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

// Processor handles one decoded event off the bus. Returning an error
// leaves the message unacked so JetStream redelivers it: the consumer's
// contract is at-least-once delivery, matching the teacher's synchronous
// ack/nack handling in its subscriber.
type Processor interface {
	Process(ctx context.Context, ev model.Event) error
}

// Consumer implements the Event-Bus Consumer: it subscribes to the
// raw_logs topic under the configured consumer group and durable name,
// decodes each message, and hands it to a Processor.
//
// Watermill's NATS subscriber delivers messages over a channel rather than
// a poll loop; the consumer's for/select below is the push-based
// equivalent of the Kafka-style "poll(1s), ignore PartitionEOF" loop —
// there is no partition-EOF concept over JetStream; the loop ends when ctx
// is canceled or the subscriber closes its message channel.
type Consumer struct {
	subscriber message.Subscriber
	topic      string
}

// NewNATSConsumer dials a Watermill NATS JetStream subscriber bound to the
// stream initialized by StreamInitializer.
func NewNATSConsumer(cfg config.EventBusConfig, streamName string) (*Consumer, error) {
	sub, err := wmNats.NewSubscriber(subscriberConfig(cfg, streamName), watermillLogger())
	if err != nil {
		return nil, fmt.Errorf("eventbus: create subscriber: %w", err)
	}
	return NewConsumer(sub, cfg.RawLogsTopic), nil
}

// NewConsumer wraps an arbitrary Watermill subscriber; used directly in
// tests against an in-process gochannel pub/sub.
func NewConsumer(subscriber message.Subscriber, topic string) *Consumer {
	return &Consumer{subscriber: subscriber, topic: topic}
}

// Run subscribes to every per-source subject under topic (topic.>) and
// dispatches decoded events to proc until ctx is canceled.
func (c *Consumer) Run(ctx context.Context, proc Processor) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic+".>")
	if err != nil {
		return fmt.Errorf("eventbus: subscribe to %s.>: %w", c.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.handle(ctx, proc, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, proc Processor, msg *message.Message) {
	ev, err := unmarshalEvent(msg.Payload)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("message_uuid", msg.UUID).Msg("event bus decode failed")
		msg.Nack()
		return
	}

	if err := proc.Process(msg.Context(), ev); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("message_uuid", msg.UUID).Str("source", ev.Source).Msg("event bus processing failed")
		msg.Nack()
		return
	}

	msg.Ack()
}

// Close shuts the consumer's subscription down.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}
