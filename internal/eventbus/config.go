package eventbus

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"

	"github.com/sentrywatch/siemcore/internal/config"
	"github.com/sentrywatch/siemcore/internal/logging"
)

// StreamConfig describes the JetStream stream backing the raw_logs topic.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig derives a JetStream stream configuration from the
// resolved eventbus config: one stream, subjects "<topic>.>", a 7-day
// retention window, and a fixed two-minute duplicate window so
// republishes of the same Nats-Msg-Id within it are suppressed at the
// transport layer.
func DefaultStreamConfig(cfg config.EventBusConfig) StreamConfig {
	return StreamConfig{
		Name:            "RAW_LOGS",
		Subjects:        []string{cfg.RawLogsTopic + ".>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        10 << 30,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

func watermillLogger() watermill.LoggerAdapter {
	return logging.NewWatermillAdapter()
}

func publisherConfig(cfg config.EventBusConfig) wmNats.PublisherConfig {
	return wmNats.PublisherConfig{
		URL: cfg.URL,
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(cfg.MaxReconnects),
			natsgo.ReconnectWait(cfg.ReconnectWait),
		},
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // the stream is pre-created by EnsureStream
			TrackMsgId:    true,  // idempotent producer: dedupe exact republishes
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(time.Second),
			},
		},
	}
}

func subscriberConfig(cfg config.EventBusConfig, streamName string) wmNats.SubscriberConfig {
	return wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.ConsumerGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(cfg.MaxReconnects),
			natsgo.ReconnectWait(cfg.ReconnectWait),
		},
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			AckAsync:      false, // synchronous ack: offset-equivalent only advances on success
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(cfg.MaxDeliver),
				natsgo.MaxAckPending(cfg.MaxAckPending),
				natsgo.AckWait(cfg.AckWaitTimeout),
				natsgo.BindStream(streamName),
				natsgo.DeliverAll(), // offset reset "earliest"
			},
		},
	}
}
