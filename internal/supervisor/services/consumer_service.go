package services

import (
	"context"

	"github.com/sentrywatch/siemcore/internal/eventbus"
)

// EventConsumer matches eventbus.Consumer's Run method.
type EventConsumer interface {
	Run(ctx context.Context, proc eventbus.Processor) error
}

// ConsumerService runs an EventConsumer's receive loop against a fixed
// Processor as a supervised service. Consumer.Run takes the processor as
// an argument rather than holding it, so this wrapper closes over both and
// exposes the plain Serve(ctx) error shape suture.Service expects.
type ConsumerService struct {
	consumer EventConsumer
	proc     eventbus.Processor
	name     string
}

// NewConsumerService wraps consumer, dispatching every received event to
// proc, under name (used for supervisor logging).
func NewConsumerService(name string, consumer EventConsumer, proc eventbus.Processor) *ConsumerService {
	return &ConsumerService{consumer: consumer, proc: proc, name: name}
}

func (s *ConsumerService) Serve(ctx context.Context) error {
	return s.consumer.Run(ctx, s.proc)
}

func (s *ConsumerService) String() string { return s.name }
