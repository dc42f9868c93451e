package alertdispatch

import (
	"context"
	"sync"

	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

// Dispatcher fans an Alert out to severity-routed channels in parallel. A
// channel failure is logged and never blocks or fails the others.
type Dispatcher struct {
	channels map[string]Channel
}

// New builds a Dispatcher from a name→Channel registry. An unconfigured
// channel (e.g. no SMTP host set) should be omitted from channels rather
// than registered as a no-op, so routing to it is silently skipped.
func New(channels map[string]Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

// Dispatch routes alert to every channel its severity maps to and waits
// for all of them to finish.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *model.Alert) {
	body := renderBody(alert)

	var wg sync.WaitGroup
	for _, name := range channelsFor(alert.Severity) {
		ch, ok := d.channels[name]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, alert, body); err != nil {
				logging.Ctx(ctx).Error().Err(err).
					Str("channel", ch.Name()).
					Str("alert_id", alert.ID).
					Msg("alert dispatch failed")
			}
		}(ch)
	}
	wg.Wait()
}
