// Package alertdispatch routes Alerts to notification channels by
// severity, dispatching in parallel with independent per-channel failures.
package alertdispatch

import (
	"context"

	"github.com/sentrywatch/siemcore/internal/model"
)

// Channel delivers a single rendered alert body to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert *model.Alert, body string) error
}

// severityRouting is the default severity→channel routing map: critical
// reaches every channel, high drops IM, medium and low are chat-only. The
// SOC-dashboard websocket stream gets every severity, since a connected
// dashboard wants the full feed regardless of routing tier.
var severityRouting = map[model.Severity][]string{
	model.SeverityCritical: {"email", "chat", "im", "stream"},
	model.SeverityHigh:     {"email", "chat", "stream"},
	model.SeverityMedium:   {"chat", "stream"},
	model.SeverityLow:      {"chat", "stream"},
}

// channelsFor returns the channel names routed for severity, defaulting
// to chat-plus-stream for any severity outside the routing map.
func channelsFor(severity model.Severity) []string {
	if names, ok := severityRouting[severity]; ok {
		return names
	}
	return []string{"chat", "stream"}
}
