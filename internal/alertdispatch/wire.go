package alertdispatch

import "github.com/sentrywatch/siemcore/internal/config"

// NewFromConfig assembles a Dispatcher with only the channels cfg
// actually configures (email requires an SMTP host, chat and im each
// require their webhook URL) plus the always-on /ws/alerts stream
// channel, and returns the Hub backing that stream so the caller can
// mount its ServeHTTP and run its Run loop under a supervisor.
func NewFromConfig(cfg config.AlertDispatchConfig) (*Dispatcher, *Hub) {
	channels := make(map[string]Channel)

	if cfg.SMTPHost != "" {
		channels["email"] = NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailTo)
	}
	if cfg.ChatWebhookURL != "" {
		channels["chat"] = NewWebhookChannel("chat", cfg.ChatWebhookURL, cfg.DispatchTimeout)
	}
	if cfg.IMWebhookURL != "" {
		channels["im"] = NewWebhookChannel("im", cfg.IMWebhookURL, cfg.DispatchTimeout)
	}

	hub := NewHub()
	channels["stream"] = NewStreamChannel(hub)

	return New(channels), hub
}
