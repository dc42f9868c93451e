package alertdispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/sentrywatch/siemcore/internal/model"
)

// webhookPayload is a minimal incoming-webhook body compatible with the
// common chat-platform shape (a single "text" field).
type webhookPayload struct {
	Text string `json:"text"`
}

// WebhookChannel posts a rendered alert body to an incoming-webhook URL
// (chat or IM platform). The two channels differ only in name and URL.
type WebhookChannel struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhookChannel builds a WebhookChannel named name posting to url.
func NewWebhookChannel(name, url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{name: name, url: url, client: &http.Client{Timeout: timeout}}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Send(ctx context.Context, _ *model.Alert, body string) error {
	if c.url == "" {
		return fmt.Errorf("%s: no webhook url configured", c.name)
	}

	payload, err := json.Marshal(webhookPayload{Text: body})
	if err != nil {
		return fmt.Errorf("%s: encode payload: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: post: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", c.name, resp.StatusCode)
	}
	return nil
}
