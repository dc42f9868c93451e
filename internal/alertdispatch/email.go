package alertdispatch

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sentrywatch/siemcore/internal/model"
)

// EmailChannel sends alert bodies via SMTP. No SMTP client library
// appears anywhere in the example pack, so this uses the stdlib net/smtp
// client directly.
type EmailChannel struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
}

// NewEmailChannel builds an EmailChannel. auth is nil when username is
// empty, matching an SMTP relay that accepts unauthenticated local
// delivery.
func NewEmailChannel(host string, port int, username, password, from string, to []string) *EmailChannel {
	addr := fmt.Sprintf("%s:%d", host, port)
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &EmailChannel{addr: addr, auth: auth, from: from, to: to}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(_ context.Context, alert *model.Alert, body string) error {
	if len(c.to) == 0 {
		return fmt.Errorf("email: no recipients configured")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: [%s] %s\r\n\r\n%s",
		c.from, strings.Join(c.to, ", "), strings.ToUpper(string(alert.Severity)), sanitize(alert.Title), body)

	return smtp.SendMail(c.addr, c.auth, c.from, c.to, []byte(msg))
}
