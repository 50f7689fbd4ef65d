package mailer

import (
	"github.com/sudarshan/carebuddy/shared"
	gomail "gopkg.in/gomail.v2"
)

// Client wraps the SMTP delivery channel. Presence of credentials is the only
// feature flag the reminder & SOS cores inspect; an unconfigured client is
// still safe to construct and pass around.
type Client struct {
	config shared.SmtpConfig
}

func NewClient(config shared.SmtpConfig) *Client {
	return &Client{config: config}
}

// IsConfigured reports whether the channel can actually deliver email.
func (c *Client) IsConfigured() bool {
	return c.config.Host != "" && c.config.Username != "" && c.config.Password != ""
}

// Send delivers a single html email, fire-and-forget per call. Callers decide
// what a failure means; the mailer never retries.
func (c *Client) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", c.from(), "CareBuddy")
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(c.config.Host, c.config.Port, c.config.Username, c.config.Password)

	return dialer.DialAndSend(msg)
}

func (c *Client) from() string {
	if c.config.From != "" {
		return c.config.From
	}
	return c.config.Username
}
