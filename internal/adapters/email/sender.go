package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string
	From    string // empty uses the sender's default
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	Tags    map[string]string // provider-side tags, e.g. ticket_id
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Config selects and configures a Sender.
type Config struct {
	ResendKey string
	From      string
	ReplyTo   string
}

// New returns a ResendSender when a key is configured, otherwise a NoopSender.
func New(cfg Config) Sender {
	if cfg.ResendKey == "" {
		return NewNoopSender()
	}
	return NewResendSender(cfg.ResendKey, cfg.From, cfg.ReplyTo)
}
