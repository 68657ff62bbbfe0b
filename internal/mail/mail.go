// Package mail renders and delivers transactional email.
//
// Messages are rendered from templates, queued on a Redis stream by the
// Outbox and delivered by the Worker through a Mailer.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrProviderRejected is returned when the provider answers with a non-2xx status.
var ErrProviderRejected = errors.New("email provider rejected message")

// Message is a fully rendered email.
type Message struct {
	ToName   string
	ToEmail  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client   *sendgrid.Client
	fromName string
	from     string
	logger   *slog.Logger
}

// NewSendGridMailer creates a mailer for the given API key and sender.
func NewSendGridMailer(apiKey, from, fromName string, logger *slog.Logger) *SendGridMailer {
	return newSendGridMailer(sendgrid.NewSendClient(apiKey), from, fromName, logger)
}

func newSendGridMailer(client *sendgrid.Client, from, fromName string, logger *slog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:   client,
		from:     from,
		fromName: fromName,
		logger:   logger.With("component", "mail.sendgrid"),
	}
}

// Send posts the message to SendGrid.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(m.fromName, m.from)
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
	payload := sgmail.NewSingleEmail(from, msg.Subject, to, msg.TextBody, msg.HTMLBody)

	resp, err := m.client.SendWithContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrProviderRejected, resp.StatusCode)
	}

	m.logger.Debug("email accepted by provider",
		"subject", msg.Subject,
		"status", resp.StatusCode,
	)
	return nil
}

// LogMailer logs messages instead of sending them.
// It is used when no provider key is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mail.log")}
}

// Send logs the envelope. Bodies are not logged.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email not sent, no provider configured",
		"to", msg.ToEmail,
		"subject", msg.Subject,
		"sent_at", time.Now().UTC(),
	)
	return nil
}
