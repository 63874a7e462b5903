// Package notify sends transactional email.
package notify

import (
	"context"
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Visitor Management", fromEmail),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return fmt.Errorf("notify: recipient email is empty")
	}
	html := msg.HTML
	if html == "" {
		html = "<p>" + msg.Text + "</p>"
	}
	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail(msg.ToName, msg.ToEmail), msg.Text, html)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// NopMailer logs messages instead of sending them. Used when SendGrid is not
// configured.
type NopMailer struct{}

func (NopMailer) Send(_ context.Context, msg Message) error {
	log.Debugf("email to %s skipped (mailer disabled): %s", msg.ToEmail, msg.Subject)
	return nil
}

// New picks SendGrid when an API key is configured.
func New(apiKey, fromEmail string) Mailer {
	if apiKey == "" || fromEmail == "" {
		return NopMailer{}
	}
	return NewSendGridMailer(apiKey, fromEmail)
}
