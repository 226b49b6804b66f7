// Package mail delivers account notification emails.
package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"investtrack/internal/config"
	"investtrack/internal/logger"
)

const sendTimeout = 30 * time.Second

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when MAIL_HOST is configured and a logging
// mailer otherwise.
func New(cfg *config.Config) (Mailer, error) {
	if cfg.MailHost == "" {
		return LogMailer{}, nil
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.MailPort),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(sendTimeout),
	}
	if cfg.MailUser != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.MailUser),
			gomail.WithPassword(cfg.MailPassword),
		)
	}
	client, err := gomail.NewClient(cfg.MailHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", cfg.MailHost, err)
	}
	return &SMTPMailer{client: client, from: cfg.MailFrom}, nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logger.Named("mail").Infow("mail not sent, no MAIL_HOST configured",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// SMTPMailer delivers through an SMTP relay, upgrading to TLS when offered.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := m.compose(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetMessageID()
	out.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return out, nil
}

// Recorder keeps sent messages in memory. Tests use it to read OTPs.
type Recorder struct {
	Sent []Message
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.Sent = append(r.Sent, msg)
	return nil
}

// Last returns the most recent message, or the zero Message.
func (r *Recorder) Last() Message {
	if len(r.Sent) == 0 {
		return Message{}
	}
	return r.Sent[len(r.Sent)-1]
}
