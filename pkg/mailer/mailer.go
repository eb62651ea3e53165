// Package mailer delivers plain-text transactional e-mail.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

// Message is a single outbound e-mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid delivers through the SendGrid v3 API.
type SendGrid struct {
	client   sendClient
	from     string
	fromName string
	logg     *logger.Logger
}

// New picks SendGrid when an API key is configured and a logging mailer otherwise.
func New(cfg config.SendgridConfig, logg *logger.Logger) (Mailer, error) {
	if !cfg.Enabled() {
		return NewLogMailer(logg), nil
	}
	return NewSendGrid(sendgrid.NewSendClient(cfg.APIKey), cfg, logg)
}

// NewSendGrid wires a SendGrid mailer around client.
func NewSendGrid(client sendClient, cfg config.SendgridConfig, logg *logger.Logger) (*SendGrid, error) {
	if client == nil {
		return nil, errors.New("sendgrid client required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from address required")
	}
	return &SendGrid{client: client, from: cfg.DefaultFrom, fromName: cfg.FromName, logg: logg}, nil
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	email := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Body,
		fmt.Sprintf("<pre>%s</pre>", html.EscapeString(msg.Body)),
	)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"status":  resp.StatusCode,
			"to":      msg.To,
			"subject": msg.Subject,
		})
		s.logg.Info(logCtx, "mail sent")
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used in dev.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if l.logg != nil {
		logCtx := l.logg.WithFields(ctx, map[string]any{
			"to":      msg.To,
			"subject": msg.Subject,
			"body":    msg.Body,
		})
		l.logg.Info(logCtx, "mail delivery skipped (no sendgrid key)")
	}
	return nil
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject is required")
	}
	return nil
}
