package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

type Service interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPService sends plain-text mail through one SMTP connection per message.
func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) Send(ctx context.Context, to []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := NewMessage(s.from, to, subject, body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", strings.Join(to, ","), err)
	}
	return nil
}

// NewMessage builds the gomail message sent for a notification.
func NewMessage(from string, to []string, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

type logService struct {
	logger *logger.Logger
}

// NewLogService only logs outgoing mail. Used when no SMTP host is configured.
func NewLogService(logger *logger.Logger) Service {
	return &logService{logger: logger}
}

func (s *logService) Send(_ context.Context, to []string, subject, _ string) error {
	s.logger.Info("Email suppressed, no SMTP host configured",
		"to", strings.Join(to, ","),
		"subject", subject)
	return nil
}
