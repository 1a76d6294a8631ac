package notify

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"
)

// EmailConfig holds SMTP configuration for sending emails.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmail    string
	Enabled    bool
}

// Dialer sends composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers messages via SMTP.
type EmailSender struct {
	cfg    EmailConfig
	dialer Dialer
	logger *zap.Logger
}

// NewEmailSender creates a sender with the given SMTP configuration.
func NewEmailSender(cfg EmailConfig, logger *zap.Logger) *EmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.Timeout = 10 * time.Second
	return &EmailSender{cfg: cfg, dialer: d, logger: logger}
}

// WithDialer replaces the SMTP dialer.
func (s *EmailSender) WithDialer(d Dialer) *EmailSender {
	s.dialer = d
	return s
}

// Compose builds the MIME message for msg.
func (s *EmailSender) Compose(msg *RenderedMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}
	return m
}

// Send delivers an email with HTML body and plain text fallback. It is a
// no-op when email is disabled.
func (s *EmailSender) Send(msg *RenderedMessage) error {
	if !s.cfg.Enabled {
		return nil
	}

	if err := s.dialer.DialAndSend(s.Compose(msg)); err != nil {
		s.logger.Error("email send failed",
			zap.String("to", s.cfg.ToEmail),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return fmt.Errorf("send email to %s: %w", s.cfg.ToEmail, err)
	}

	s.logger.Info("email sent", zap.String("subject", msg.Subject))
	return nil
}
