// Package email delivers notification emails over SMTP and renders their
// HTML bodies from embedded templates or storage overrides.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/straye-as/enquiry-api/internal/config"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is one outgoing email
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a single message. Implementations make one attempt.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender returns an SMTP sender when email is enabled, else a sender that
// only logs what would have been sent.
func NewSender(cfg *config.EmailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled || cfg.Host == "" {
		logger.Info("email delivery disabled, messages will be logged only")
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail, cfg.FromName)
}

// SMTPSender sends messages through an SMTP relay using go-mail
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if m.ToName != "" {
		if err := msg.AddToFormat(m.ToName, m.To); err != nil {
			return fmt.Errorf("smtp to: %w", err)
		}
	} else if err := msg.To(m.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, m.HTMLBody)
	if m.TextBody != "" {
		msg.AddAlternativeString(gomail.TypeTextPlain, m.TextBody)
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender records messages in the log instead of sending them
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, m *Message) error {
	s.logger.Info("email not sent (delivery disabled)",
		zap.String("to", m.To),
		zap.String("subject", m.Subject))
	return nil
}
