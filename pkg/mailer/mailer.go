package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/pkg/config"
)

// Message is one outgoing email.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// SMTPMailer delivers mail through the configured SMTP relay.
type SMTPMailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// New constructs an SMTPMailer.
func New(cfg config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send dials the relay and delivers msg. Each call uses its own connection.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	message, err := m.build(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.options()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}

	m.logger.Debug("mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	message := mail.NewMsg()
	if err := message.From(m.cfg.Sender()); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.Sender(), err)
	}
	if err := message.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		message.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}
	return message, nil
}

func (m *SMTPMailer) options() []mail.Option {
	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	switch {
	case m.cfg.UseSSL:
		opts = append(opts, mail.WithSSL())
	case m.cfg.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}
