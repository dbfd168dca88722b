package notification

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"shop-api/internal/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// NewMailer picks the transport named in cfg
func NewMailer(cfg config.NotifyConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Transport {
	case "", "log":
		return NewLogMailer(logger), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp transport requires SMTP_HOST")
		}
		return NewSMTPMailer(cfg)
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
	}
}

type logMailer struct {
	logger *zap.Logger
}

// NewLogMailer writes messages to the log instead of delivering them
func NewLogMailer(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("Email",
		zap.String("template", msg.Template),
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// smtpTimeout bounds a whole delivery, dial included
const smtpTimeout = 10 * time.Second

type smtpMailer struct {
	addr string
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPMailer delivers through an SMTP relay, using PLAIN auth when a
// username is set and STARTTLS when the relay offers it
func NewSMTPMailer(cfg config.NotifyConfig) (Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(smtpTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &smtpMailer{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	out, err := buildMessage(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, smtpTimeout)
	defer cancel()

	if err := m.send(ctx, out); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.addr, err)
	}
	return nil
}

// buildMessage renders msg as a plain text mail; headers are RFC 2047
// encoded by go-mail
func buildMessage(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}
