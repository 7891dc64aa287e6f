package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	appnotification "github.com/bizhub/backend/internal/application/notification"
	"github.com/bizhub/backend/internal/domain/setting"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// SMTPSender sends email through the tenant's SMTP server
type SMTPSender struct {
	settings SettingsReader
	timeout  time.Duration
	logger   *zap.Logger
	send     func(d *mail.Dialer, m *mail.Message) error
}

// NewSMTPSender creates a new SMTPSender
func NewSMTPSender(settings SettingsReader, timeout time.Duration, logger *zap.Logger) *SMTPSender {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SMTPSender{
		settings: settings,
		timeout:  timeout,
		logger:   logger,
		send: func(d *mail.Dialer, m *mail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

// SendEmail delivers msg as plain text
func (s *SMTPSender) SendEmail(ctx context.Context, tenantID uuid.UUID, msg appnotification.EmailMessage) error {
	cfg, err := readAll(ctx, s.settings, tenantID,
		setting.KeySMTPHost, setting.KeySMTPPort, setting.KeySMTPUsername,
		setting.KeySMTPPassword, setting.KeySMTPFrom,
	)
	if err != nil {
		return err
	}
	host := cfg[setting.KeySMTPHost]
	if host == "" {
		return fmt.Errorf("smtp: %w", ErrNotConfigured)
	}
	port := 587
	if p := cfg[setting.KeySMTPPort]; p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return fmt.Errorf("smtp: invalid port %q", p)
		}
	}
	from := cfg[setting.KeySMTPFrom]
	if from == "" {
		from = cfg[setting.KeySMTPUsername]
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := mail.NewDialer(host, port, cfg[setting.KeySMTPUsername], cfg[setting.KeySMTPPassword])
	d.Timeout = s.timeout
	d.StartTLSPolicy = mail.OpportunisticStartTLS

	if err := s.send(d, m); err != nil {
		return fmt.Errorf("smtp send to %s:%d: %w", host, port, err)
	}
	s.logger.Info("Email sent",
		zap.String("tenant_id", tenantID.String()),
		zap.String("subject", msg.Subject),
	)
	return nil
}

var _ appnotification.EmailSender = (*SMTPSender)(nil)
