package mailer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

// Sender delivers a plain-text notification to a single recipient. A nil
// error means the message was accepted by the transport; anything else
// means it was not delivered.
type Sender interface {
	Deliver(ctx context.Context, recipient, subject, body string) error
}

// NoopSender is used when no transport is configured. Every delivery fails
// with ErrTransportUnavailable so nothing gets marked as notified.
type NoopSender struct{}

// Deliver implements Sender.
func (NoopSender) Deliver(context.Context, string, string, string) error {
	return appErrors.ErrTransportUnavailable
}

// New picks a transport from configuration. An empty driver is inferred:
// an API key selects SendGrid, an SMTP host selects SMTP, otherwise none.
func New(cfg config.MailConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		switch {
		case cfg.SendGridAPIKey != "":
			driver = config.MailDriverSendGrid
		case cfg.SMTPHost != "":
			driver = config.MailDriverSMTP
		default:
			driver = config.MailDriverNone
		}
	}

	switch driver {
	case config.MailDriverSendGrid:
		if cfg.SendGridAPIKey == "" || cfg.From == "" {
			logger.Warn("sendgrid selected without api key or sender address, notifications disabled")
			return NoopSender{}
		}
		logger.Info("mail transport configured", zap.String("driver", driver))
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.From, cfg.FromName)
	case config.MailDriverSMTP:
		if cfg.SMTPHost == "" || cfg.From == "" {
			logger.Warn("smtp selected without host or sender address, notifications disabled")
			return NoopSender{}
		}
		logger.Info("mail transport configured", zap.String("driver", driver), zap.String("host", cfg.SMTPHost))
		return NewSMTPSender(cfg)
	default:
		logger.Warn("no mail transport configured, reminders will not be delivered")
		return NoopSender{}
	}
}
