package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

const smtpDialTimeout = 10 * time.Second

// SMTPSender submits messages to an SMTP relay, upgrading to TLS when the
// server offers STARTTLS.
type SMTPSender struct {
	host     string
	addr     string
	from     mail.Address
	username string
	password string
	now      func() time.Time
}

// NewSMTPSender builds an SMTP transport from mail configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(port)),
		from:     mail.Address{Name: cfg.FromName, Address: cfg.From},
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		now:      time.Now,
	}
}

// Deliver implements Sender.
func (s *SMTPSender) Deliver(ctx context.Context, recipient, subject, body string) error {
	msg, err := composeMessage(s.from, recipient, subject, body, s.now())
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "compose message")
	}

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "dial smtp")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp handshake")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp starttls")
		}
	}
	if s.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
				return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp auth")
			}
		}
	}

	if err := client.Mail(s.from.Address); err != nil {
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp mail from")
	}
	if err := client.Rcpt(recipient); err != nil {
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp rcpt to")
	}
	w, err := client.Data()
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp data")
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp write")
	}
	if err := w.Close(); err != nil {
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "smtp data close")
	}
	return client.Quit()
}

// composeMessage renders an RFC 5322 plain-text message.
func composeMessage(from mail.Address, recipient, subject, body string, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{&from})
	h.SetAddressList("To", []*mail.Address{{Address: recipient}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
