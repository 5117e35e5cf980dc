package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

// SendGridSender delivers through the SendGrid v3 mail API.
type SendGridSender struct {
	client   *sendgrid.Client
	fromMail string
	fromName string
}

// NewSendGridSender builds a SendGrid transport.
func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromMail: fromEmail,
		fromName: fromName,
	}
}

// Deliver implements Sender. Any status of 400 or above counts as failure.
func (s *SendGridSender) Deliver(ctx context.Context, recipient, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromMail)
	to := mail.NewEmail("", recipient)
	message := mail.NewV3MailInit(from, subject, to, mail.NewContent("text/plain", body))

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrSendFailure, err, "sendgrid request")
	}
	if response.StatusCode >= 400 {
		return appErrors.WrapAs(appErrors.ErrSendFailure,
			fmt.Errorf("status %d: %s", response.StatusCode, response.Body),
			"sendgrid rejected message")
	}
	return nil
}
