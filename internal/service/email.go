package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"stationrent-backend/internal/logger"
)

type sendFunc func(ctx context.Context, msg *mail.SGMailV3) (status int, body string, err error)

type sendgridEmailService struct {
	from *mail.Email
	send sendFunc
}

func NewSendGridEmailService(apiKey, fromName, fromEmail string) EmailService {
	client := sendgrid.NewSendClient(apiKey)
	return newSendGridEmailService(fromName, fromEmail, func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
		resp, err := client.SendWithContext(ctx, msg)
		if err != nil {
			return 0, "", err
		}
		return resp.StatusCode, resp.Body, nil
	})
}

func newSendGridEmailService(fromName, fromEmail string, send sendFunc) *sendgridEmailService {
	return &sendgridEmailService{from: mail.NewEmail(fromName, fromEmail), send: send}
}

func (s *sendgridEmailService) Send(ctx context.Context, toName, toEmail, subject, body string) error {
	to := mail.NewEmail(toName, toEmail)
	html := "<p>" + body + "</p><p>StationRent</p>"
	message := mail.NewSingleEmail(s.from, subject, to, body+"\n\nStationRent", html)

	logger.ExternalServiceCall("sendgrid", "mail.send", "to", toEmail, "subject", subject)
	status, respBody, err := s.send(ctx, message)
	if err == nil && status >= 300 {
		err = fmt.Errorf("sendgrid responded %d: %s", status, respBody)
	}
	logger.ExternalServiceResult("sendgrid", "mail.send", err, "to", toEmail)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
