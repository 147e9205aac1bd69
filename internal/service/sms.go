package service

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"stationrent-backend/internal/logger"
)

type twilioSMSService struct {
	from   string
	create func(params *openapi.CreateMessageParams) (string, error)
}

func NewTwilioSMSService(accountSID, authToken, from string) SMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &twilioSMSService{
		from: from,
		create: func(params *openapi.CreateMessageParams) (string, error) {
			resp, err := client.Api.CreateMessage(params)
			if err != nil {
				return "", err
			}
			if resp.Sid == nil {
				return "", nil
			}
			return *resp.Sid, nil
		},
	}
}

func (s *twilioSMSService) Send(_ context.Context, toPhone, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(toPhone)
	params.SetFrom(s.from)
	params.SetBody(body)

	logger.ExternalServiceCall("twilio", "messages.create", "to", toPhone)
	sid, err := s.create(params)
	logger.ExternalServiceResult("twilio", "messages.create", err, "sid", sid)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
