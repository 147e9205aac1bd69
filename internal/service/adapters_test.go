package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestSendGridEmailService_Send(t *testing.T) {
	var sent *mail.SGMailV3
	svc := newSendGridEmailService("StationRent", "noreply@stationrent.vn", func(_ context.Context, msg *mail.SGMailV3) (int, string, error) {
		sent = msg
		return 202, "", nil
	})

	require.NoError(t, svc.Send(context.Background(), "Nguyen Van A", "a@example.com", "Booking confirmed", "See you soon."))
	require.NotNil(t, sent)
	assert.Equal(t, "Booking confirmed", sent.Subject)
	assert.Equal(t, "noreply@stationrent.vn", sent.From.Address)
	require.Len(t, sent.Personalizations, 1)
	assert.Equal(t, "a@example.com", sent.Personalizations[0].To[0].Address)
}

func TestSendGridEmailService_Errors(t *testing.T) {
	rejected := newSendGridEmailService("StationRent", "noreply@stationrent.vn", func(context.Context, *mail.SGMailV3) (int, string, error) {
		return 401, "unauthorized", nil
	})
	assert.ErrorContains(t, rejected.Send(context.Background(), "A", "a@example.com", "s", "b"), "401")

	failing := newSendGridEmailService("StationRent", "noreply@stationrent.vn", func(context.Context, *mail.SGMailV3) (int, string, error) {
		return 0, "", errors.New("timeout")
	})
	assert.ErrorContains(t, failing.Send(context.Background(), "A", "a@example.com", "s", "b"), "timeout")
}

func TestTwilioSMSService_Send(t *testing.T) {
	var got *openapi.CreateMessageParams
	svc := &twilioSMSService{
		from: "+15005550006",
		create: func(p *openapi.CreateMessageParams) (string, error) {
			got = p
			return "SM123", nil
		},
	}

	require.NoError(t, svc.Send(context.Background(), "+84900000001", "Booking expired"))
	require.NotNil(t, got)
	assert.Equal(t, "+84900000001", *got.To)
	assert.Equal(t, "+15005550006", *got.From)
	assert.Equal(t, "Booking expired", *got.Body)

	svc.create = func(*openapi.CreateMessageParams) (string, error) { return "", errors.New("invalid number") }
	assert.ErrorContains(t, svc.Send(context.Background(), "+1", "x"), "invalid number")
}
