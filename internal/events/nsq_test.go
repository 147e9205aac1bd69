package events

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stationrent-backend/internal/domain"
)

type fakePublisher struct {
	topic   string
	body    []byte
	err     error
	stopped bool
}

func (f *fakePublisher) Publish(topic string, body []byte) error {
	f.topic, f.body = topic, body
	return f.err
}

func (f *fakePublisher) Stop() { f.stopped = true }

func TestProducer_PublishRoundTrip(t *testing.T) {
	fake := &fakePublisher{}
	p := newProducer(fake, "")

	event := domain.BookingEvent{
		Type:       domain.BookingEventConfirmed,
		BookingID:  uuid.New(),
		UserID:     uuid.New(),
		Status:     domain.BookingStatusConfirmed,
		Amount:     1_200_000,
		OccurredAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(event))
	assert.Equal(t, TopicBookingEvents, fake.topic)

	got, err := Decode(fake.body)
	require.NoError(t, err)
	assert.Equal(t, event, got)

	p.Stop()
	assert.True(t, fake.stopped)
}

func TestProducer_PublishError(t *testing.T) {
	fake := &fakePublisher{err: errors.New("connection refused")}
	p := newProducer(fake, "custom.topic")

	err := p.Publish(domain.BookingEvent{Type: domain.BookingEventExpired})
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, "custom.topic", fake.topic)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("{"))
	assert.Error(t, err)
}
