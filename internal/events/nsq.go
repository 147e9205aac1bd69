// Package events publishes booking lifecycle events to NSQ so other systems
// (billing, analytics) can follow state transitions.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
)

const TopicBookingEvents = "booking.events"

// publisher is the slice of *nsq.Producer we use.
type publisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

type Producer struct {
	producer publisher
	topic    string
}

// NewProducer connects to nsqd at address and pings it.
func NewProducer(address, topic string) (*Producer, error) {
	config := nsq.NewConfig()
	producer, err := nsq.NewProducer(address, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}
	producer.SetLoggerLevel(nsq.LogLevelWarning)

	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("failed to ping NSQ daemon: %w", err)
	}
	return newProducer(producer, topic), nil
}

func newProducer(p publisher, topic string) *Producer {
	if topic == "" {
		topic = TopicBookingEvents
	}
	return &Producer{producer: p, topic: topic}
}

func (p *Producer) Publish(event domain.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	logger.ExternalServiceCall("nsq", "publish", "topic", p.topic, "type", event.Type, "bookingID", event.BookingID)
	err = p.producer.Publish(p.topic, body)
	logger.ExternalServiceResult("nsq", "publish", err, "topic", p.topic)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *Producer) Stop() {
	p.producer.Stop()
}

// Decode parses a message body written by Publish.
func Decode(body []byte) (domain.BookingEvent, error) {
	var event domain.BookingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return event, nil
}
