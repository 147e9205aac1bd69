package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
}

type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "BOOKING_CREATED"
	BookingEventConfirmed BookingEventType = "BOOKING_CONFIRMED"
	BookingEventActivated BookingEventType = "BOOKING_ACTIVATED"
	BookingEventCompleted BookingEventType = "BOOKING_COMPLETED"
	BookingEventCancelled BookingEventType = "BOOKING_CANCELLED"
	BookingEventExpired   BookingEventType = "BOOKING_EXPIRED"
	BookingEventOverdue   BookingEventType = "BOOKING_OVERDUE"
	BookingEventRefund    BookingEventType = "REFUND_ISSUED"
)

// BookingEvent is emitted on every state transition and fanned out to the
// notification channels.
type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	BookingID  uuid.UUID        `json:"booking_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Status     BookingStatus    `json:"status"`
	Amount     int64            `json:"amount,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
