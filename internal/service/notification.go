package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Notification, int, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.noteRepo.List(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// Dispatcher is the Notifier used in production. Each event is delivered on
// its own goroutine to the in-app inbox and to every configured channel.
// Email, SMS and the event publisher are optional.
type Dispatcher struct {
	noteRepo  repository.NotificationRepository
	userRepo  repository.UserRepository
	email     EmailService
	sms       SMSService
	publisher EventPublisher
	clock     clock.Clock
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(noteRepo repository.NotificationRepository, userRepo repository.UserRepository, email EmailService, sms SMSService, publisher EventPublisher, clk clock.Clock) *Dispatcher {
	return &Dispatcher{
		noteRepo:  noteRepo,
		userRepo:  userRepo,
		email:     email,
		sms:       sms,
		publisher: publisher,
		clock:     clk,
		timeout:   30 * time.Second,
	}
}

func (d *Dispatcher) Notify(_ context.Context, event domain.BookingEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.clock.Now()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// Detached from the request, which may finish before delivery.
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.deliver(ctx, event)
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.BookingEvent) {
	title, message := renderEvent(event)
	log := logger.WithBooking(event.BookingID.String())

	note := &domain.Notification{
		ID:      uuid.New(),
		UserID:  event.UserID,
		Title:   title,
		Message: message,
		Attributes: map[string]string{
			"type":       string(event.Type),
			"booking_id": event.BookingID.String(),
		},
		CreatedAt: event.OccurredAt,
	}
	if err := d.noteRepo.Create(ctx, note); err != nil {
		log.Error("Failed to store notification", "type", event.Type, "error", err)
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(event); err != nil {
			log.Error("Failed to publish booking event", "type", event.Type, "error", err)
		}
	}

	if d.email == nil && d.sms == nil {
		return
	}
	user, err := d.userRepo.GetByID(ctx, event.UserID)
	if err != nil {
		log.Warn("Skipping outbound notification, user lookup failed", "userID", event.UserID, "error", err)
		return
	}

	if d.email != nil && user.Email != "" {
		if err := d.email.Send(ctx, user.Name, user.Email, title, message); err != nil {
			log.Error("Failed to send email", "type", event.Type, "error", err)
		}
	}
	if d.sms != nil && user.Phone != "" && smsWorthy(event.Type) {
		if err := d.sms.Send(ctx, user.Phone, message); err != nil {
			log.Error("Failed to send SMS", "type", event.Type, "error", err)
		}
	}
}

// smsWorthy limits text messages to events the customer has to act on.
func smsWorthy(t domain.BookingEventType) bool {
	switch t {
	case domain.BookingEventConfirmed, domain.BookingEventExpired, domain.BookingEventOverdue, domain.BookingEventCancelled:
		return true
	}
	return false
}

func renderEvent(e domain.BookingEvent) (string, string) {
	ref := shortRef(e.BookingID)
	switch e.Type {
	case domain.BookingEventCreated:
		return "Booking created", fmt.Sprintf("Booking %s is reserved. Please pay %d VND to confirm it.", ref, e.Amount)
	case domain.BookingEventConfirmed:
		return "Booking confirmed", fmt.Sprintf("We received your deposit for booking %s.", ref)
	case domain.BookingEventActivated:
		return "Vehicle handed over", fmt.Sprintf("Your rental %s has started. Enjoy the ride.", ref)
	case domain.BookingEventCompleted:
		return "Rental completed", fmt.Sprintf("Booking %s is closed. Additional fees: %d VND.", ref, e.Amount)
	case domain.BookingEventCancelled:
		msg := fmt.Sprintf("Booking %s was cancelled.", ref)
		if e.Reason != "" {
			msg += " Reason: " + e.Reason
		}
		return "Booking cancelled", msg
	case domain.BookingEventExpired:
		return "Booking expired", fmt.Sprintf("The payment window for booking %s closed before we received your deposit.", ref)
	case domain.BookingEventOverdue:
		return "Vehicle overdue", fmt.Sprintf("Booking %s has passed its end date. Late fees apply until the vehicle is returned.", ref)
	case domain.BookingEventRefund:
		return "Refund issued", fmt.Sprintf("%d VND from booking %s was credited to your wallet.", e.Amount, ref)
	}
	return "Booking update", fmt.Sprintf("Booking %s is now %s.", ref, e.Status)
}

func shortRef(id uuid.UUID) string {
	return id.String()[:8]
}
