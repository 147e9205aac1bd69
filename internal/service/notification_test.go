package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/repository/memory"
)

func TestDispatcher_FansOutToEveryChannel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := domain.User{ID: uuid.New(), Name: "Tran Thi B", Email: "b@example.com", Phone: "+84900000002"}
	require.NoError(t, store.UserRepository.Create(ctx, &user))

	email := new(MockEmailService)
	sms := new(MockSMSService)
	publisher := new(MockEventPublisher)
	email.On("Send", mock.Anything, "Tran Thi B", "b@example.com", "Booking confirmed", mock.AnythingOfType("string")).Return(nil)
	sms.On("Send", mock.Anything, "+84900000002", mock.AnythingOfType("string")).Return(nil)
	publisher.On("Publish", mock.MatchedBy(func(e domain.BookingEvent) bool {
		return e.Type == domain.BookingEventConfirmed
	})).Return(errors.New("nsqd down"))

	d := NewDispatcher(store.NotificationRepository, store.UserRepository, email, sms, publisher, clock.NewManual(t0))
	bookingID := uuid.New()
	d.Notify(ctx, domain.BookingEvent{Type: domain.BookingEventConfirmed, BookingID: bookingID, UserID: user.ID, Status: domain.BookingStatusConfirmed})
	d.Wait()

	notes, total, err := NewNotificationService(store.NotificationRepository).GetNotifications(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, notes, 1)
	assert.Equal(t, "Booking confirmed", notes[0].Title)
	assert.Equal(t, bookingID.String(), notes[0].Attributes["booking_id"])
	assert.Equal(t, t0, notes[0].CreatedAt)

	email.AssertExpectations(t)
	sms.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDispatcher_OptionalChannels(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	userID := uuid.New()

	d := NewDispatcher(store.NotificationRepository, store.UserRepository, nil, nil, nil, clock.NewManual(t0))
	d.Notify(ctx, domain.BookingEvent{Type: domain.BookingEventActivated, BookingID: uuid.New(), UserID: userID})
	d.Wait()

	notes, _, err := store.NotificationRepository.List(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Vehicle handed over", notes[0].Title)
}

func TestDispatcher_SMSOnlyForActionableEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := domain.User{ID: uuid.New(), Name: "Le C", Phone: "+84900000003"}
	require.NoError(t, store.UserRepository.Create(ctx, &user))
	sms := new(MockSMSService)

	d := NewDispatcher(store.NotificationRepository, store.UserRepository, nil, sms, nil, clock.NewManual(t0))
	d.Notify(ctx, domain.BookingEvent{Type: domain.BookingEventCreated, BookingID: uuid.New(), UserID: user.ID, Amount: 1_200_000})
	d.Wait()

	sms.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewNotificationService(store.NotificationRepository)
	owner := uuid.New()
	note := &domain.Notification{ID: uuid.New(), UserID: owner, Title: "Refund issued", CreatedAt: t0}
	require.NoError(t, store.NotificationRepository.Create(ctx, note))

	assert.ErrorIs(t, svc.MarkAsRead(ctx, uuid.New(), note.ID), domain.ErrNotFound)
	require.NoError(t, svc.MarkAsRead(ctx, owner, note.ID))

	notes, _, err := svc.GetNotifications(ctx, owner, 1, 20)
	require.NoError(t, err)
	assert.True(t, notes[0].IsRead)
}

func TestRenderEvent(t *testing.T) {
	id := uuid.MustParse("3f2a9c1e-0000-0000-0000-000000000000")
	title, msg := renderEvent(domain.BookingEvent{Type: domain.BookingEventCancelled, BookingID: id, Reason: "vehicle recalled"})
	assert.Equal(t, "Booking cancelled", title)
	assert.Equal(t, "Booking 3f2a9c1e was cancelled. Reason: vehicle recalled", msg)

	title, msg = renderEvent(domain.BookingEvent{Type: domain.BookingEventRefund, BookingID: id, Amount: 700_000})
	assert.Equal(t, "Refund issued", title)
	assert.Contains(t, msg, "700000 VND")
}
