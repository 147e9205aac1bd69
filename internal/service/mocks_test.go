package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"stationrent-backend/internal/domain"
)

// MockWallet
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Credit(ctx context.Context, userID uuid.UUID, amount int64, bookingID uuid.UUID, description string) error {
	args := m.Called(ctx, userID, amount, bookingID, description)
	return args.Error(0)
}

func (m *MockWallet) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) Send(ctx context.Context, toName, toEmail, subject, body string) error {
	args := m.Called(ctx, toName, toEmail, subject, body)
	return args.Error(0)
}

// MockSMSService
type MockSMSService struct {
	mock.Mock
}

func (m *MockSMSService) Send(ctx context.Context, toPhone, body string) error {
	args := m.Called(ctx, toPhone, body)
	return args.Error(0)
}

// MockEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event domain.BookingEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// recordingNotifier keeps events in memory so tests can assert on them.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.BookingEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e domain.BookingEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types(bookingID uuid.UUID) []domain.BookingEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.BookingEventType
	for _, e := range n.events {
		if e.BookingID == bookingID {
			out = append(out, e.Type)
		}
	}
	return out
}
