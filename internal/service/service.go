package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/domain"
)

type BookingService interface {
	Create(ctx context.Context, userID, stationID, typeID uuid.UUID, startDate, endDate time.Time) (*domain.Booking, error)
	StartPayment(ctx context.Context, userID, bookingID uuid.UUID, returnURL string) (string, error)
	// HandlePaymentCallback returns a nil booking when the callback carries
	// no payment outcome.
	HandlePaymentCallback(ctx context.Context, payload []byte, signature string) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID uuid.UUID, gatewayTxnID string) (*domain.Booking, error)
	Fulfill(ctx context.Context, bookingID, vehicleID, documentID uuid.UUID, notes string) (*domain.Contract, error)
	Complete(ctx context.Context, bookingID uuid.UUID, details domain.ReturnDetails) (*domain.ReturnTransaction, error)
	CancelExpired(ctx context.Context) (int, error)
	AdminCancel(ctx context.Context, bookingID uuid.UUID, reason string) (*domain.Booking, error)

	GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	ListMyBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	GetBookingDetails(ctx context.Context, bookingID uuid.UUID) (*domain.BookingDetails, error)
	// ListOverdue returns ACTIVE bookings whose end date has passed.
	ListOverdue(ctx context.Context) ([]domain.Booking, error)
}

type AvailabilityService interface {
	Query(ctx context.Context, stationID, typeID uuid.UUID, startDate, endDate time.Time) (*domain.Availability, error)
	CountAvailable(ctx context.Context, stationID, typeID uuid.UUID, startDate, endDate time.Time) (int, error)
	TotalAtStation(ctx context.Context, stationID, typeID uuid.UUID) (int, error)
}

type SettlementService interface {
	Calculate(booking *domain.Booking, returnDate time.Time, damageFee int64) Settlement
	// ApplyRefund credits the refund to the customer's wallet. A refund that
	// was already recorded is left alone.
	ApplyRefund(ctx context.Context, booking *domain.Booking, ret *domain.ReturnTransaction) error
}

type CatalogService interface {
	ListStations(ctx context.Context) ([]domain.Station, error)
	GetStation(ctx context.Context, id uuid.UUID) (*domain.Station, error)
	ListVehicleTypes(ctx context.Context) ([]domain.VehicleType, error)
	CreateVehicleType(ctx context.Context, name string, deposit, dailyRate int64) (*domain.VehicleType, error)
	UpdateVehicleType(ctx context.Context, id uuid.UUID, name string, deposit, dailyRate int64) (*domain.VehicleType, error)
	DeleteVehicleType(ctx context.Context, id uuid.UUID) error
	SetVehicleStatus(ctx context.Context, vehicleID uuid.UUID, status domain.VehicleStatus, notes string) (*domain.Vehicle, error)
}

type WalletService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

// Collaborators of the booking engine.

type IdentityVerifier interface {
	// AcceptsDocument reports whether documentID is one of the user's own
	// documents and is verified and unexpired now.
	AcceptsDocument(ctx context.Context, userID, documentID uuid.UUID) (bool, error)
}

type Wallet interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int64, bookingID uuid.UUID, description string) error
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Notifier must not block the caller; delivery failures are logged.
type Notifier interface {
	Notify(ctx context.Context, event domain.BookingEvent)
}

type EmailService interface {
	Send(ctx context.Context, toName, toEmail, subject, body string) error
}

type SMSService interface {
	Send(ctx context.Context, toPhone, body string) error
}

type EventPublisher interface {
	Publish(event domain.BookingEvent) error
}
