package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/domain"
)

// Lookups that find nothing return an error wrapping domain.ErrNotFound.

type StationRepository interface {
	Create(ctx context.Context, station *domain.Station) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Station, error)
	List(ctx context.Context) ([]domain.Station, error)
}

type VehicleTypeRepository interface {
	Create(ctx context.Context, vt *domain.VehicleType) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleType, error)
	List(ctx context.Context) ([]domain.VehicleType, error)
	Update(ctx context.Context, vt *domain.VehicleType) error
	// Delete fails with a conflict while vehicles or bookings reference the type.
	Delete(ctx context.Context, id uuid.UUID) error
}

type VehicleRepository interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
	// ListOccupancy returns every vehicle of the type at the station together
	// with the booking behind its most recent contract.
	ListOccupancy(ctx context.Context, stationID, typeID uuid.UUID) ([]domain.VehicleOccupancy, error)
	CountAtStation(ctx context.Context, stationID, typeID uuid.UUID) (int, error)
	// SetServiceStatus moves a vehicle that is not RENTED to another
	// non-rented status.
	SetServiceStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus, notes string, now time.Time) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error)
	// ListActiveEndedBefore returns ACTIVE bookings whose end date is before
	// the given date.
	ListActiveEndedBefore(ctx context.Context, date time.Time) ([]domain.Booking, error)

	// ConfirmDeposit moves a PENDING booking whose window is still open to
	// CONFIRMED and records the deposit, atomically. It reports false when
	// the status guard did not match.
	ConfirmDeposit(ctx context.Context, bookingID uuid.UUID, deposit *domain.Payment, now time.Time) (bool, error)
	// CancelIfExpired cancels a PENDING booking whose window closed before
	// now. It reports false when the guard did not match.
	CancelIfExpired(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error)
	// Activate binds the vehicle: AVAILABLE to RENTED, contract insert and
	// CONFIRMED to ACTIVE in one unit. Guard failures are conflict or state
	// errors.
	Activate(ctx context.Context, contract *domain.Contract, now time.Time) error
	// Complete records the return, releases the vehicle to vehicleStatus,
	// ends the contract and moves ACTIVE to COMPLETED in one unit.
	Complete(ctx context.Context, ret *domain.ReturnTransaction, vehicleStatus domain.VehicleStatus, now time.Time) error
	// AdminCancel cancels a CONFIRMED or ACTIVE booking. An ACTIVE booking's
	// vehicle is released and its contract ended.
	AdminCancel(ctx context.Context, bookingID uuid.UUID, now time.Time) (*domain.Booking, error)

	GetContract(ctx context.Context, bookingID uuid.UUID) (*domain.Contract, error)
	GetReturn(ctx context.Context, bookingID uuid.UUID) (*domain.ReturnTransaction, error)
	SetRefundStatus(ctx context.Context, bookingID uuid.UUID, status domain.RefundStatus, now time.Time) error
	// ListUnsettledRefunds returns return transactions whose refund FAILED,
	// or is still PENDING and was last updated before stalledBefore.
	ListUnsettledRefunds(ctx context.Context, stalledBefore time.Time) ([]domain.ReturnTransaction, error)
}

type PaymentRepository interface {
	// Create appends a ledger entry. A second REFUND for the same booking
	// is a conflict.
	Create(ctx context.Context, p *domain.Payment) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, now time.Time) error
	ListByTypeAndStatus(ctx context.Context, t domain.PaymentType, status domain.PaymentStatus) ([]domain.Payment, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	AddDocument(ctx context.Context, doc *domain.IdentityDocument) error
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]domain.IdentityDocument, error)
}

type WalletRepository interface {
	CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
}
