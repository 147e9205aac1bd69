package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking is a reservation of a vehicle type at a station for a date range.
// StartDate and EndDate are calendar dates (00:00 in the business time zone).
// The booking is not bound to a concrete vehicle until a Contract exists.
type Booking struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	StationID     uuid.UUID `json:"station_id" db:"station_id"`
	VehicleTypeID uuid.UUID `json:"vehicle_type_id" db:"vehicle_type_id"`
	StartDate     time.Time `json:"start_date" db:"start_date"`
	EndDate       time.Time `json:"end_date" db:"end_date"`
	// Price snapshot fields, captured from the vehicle type at creation time.
	// Settlement uses these, not live catalog prices.
	DepositAmount     int64         `json:"deposit_amount" db:"deposit_amount"`
	DailyRate         int64         `json:"daily_rate" db:"daily_rate"`
	TotalPayment      int64         `json:"total_payment" db:"total_payment"`
	Status            BookingStatus `json:"status" db:"status"`
	PaymentExpiryTime time.Time     `json:"payment_expiry_time" db:"payment_expiry_time"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// PaymentWindowOpen reports whether a deposit may still be confirmed at now.
func (b *Booking) PaymentWindowOpen(now time.Time) bool {
	return !now.After(b.PaymentExpiryTime)
}

// Contract binds a booking to the physical vehicle handed over.
type Contract struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	BookingID  uuid.UUID  `json:"booking_id" db:"booking_id"`
	VehicleID  uuid.UUID  `json:"vehicle_id" db:"vehicle_id"`
	DocumentID uuid.UUID  `json:"document_id" db:"document_id"`
	Notes      string     `json:"notes" db:"notes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

type RefundStatus string

const (
	RefundStatusNone    RefundStatus = "NONE"
	RefundStatusPending RefundStatus = "PENDING"
	RefundStatusSuccess RefundStatus = "SUCCESS"
	RefundStatusFailed  RefundStatus = "FAILED"
)

// ReturnTransaction records the settlement made when the vehicle came back.
type ReturnTransaction struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	BookingID      uuid.UUID    `json:"booking_id" db:"booking_id"`
	ReturnDate     time.Time    `json:"return_date" db:"return_date"`
	LateFee        int64        `json:"late_fee" db:"late_fee"`
	DamageFee      int64        `json:"damage_fee" db:"damage_fee"`
	AdditionalFees int64        `json:"additional_fees" db:"additional_fees"`
	RefundAmount   int64        `json:"refund_amount" db:"refund_amount"`
	RefundStatus   RefundStatus `json:"refund_status" db:"refund_status"`
	ConditionNotes string       `json:"condition_notes" db:"condition_notes"`
	IsLate         bool         `json:"is_late" db:"is_late"`
	OverdueDays    int          `json:"overdue_days" db:"overdue_days"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// ReturnDetails is what staff record when taking a vehicle back.
type ReturnDetails struct {
	ReturnDate     *time.Time `json:"return_date,omitempty"`
	DamageFee      *int64     `json:"damage_fee,omitempty"`
	ConditionNotes string     `json:"condition_notes"`
	Damaged        bool       `json:"damaged"`
}

// IndicatesDamage reports whether the vehicle should leave the pool as DAMAGED.
func (d ReturnDetails) IndicatesDamage() bool {
	return d.Damaged || (d.DamageFee != nil && *d.DamageFee > 0)
}

// BookingDetails aggregates everything known about one booking.
type BookingDetails struct {
	Booking   *Booking           `json:"booking"`
	Contract  *Contract          `json:"contract,omitempty"`
	Return    *ReturnTransaction `json:"return,omitempty"`
	Payments  []Payment          `json:"payments"`
	FullyPaid bool               `json:"fully_paid"`
}
