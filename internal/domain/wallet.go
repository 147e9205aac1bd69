package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "DEPOSIT"
	PaymentTypeRefund  PaymentType = "REFUND"
)

type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "GATEWAY"
	PaymentMethodWallet  PaymentMethod = "WALLET"
	PaymentMethodCash    PaymentMethod = "CASH"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment is an append-only ledger entry tied to a booking. Only the status
// of a PENDING refund is ever updated.
type Payment struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	BookingID    uuid.UUID     `json:"booking_id" db:"booking_id"`
	Type         PaymentType   `json:"type" db:"type"`
	Method       PaymentMethod `json:"method" db:"method"`
	Status       PaymentStatus `json:"status" db:"status"`
	Amount       int64         `json:"amount" db:"amount"`
	GatewayTxnID string        `json:"gateway_txn_id" db:"gateway_txn_id"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// PaidDeposits sums successful deposit payments.
func PaidDeposits(payments []Payment) int64 {
	var total int64
	for _, p := range payments {
		if p.Type == PaymentTypeDeposit && p.Status == PaymentStatusSuccess {
			total += p.Amount
		}
	}
	return total
}

type WalletTransactionType string

const (
	WalletTransactionRefund     WalletTransactionType = "REFUND"
	WalletTransactionAdjustment WalletTransactionType = "ADJUSTMENT"
)

type WalletTransaction struct {
	ID               uuid.UUID             `json:"id" db:"id"`
	UserID           uuid.UUID             `json:"user_id" db:"user_id"`
	Amount           int64                 `json:"amount" db:"amount"` // positive for credit
	Type             WalletTransactionType `json:"type" db:"type"`
	RelatedBookingID *uuid.UUID            `json:"related_booking_id,omitempty" db:"related_booking_id"`
	Description      string                `json:"description" db:"description"`
	CreatedAt        time.Time             `json:"created_at" db:"created_at"`
}
