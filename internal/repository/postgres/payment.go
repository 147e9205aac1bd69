package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, booking_id, type, method, status, amount, gateway_txn_id, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return insertPayment(ctx, r.db, p)
}

func insertPayment(ctx context.Context, ex sqlx.ExecerContext, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("INSERT", "payments", "bookingID", p.BookingID, "type", p.Type)
	_, err := ex.ExecContext(ctx, query, p.ID, p.BookingID, p.Type, p.Method, p.Status, p.Amount, p.GatewayTxnID, p.CreatedAt, p.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "paymentID", p.ID)
	if isUniqueViolation(err, "") {
		return domain.NewConflictError("refund already recorded")
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Payment, error) {
	var payments []domain.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &payments, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3 AND status = 'PENDING'`,
		status, now, id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewStateError("payment is not pending")
	}
	return nil
}

func (r *paymentRepository) ListByTypeAndStatus(ctx context.Context, t domain.PaymentType, status domain.PaymentStatus) ([]domain.Payment, error) {
	var payments []domain.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE type = $1 AND status = $2 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &payments, query, t, status); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
