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

type bookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, user_id, station_id, vehicle_type_id, start_date, end_date, deposit_amount, daily_rate, total_payment, status, payment_expiry_time, created_at, updated_at`

const openContractConstraint = "uq_contracts_open_vehicle"

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	logger.EnterMethod("bookingRepository.Create", "userID", b.UserID, "stationID", b.StationID)

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	logger.DatabaseCall("INSERT", "bookings", "bookingID", b.ID)
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.UserID, b.StationID, b.VehicleTypeID, b.StartDate, b.EndDate,
		b.DepositAmount, b.DailyRate, b.TotalPayment, b.Status, b.PaymentExpiryTime, b.CreatedAt, b.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "bookingID", b.ID)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Create", err)
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	logger.ExitMethod("bookingRepository.Create", "bookingID", b.ID)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		return nil, notFound(err, "booking")
	}
	return &b, nil
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	var bookings []domain.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	var bookings []domain.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'PENDING' AND payment_expiry_time < $1 ORDER BY payment_expiry_time`
	logger.DatabaseCall("SELECT", "bookings expired pending")
	err := r.db.SelectContext(ctx, &bookings, query, now)
	logger.DatabaseResult("SELECT", int64(len(bookings)), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListActiveEndedBefore(ctx context.Context, date time.Time) ([]domain.Booking, error) {
	var bookings []domain.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'ACTIVE' AND end_date < $1 ORDER BY end_date`
	if err := r.db.SelectContext(ctx, &bookings, query, date); err != nil {
		return nil, fmt.Errorf("failed to list overdue bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ConfirmDeposit(ctx context.Context, bookingID uuid.UUID, p *domain.Payment, now time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CONFIRMED', updated_at = $1 WHERE id = $2 AND status = 'PENDING' AND payment_expiry_time >= $1`,
		now, bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if err := insertPayment(ctx, tx, p); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func (r *bookingRepository) CancelIfExpired(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED', updated_at = $1 WHERE id = $2 AND status = 'PENDING' AND payment_expiry_time < $1`,
		now, bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *bookingRepository) Activate(ctx context.Context, c *domain.Contract, now time.Time) error {
	logger.EnterMethod("bookingRepository.Activate", "bookingID", c.BookingID, "vehicleID", c.VehicleID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE vehicles SET status = 'RENTED', updated_at = $1 WHERE id = $2 AND status = 'AVAILABLE'`,
		now, c.VehicleID)
	if err != nil {
		return fmt.Errorf("failed to reserve vehicle: %w", err)
	}
	if n, err := rowsAffected(res); err != nil {
		return err
	} else if n == 0 {
		logger.ExitMethodWithError("bookingRepository.Activate", domain.ErrConflict, "reason", domain.ReasonVehicleUnavailable)
		return domain.NewConflictError(domain.ReasonVehicleUnavailable)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO contracts (id, booking_id, vehicle_id, document_id, notes, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.BookingID, c.VehicleID, c.DocumentID, c.Notes, c.CreatedAt)
	if isUniqueViolation(err, openContractConstraint) {
		return domain.NewConflictError(domain.ReasonContractExists)
	}
	if isUniqueViolation(err, "") {
		return domain.NewStateError("booking already has a contract")
	}
	if isForeignKeyViolation(err) {
		return domain.NewConflictError(domain.ReasonMissingDocument)
	}
	if err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'ACTIVE', updated_at = $1 WHERE id = $2 AND status = 'CONFIRMED'`,
		now, c.BookingID)
	if err != nil {
		return fmt.Errorf("failed to activate booking: %w", err)
	}
	if n, err := rowsAffected(res); err != nil {
		return err
	} else if n == 0 {
		return domain.NewStateError("booking is no longer CONFIRMED")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.ExitMethod("bookingRepository.Activate", "contractID", c.ID)
	return nil
}

func (r *bookingRepository) Complete(ctx context.Context, rt *domain.ReturnTransaction, vehicleStatus domain.VehicleStatus, now time.Time) error {
	logger.EnterMethod("bookingRepository.Complete", "bookingID", rt.BookingID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'COMPLETED', updated_at = $1 WHERE id = $2 AND status = 'ACTIVE'`,
		now, rt.BookingID)
	if err != nil {
		return fmt.Errorf("failed to complete booking: %w", err)
	}
	if n, err := rowsAffected(res); err != nil {
		return err
	} else if n == 0 {
		return domain.NewStateError("booking is no longer ACTIVE")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO return_transactions (id, booking_id, return_date, late_fee, damage_fee, additional_fees, refund_amount, refund_status, condition_notes, is_late, overdue_days, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rt.ID, rt.BookingID, rt.ReturnDate, rt.LateFee, rt.DamageFee, rt.AdditionalFees, rt.RefundAmount,
		rt.RefundStatus, rt.ConditionNotes, rt.IsLate, rt.OverdueDays, rt.CreatedAt, rt.UpdatedAt)
	if isUniqueViolation(err, "") {
		return domain.NewStateError("booking already has a return")
	}
	if err != nil {
		return fmt.Errorf("failed to insert return transaction: %w", err)
	}

	if err := releaseVehicle(ctx, tx, rt.BookingID, vehicleStatus, rt.ConditionNotes, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.ExitMethod("bookingRepository.Complete", "returnID", rt.ID)
	return nil
}

func (r *bookingRepository) AdminCancel(ctx context.Context, bookingID uuid.UUID, now time.Time) (*domain.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var b domain.Booking
	if err := tx.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID); err != nil {
		return nil, notFound(err, "booking")
	}
	if b.Status != domain.BookingStatusConfirmed && b.Status != domain.BookingStatusActive {
		return nil, domain.NewStateError("cannot cancel a %s booking", b.Status)
	}

	if b.Status == domain.BookingStatusActive {
		if err := releaseVehicle(ctx, tx, bookingID, domain.VehicleStatusAvailable, "", now); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = 'CANCELLED', updated_at = $1 WHERE id = $2`, now, bookingID); err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	b.Status = domain.BookingStatusCancelled
	b.UpdatedAt = now
	return &b, nil
}

// releaseVehicle ends the booking's open contract and moves its vehicle out
// of RENTED.
func releaseVehicle(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID, status domain.VehicleStatus, notes string, now time.Time) error {
	var vehicleID uuid.UUID
	err := tx.GetContext(ctx, &vehicleID,
		`UPDATE contracts SET ended_at = $1 WHERE booking_id = $2 AND ended_at IS NULL RETURNING vehicle_id`,
		now, bookingID)
	if err != nil {
		return notFound(err, "open contract")
	}

	query := `UPDATE vehicles SET status = $1, updated_at = $2 WHERE id = $3 AND status = 'RENTED'`
	args := []any{status, now, vehicleID}
	if notes != "" {
		query = `UPDATE vehicles SET status = $1, updated_at = $2, condition_notes = $4 WHERE id = $3 AND status = 'RENTED'`
		args = append(args, notes)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to release vehicle: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetContract(ctx context.Context, bookingID uuid.UUID) (*domain.Contract, error) {
	var c domain.Contract
	query := `SELECT id, booking_id, vehicle_id, document_id, notes, created_at, ended_at FROM contracts WHERE booking_id = $1`
	if err := r.db.GetContext(ctx, &c, query, bookingID); err != nil {
		return nil, notFound(err, "contract")
	}
	return &c, nil
}

const returnColumns = `id, booking_id, return_date, late_fee, damage_fee, additional_fees, refund_amount, refund_status, condition_notes, is_late, overdue_days, created_at, updated_at`

func (r *bookingRepository) GetReturn(ctx context.Context, bookingID uuid.UUID) (*domain.ReturnTransaction, error) {
	var rt domain.ReturnTransaction
	query := `SELECT ` + returnColumns + ` FROM return_transactions WHERE booking_id = $1`
	if err := r.db.GetContext(ctx, &rt, query, bookingID); err != nil {
		return nil, notFound(err, "return transaction")
	}
	return &rt, nil
}

func (r *bookingRepository) SetRefundStatus(ctx context.Context, bookingID uuid.UUID, status domain.RefundStatus, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE return_transactions SET refund_status = $1, updated_at = $2 WHERE booking_id = $3`,
		status, now, bookingID)
	if err != nil {
		return fmt.Errorf("failed to update refund status: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError("return transaction not found")
	}
	return nil
}

func (r *bookingRepository) ListUnsettledRefunds(ctx context.Context, stalledBefore time.Time) ([]domain.ReturnTransaction, error) {
	var returns []domain.ReturnTransaction
	query := `SELECT ` + returnColumns + ` FROM return_transactions
	          WHERE refund_status = 'FAILED' OR (refund_status = 'PENDING' AND updated_at < $1)
	          ORDER BY updated_at`
	logger.DatabaseCall("SELECT", "return_transactions unsettled refunds")
	err := r.db.SelectContext(ctx, &returns, query, stalledBefore)
	logger.DatabaseResult("SELECT", int64(len(returns)), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled refunds: %w", err)
	}
	return returns, nil
}
