package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/repository"
)

type walletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) repository.WalletRepository {
	return &walletRepository{db: db}
}

const walletColumns = `id, user_id, amount, type, related_booking_id, description, created_at`

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (` + walletColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, tx.ID, tx.UserID, tx.Amount, tx.Type, tx.RelatedBookingID, tx.Description, tx.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return nil
}

// GetBalance sums the user's wallet ledger.
func (r *walletRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return 0, fmt.Errorf("failed to get wallet balance: %w", err)
	}
	return balance, nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM wallet_transactions WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	var txs []domain.WalletTransaction
	query := `SELECT ` + walletColumns + ` FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &txs, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	return txs, count, nil
}
