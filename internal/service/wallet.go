package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
)

// walletService backs both the customer-facing WalletService and the Wallet
// collaborator used by settlement.
type walletService struct {
	walletRepo repository.WalletRepository
	clock      clock.Clock
}

func NewWalletService(walletRepo repository.WalletRepository, clk clock.Clock) WalletService {
	return &walletService{walletRepo: walletRepo, clock: clk}
}

func NewWallet(walletRepo repository.WalletRepository, clk clock.Clock) Wallet {
	return &walletService{walletRepo: walletRepo, clock: clk}
}

func (s *walletService) Credit(ctx context.Context, userID uuid.UUID, amount int64, bookingID uuid.UUID, description string) error {
	logger.EnterMethod("walletService.Credit", "userID", userID, "amount", amount, "bookingID", bookingID)
	if amount <= 0 {
		err := domain.NewValidationError("credit amount must be positive")
		logger.ExitMethodWithError("walletService.Credit", err)
		return err
	}

	related := bookingID
	tx := &domain.WalletTransaction{
		ID:               uuid.New(),
		UserID:           userID,
		Amount:           amount,
		Type:             domain.WalletTransactionRefund,
		RelatedBookingID: &related,
		Description:      description,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.walletRepo.CreateTransaction(ctx, tx); err != nil {
		logger.ExitMethodWithError("walletService.Credit", err, "userID", userID)
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	logger.ExitMethod("walletService.Credit", "transactionID", tx.ID)
	return nil
}

func (s *walletService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.walletRepo.GetBalance(ctx, userID)
}

func (s *walletService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.walletRepo.GetBalance(ctx, userID)
}

func (s *walletService) GetTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.walletRepo.ListTransactions(ctx, userID, limit, offset)
}

// pageBounds turns 1-based page numbers into limit/offset.
func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}
