package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
	"stationrent-backend/internal/utils"
)

const DefaultLateFeePercent = 150

// Settlement is the fee breakdown for one return.
type Settlement struct {
	LateFee        int64
	DamageFee      int64
	AdditionalFees int64
	RefundAmount   int64
	IsLate         bool
	OverdueDays    int
}

type settlementService struct {
	bookingRepo    repository.BookingRepository
	paymentRepo    repository.PaymentRepository
	wallet         Wallet
	clock          clock.Clock
	lateFeePercent int64
}

func NewSettlementService(bookingRepo repository.BookingRepository, paymentRepo repository.PaymentRepository, wallet Wallet, clk clock.Clock, lateFeePercent int64) SettlementService {
	if lateFeePercent <= 0 {
		lateFeePercent = DefaultLateFeePercent
	}
	return &settlementService{
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		wallet:         wallet,
		clock:          clk,
		lateFeePercent: lateFeePercent,
	}
}

// Calculate prices a return. The refund never goes below zero; fees beyond
// the deposit are not carried over.
func (s *settlementService) Calculate(b *domain.Booking, returnDate time.Time, damageFee int64) Settlement {
	st := Settlement{DamageFee: damageFee}
	if days := utils.DaysBetween(b.EndDate, returnDate); days > 0 {
		st.IsLate = true
		st.OverdueDays = days
		st.LateFee = int64(days) * b.DailyRate * s.lateFeePercent / 100
	}
	st.AdditionalFees = st.LateFee + st.DamageFee
	st.RefundAmount = b.DepositAmount - st.AdditionalFees
	if st.RefundAmount < 0 {
		st.RefundAmount = 0
	}
	return st
}

func (s *settlementService) ApplyRefund(ctx context.Context, b *domain.Booking, ret *domain.ReturnTransaction) error {
	logger.EnterMethod("settlementService.ApplyRefund", "bookingID", b.ID, "amount", ret.RefundAmount)
	if ret.RefundAmount <= 0 {
		logger.ExitMethod("settlementService.ApplyRefund", "bookingID", b.ID, "refund", 0)
		return nil
	}

	now := s.clock.Now()
	refund := &domain.Payment{
		ID:        uuid.New(),
		BookingID: b.ID,
		Type:      domain.PaymentTypeRefund,
		Method:    domain.PaymentMethodWallet,
		Status:    domain.PaymentStatusPending,
		Amount:    ret.RefundAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.paymentRepo.Create(ctx, refund); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Info("Refund already recorded, skipping", "bookingID", b.ID)
			logger.ExitMethod("settlementService.ApplyRefund", "bookingID", b.ID, "skipped", true)
			return nil
		}
		logger.Error("Refund not recorded, manual reconciliation required",
			"bookingID", b.ID, "userID", b.UserID, "amount", ret.RefundAmount, "error", err)
		if uerr := s.bookingRepo.SetRefundStatus(ctx, b.ID, domain.RefundStatusFailed, now); uerr != nil {
			logger.Error("Failed to mark return refund failed", "bookingID", b.ID, "error", uerr)
		}
		ret.RefundStatus = domain.RefundStatusFailed
		logger.ExitMethodWithError("settlementService.ApplyRefund", err, "bookingID", b.ID)
		return fmt.Errorf("failed to record refund: %w", err)
	}

	desc := fmt.Sprintf("Deposit refund for booking %s", b.ID)
	if err := s.wallet.Credit(ctx, b.UserID, ret.RefundAmount, b.ID, desc); err != nil {
		logger.Error("Refund credit failed, manual reconciliation required",
			"bookingID", b.ID, "userID", b.UserID, "amount", ret.RefundAmount, "error", err)
		if uerr := s.paymentRepo.UpdateStatus(ctx, refund.ID, domain.PaymentStatusFailed, now); uerr != nil {
			logger.Error("Failed to mark refund payment failed", "paymentID", refund.ID, "error", uerr)
		}
		if uerr := s.bookingRepo.SetRefundStatus(ctx, b.ID, domain.RefundStatusFailed, now); uerr != nil {
			logger.Error("Failed to mark return refund failed", "bookingID", b.ID, "error", uerr)
		}
		ret.RefundStatus = domain.RefundStatusFailed
		logger.ExitMethodWithError("settlementService.ApplyRefund", err, "bookingID", b.ID)
		return fmt.Errorf("failed to credit refund: %w", err)
	}

	if err := s.paymentRepo.UpdateStatus(ctx, refund.ID, domain.PaymentStatusSuccess, now); err != nil {
		logger.Error("Failed to mark refund payment successful", "paymentID", refund.ID, "error", err)
	}
	if err := s.bookingRepo.SetRefundStatus(ctx, b.ID, domain.RefundStatusSuccess, now); err != nil {
		logger.Error("Failed to mark return refunded", "bookingID", b.ID, "error", err)
	}
	ret.RefundStatus = domain.RefundStatusSuccess

	logger.ExitMethod("settlementService.ApplyRefund", "bookingID", b.ID, "refund", ret.RefundAmount)
	return nil
}
