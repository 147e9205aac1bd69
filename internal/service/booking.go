package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/lock"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/payment"
	"stationrent-backend/internal/repository"
	"stationrent-backend/internal/utils"
)

const DefaultPaymentWindow = 10 * time.Minute

type BookingConfig struct {
	PaymentWindow time.Duration
	Location      *time.Location
}

// BookingDeps groups the collaborators of the booking state machine.
type BookingDeps struct {
	Bookings     repository.BookingRepository
	Payments     repository.PaymentRepository
	Stations     repository.StationRepository
	VehicleTypes repository.VehicleTypeRepository
	Vehicles     repository.VehicleRepository
	Availability AvailabilityService
	Settlement   SettlementService
	Identity     IdentityVerifier
	Gateway      payment.Gateway
	Locker       lock.Locker
	Notifier     Notifier
	Clock        clock.Clock
}

type bookingService struct {
	BookingDeps
	window time.Duration
	loc    *time.Location
}

func NewBookingService(deps BookingDeps, cfg BookingConfig) BookingService {
	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = DefaultPaymentWindow
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	return &bookingService{BookingDeps: deps, window: cfg.PaymentWindow, loc: cfg.Location}
}

func (s *bookingService) Create(ctx context.Context, userID, stationID, typeID uuid.UUID, startDate, endDate time.Time) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.Create", "userID", userID, "stationID", stationID, "typeID", typeID)

	now := s.Clock.Now()
	start, end := utils.AsDate(startDate, s.loc), utils.AsDate(endDate, s.loc)
	if !start.Before(end) {
		err := domain.NewValidationError("start date must be before end date")
		logger.ExitMethodWithError("bookingService.Create", err)
		return nil, err
	}
	if today := utils.DateOf(now, s.loc); !start.After(today) {
		err := domain.NewValidationError("start date must be in the future")
		logger.ExitMethodWithError("bookingService.Create", err)
		return nil, err
	}

	if _, err := s.Stations.GetByID(ctx, stationID); err != nil {
		logger.ExitMethodWithError("bookingService.Create", err, "stationID", stationID)
		return nil, err
	}
	vt, err := s.VehicleTypes.GetByID(ctx, typeID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Create", err, "typeID", typeID)
		return nil, err
	}

	cost, err := utils.CalculateRentalCost(start, end, vt.DailyRate, vt.DepositAmount)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Create", err)
		return nil, domain.NewValidationError("%v", err)
	}

	free, err := s.Availability.CountAvailable(ctx, stationID, typeID, start, end)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Create", err)
		return nil, err
	}
	if free == 0 {
		err := domain.NewConflictError(domain.ReasonNoVehicle)
		logger.ExitMethodWithError("bookingService.Create", err, "stationID", stationID, "typeID", typeID)
		return nil, err
	}

	b := &domain.Booking{
		ID:                uuid.New(),
		UserID:            userID,
		StationID:         stationID,
		VehicleTypeID:     typeID,
		StartDate:         start,
		EndDate:           end,
		DepositAmount:     vt.DepositAmount,
		DailyRate:         vt.DailyRate,
		TotalPayment:      cost.Total,
		Status:            domain.BookingStatusPending,
		PaymentExpiryTime: now.Add(s.window),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Bookings.Create(ctx, b); err != nil {
		logger.ExitMethodWithError("bookingService.Create", err)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.notify(ctx, b, domain.BookingEventCreated, b.TotalPayment, "")
	logger.ExitMethod("bookingService.Create", "bookingID", b.ID, "total", b.TotalPayment, "days", cost.Days)
	return b, nil
}

func (s *bookingService) StartPayment(ctx context.Context, userID, bookingID uuid.UUID, returnURL string) (string, error) {
	logger.EnterMethod("bookingService.StartPayment", "userID", userID, "bookingID", bookingID)

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.StartPayment", err)
		return "", err
	}
	if b.UserID != userID {
		err := domain.NewNotFoundError("booking %s not found", bookingID)
		logger.ExitMethodWithError("bookingService.StartPayment", err, "reason", "not owner")
		return "", err
	}
	if b.Status != domain.BookingStatusPending {
		err := domain.NewStateError("booking is %s, payment is only possible while PENDING", b.Status)
		logger.ExitMethodWithError("bookingService.StartPayment", err)
		return "", err
	}
	if !b.PaymentWindowOpen(s.Clock.Now()) {
		err := domain.NewExpiredError("payment window closed at %s", b.PaymentExpiryTime.Format(time.RFC3339))
		logger.ExitMethodWithError("bookingService.StartPayment", err)
		return "", err
	}

	url, err := s.Gateway.BuildPaymentRequest(ctx, b.ID, b.TotalPayment, returnURL)
	if err != nil {
		logger.ExitMethodWithError("bookingService.StartPayment", err)
		return "", fmt.Errorf("failed to build payment request: %w", err)
	}

	logger.ExitMethod("bookingService.StartPayment", "bookingID", bookingID)
	return url, nil
}

func (s *bookingService) HandlePaymentCallback(ctx context.Context, payload []byte, signature string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.HandlePaymentCallback")

	cb, err := s.Gateway.ParseCallback(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrIgnoredEvent) {
			logger.ExitMethod("bookingService.HandlePaymentCallback", "ignored", true)
			return nil, nil
		}
		verr := domain.NewValidationError("invalid payment callback: %v", err)
		logger.ExitMethodWithError("bookingService.HandlePaymentCallback", verr)
		return nil, verr
	}

	if cb.Success {
		b, err := s.ConfirmPayment(ctx, cb.BookingID, cb.GatewayTxnID)
		if errors.Is(err, domain.ErrExpired) {
			// The money arrived too late; close the booking now instead of
			// waiting for the next sweep.
			if ok, cerr := s.Bookings.CancelIfExpired(ctx, cb.BookingID, s.Clock.Now()); cerr != nil {
				logger.Error("Failed to cancel expired booking", "bookingID", cb.BookingID, "error", cerr)
			} else if ok {
				s.notifyByID(ctx, cb.BookingID, domain.BookingEventExpired)
			}
		}
		if errors.Is(err, domain.ErrState) {
			// Gateways redeliver until they see a 2xx.
			if confirmed, ok := s.confirmedBy(ctx, cb.BookingID, cb.GatewayTxnID); ok {
				logger.ExitMethod("bookingService.HandlePaymentCallback", "bookingID", confirmed.ID, "duplicate", true)
				return confirmed, nil
			}
		}
		if err != nil {
			logger.ExitMethodWithError("bookingService.HandlePaymentCallback", err, "bookingID", cb.BookingID)
			return nil, err
		}
		logger.ExitMethod("bookingService.HandlePaymentCallback", "bookingID", b.ID, "status", b.Status)
		return b, nil
	}

	b, err := s.Bookings.GetByID(ctx, cb.BookingID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.HandlePaymentCallback", err, "bookingID", cb.BookingID)
		return nil, err
	}
	now := s.Clock.Now()
	failed := &domain.Payment{
		ID:           uuid.New(),
		BookingID:    b.ID,
		Type:         domain.PaymentTypeDeposit,
		Method:       domain.PaymentMethodGateway,
		Status:       domain.PaymentStatusFailed,
		Amount:       b.TotalPayment,
		GatewayTxnID: cb.GatewayTxnID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Payments.Create(ctx, failed); err != nil {
		logger.ExitMethodWithError("bookingService.HandlePaymentCallback", err, "bookingID", b.ID)
		return nil, fmt.Errorf("failed to record failed payment: %w", err)
	}

	logger.ExitMethod("bookingService.HandlePaymentCallback", "bookingID", b.ID, "paymentFailed", true)
	return b, nil
}

func (s *bookingService) ConfirmPayment(ctx context.Context, bookingID uuid.UUID, gatewayTxnID string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.ConfirmPayment", "bookingID", bookingID, "txnID", gatewayTxnID)

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.ConfirmPayment", err)
		return nil, err
	}
	now := s.Clock.Now()
	if err := checkConfirmable(b, now); err != nil {
		logger.ExitMethodWithError("bookingService.ConfirmPayment", err, "bookingID", bookingID)
		return nil, err
	}

	deposit := &domain.Payment{
		ID:           uuid.New(),
		BookingID:    b.ID,
		Type:         domain.PaymentTypeDeposit,
		Method:       domain.PaymentMethodGateway,
		Status:       domain.PaymentStatusSuccess,
		Amount:       b.TotalPayment,
		GatewayTxnID: gatewayTxnID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ok, err := s.Bookings.ConfirmDeposit(ctx, b.ID, deposit, now)
	if err != nil {
		logger.ExitMethodWithError("bookingService.ConfirmPayment", err, "bookingID", bookingID)
		return nil, fmt.Errorf("failed to confirm deposit: %w", err)
	}
	if !ok {
		// Lost a race with the reaper or a duplicate callback.
		current, gerr := s.Bookings.GetByID(ctx, bookingID)
		if gerr != nil {
			return nil, gerr
		}
		err := checkConfirmable(current, now)
		if err == nil {
			err = domain.NewStateError("booking changed while confirming")
		}
		logger.ExitMethodWithError("bookingService.ConfirmPayment", err, "bookingID", bookingID)
		return nil, err
	}

	b.Status = domain.BookingStatusConfirmed
	b.UpdatedAt = now
	s.notify(ctx, b, domain.BookingEventConfirmed, b.TotalPayment, "")
	logger.ExitMethod("bookingService.ConfirmPayment", "bookingID", bookingID)
	return b, nil
}

// confirmedBy reports whether the booking already holds a successful
// deposit carrying this gateway transaction.
func (s *bookingService) confirmedBy(ctx context.Context, bookingID uuid.UUID, txnID string) (*domain.Booking, bool) {
	if txnID == "" {
		return nil, false
	}
	payments, err := s.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		logger.Warn("Failed to look up deposits for callback replay", "bookingID", bookingID, "error", err)
		return nil, false
	}
	for _, p := range payments {
		if p.Type == domain.PaymentTypeDeposit && p.Status == domain.PaymentStatusSuccess && p.GatewayTxnID == txnID {
			b, err := s.Bookings.GetByID(ctx, bookingID)
			if err != nil {
				return nil, false
			}
			return b, true
		}
	}
	return nil, false
}

func checkConfirmable(b *domain.Booking, now time.Time) error {
	if b.Status != domain.BookingStatusPending {
		return domain.NewStateError("booking is %s, expected PENDING", b.Status)
	}
	if !b.PaymentWindowOpen(now) {
		return domain.NewExpiredError("payment window closed at %s", b.PaymentExpiryTime.Format(time.RFC3339))
	}
	return nil
}

func (s *bookingService) Fulfill(ctx context.Context, bookingID, vehicleID, documentID uuid.UUID, notes string) (*domain.Contract, error) {
	logger.EnterMethod("bookingService.Fulfill", "bookingID", bookingID, "vehicleID", vehicleID)

	if documentID == uuid.Nil {
		err := domain.NewValidationError("identity document is required")
		logger.ExitMethodWithError("bookingService.Fulfill", err)
		return nil, err
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Fulfill", err)
		return nil, err
	}
	if b.Status != domain.BookingStatusConfirmed {
		err := domain.NewStateError("booking is %s, expected CONFIRMED", b.Status)
		logger.ExitMethodWithError("bookingService.Fulfill", err, "bookingID", bookingID)
		return nil, err
	}

	v, err := s.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Fulfill", err, "vehicleID", vehicleID)
		return nil, err
	}
	switch {
	case v.VehicleTypeID != b.VehicleTypeID:
		err = domain.NewConflictError(domain.ReasonTypeMismatch)
	case v.StationID != b.StationID:
		err = domain.NewConflictError(domain.ReasonStationMismatch)
	case v.Status != domain.VehicleStatusAvailable:
		err = domain.NewConflictError(domain.ReasonVehicleUnavailable)
	}
	if err != nil {
		logger.ExitMethodWithError("bookingService.Fulfill", err, "vehicleID", vehicleID, "vehicleStatus", v.Status)
		return nil, err
	}

	ok, err := s.Identity.AcceptsDocument(ctx, b.UserID, documentID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Fulfill", err)
		return nil, err
	}
	if !ok {
		err := domain.NewConflictError(domain.ReasonMissingDocument)
		logger.ExitMethodWithError("bookingService.Fulfill", err, "userID", b.UserID, "documentID", documentID)
		return nil, err
	}

	release, err := s.Locker.TryAcquire(ctx, lock.VehicleKey(vehicleID.String()))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			err = domain.NewConflictError(domain.ReasonVehicleBusy)
		}
		logger.ExitMethodWithError("bookingService.Fulfill", err, "vehicleID", vehicleID)
		return nil, err
	}
	defer func() {
		if rerr := release(context.Background()); rerr != nil {
			logger.Warn("Failed to release vehicle lock", "vehicleID", vehicleID, "error", rerr)
		}
	}()

	now := s.Clock.Now()
	contract := &domain.Contract{
		ID:         uuid.New(),
		BookingID:  b.ID,
		VehicleID:  vehicleID,
		DocumentID: documentID,
		Notes:      notes,
		CreatedAt:  now,
	}
	if err := s.Bookings.Activate(ctx, contract, now); err != nil {
		logger.ExitMethodWithError("bookingService.Fulfill", err, "bookingID", bookingID, "vehicleID", vehicleID)
		return nil, err
	}

	b.Status = domain.BookingStatusActive
	s.notify(ctx, b, domain.BookingEventActivated, 0, "")
	logger.ExitMethod("bookingService.Fulfill", "bookingID", bookingID, "contractID", contract.ID)
	return contract, nil
}

func (s *bookingService) Complete(ctx context.Context, bookingID uuid.UUID, details domain.ReturnDetails) (*domain.ReturnTransaction, error) {
	logger.EnterMethod("bookingService.Complete", "bookingID", bookingID)

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Complete", err)
		return nil, err
	}
	if b.Status != domain.BookingStatusActive {
		err := domain.NewStateError("booking is %s, expected ACTIVE", b.Status)
		logger.ExitMethodWithError("bookingService.Complete", err, "bookingID", bookingID)
		return nil, err
	}
	b.StartDate = utils.AsDate(b.StartDate, s.loc)
	b.EndDate = utils.AsDate(b.EndDate, s.loc)

	now := s.Clock.Now()
	returnDate := utils.DateOf(now, s.loc)
	if details.ReturnDate != nil {
		returnDate = utils.AsDate(*details.ReturnDate, s.loc)
	}
	if returnDate.Before(b.StartDate) {
		err := domain.NewValidationError("return date is before the start date")
		logger.ExitMethodWithError("bookingService.Complete", err)
		return nil, err
	}
	var damageFee int64
	if details.DamageFee != nil {
		damageFee = *details.DamageFee
	}
	if damageFee < 0 {
		err := domain.NewValidationError("damage fee must not be negative")
		logger.ExitMethodWithError("bookingService.Complete", err)
		return nil, err
	}

	st := s.Settlement.Calculate(b, returnDate, damageFee)
	ret := &domain.ReturnTransaction{
		ID:             uuid.New(),
		BookingID:      b.ID,
		ReturnDate:     returnDate,
		LateFee:        st.LateFee,
		DamageFee:      st.DamageFee,
		AdditionalFees: st.AdditionalFees,
		RefundAmount:   st.RefundAmount,
		RefundStatus:   domain.RefundStatusNone,
		ConditionNotes: details.ConditionNotes,
		IsLate:         st.IsLate,
		OverdueDays:    st.OverdueDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if ret.RefundAmount > 0 {
		ret.RefundStatus = domain.RefundStatusPending
	}

	vehicleStatus := domain.VehicleStatusAvailable
	if details.IndicatesDamage() {
		vehicleStatus = domain.VehicleStatusDamaged
	}
	if err := s.Bookings.Complete(ctx, ret, vehicleStatus, now); err != nil {
		logger.ExitMethodWithError("bookingService.Complete", err, "bookingID", bookingID)
		return nil, err
	}
	b.Status = domain.BookingStatusCompleted
	s.notify(ctx, b, domain.BookingEventCompleted, ret.AdditionalFees, "")

	// The return stays recorded even when the refund fails.
	if err := s.Settlement.ApplyRefund(ctx, b, ret); err != nil {
		logger.Error("Refund not applied", "bookingID", b.ID, "error", err)
	} else if ret.RefundStatus == domain.RefundStatusSuccess {
		s.notify(ctx, b, domain.BookingEventRefund, ret.RefundAmount, "")
	}

	logger.ExitMethod("bookingService.Complete", "bookingID", bookingID, "lateFee", ret.LateFee, "refund", ret.RefundAmount, "refundStatus", ret.RefundStatus)
	return ret, nil
}

// CancelExpired is one sweep of the reaper. A failure on one booking is
// logged and the sweep moves on.
func (s *bookingService) CancelExpired(ctx context.Context) (int, error) {
	logger.EnterMethod("bookingService.CancelExpired")

	now := s.Clock.Now()
	expired, err := s.Bookings.ListExpiredPending(ctx, now)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CancelExpired", err)
		return 0, fmt.Errorf("failed to list expired bookings: %w", err)
	}

	cancelled := 0
	for i := range expired {
		b := &expired[i]
		ok, err := s.Bookings.CancelIfExpired(ctx, b.ID, now)
		if err != nil {
			logger.Error("Failed to cancel expired booking", "bookingID", b.ID, "error", err)
			continue
		}
		if !ok {
			logger.Debug("Booking left PENDING before the sweep reached it", "bookingID", b.ID)
			continue
		}
		cancelled++
		b.Status = domain.BookingStatusCancelled
		s.notify(ctx, b, domain.BookingEventExpired, 0, "")
	}

	logger.ExitMethod("bookingService.CancelExpired", "candidates", len(expired), "cancelled", cancelled)
	return cancelled, nil
}

func (s *bookingService) AdminCancel(ctx context.Context, bookingID uuid.UUID, reason string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.AdminCancel", "bookingID", bookingID, "reason", reason)

	b, err := s.Bookings.AdminCancel(ctx, bookingID, s.Clock.Now())
	if err != nil {
		logger.ExitMethodWithError("bookingService.AdminCancel", err, "bookingID", bookingID)
		return nil, err
	}

	s.notify(ctx, b, domain.BookingEventCancelled, 0, reason)
	logger.ExitMethod("bookingService.AdminCancel", "bookingID", bookingID)
	return b, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	return s.Bookings.GetByID(ctx, bookingID)
}

func (s *bookingService) ListMyBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

func (s *bookingService) GetBookingDetails(ctx context.Context, bookingID uuid.UUID) (*domain.BookingDetails, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	payments, err := s.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	details := &domain.BookingDetails{
		Booking:   b,
		Payments:  payments,
		FullyPaid: domain.PaidDeposits(payments) >= b.TotalPayment,
	}
	if c, err := s.Bookings.GetContract(ctx, bookingID); err == nil {
		details.Contract = c
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if r, err := s.Bookings.GetReturn(ctx, bookingID); err == nil {
		details.Return = r
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return details, nil
}

func (s *bookingService) ListOverdue(ctx context.Context) ([]domain.Booking, error) {
	today := utils.DateOf(s.Clock.Now(), s.loc)
	return s.Bookings.ListActiveEndedBefore(ctx, today)
}

func (s *bookingService) notify(ctx context.Context, b *domain.Booking, t domain.BookingEventType, amount int64, reason string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, domain.BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		UserID:     b.UserID,
		Status:     b.Status,
		Amount:     amount,
		Reason:     reason,
		OccurredAt: s.Clock.Now(),
	})
}

func (s *bookingService) notifyByID(ctx context.Context, bookingID uuid.UUID, t domain.BookingEventType) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		logger.Warn("Skipping notification, booking lookup failed", "bookingID", bookingID, "error", err)
		return
	}
	s.notify(ctx, b, t, 0, "")
}
