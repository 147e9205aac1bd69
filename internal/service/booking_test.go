package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/lock"
	"stationrent-backend/internal/payment"
	"stationrent-backend/internal/repository"
	"stationrent-backend/internal/repository/memory"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func june(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	ctx      context.Context
	store    *memory.Store
	clock    *clock.Manual
	notifier *recordingNotifier
	gateway  *payment.MockGateway
	locker   *lock.Local
	avail    AvailabilityService
	svc      BookingService

	station  domain.Station
	vtype    domain.VehicleType
	vehicles []domain.Vehicle
	user     domain.User
	document domain.IdentityDocument
}

type harnessOption func(*harness, *BookingDeps)

func withWallet(w Wallet) harnessOption {
	return func(h *harness, deps *BookingDeps) {
		deps.Settlement = NewSettlementService(h.store.BookingRepository, h.store.PaymentRepository, w, h.clock, 0)
	}
}

func withRefundPayments(wrap func(repository.PaymentRepository) repository.PaymentRepository) harnessOption {
	return func(h *harness, deps *BookingDeps) {
		payments := wrap(h.store.PaymentRepository)
		deps.Settlement = NewSettlementService(h.store.BookingRepository, payments, NewWallet(h.store.WalletRepository, h.clock), h.clock, 0)
	}
}

func withBookings(wrap func(repository.BookingRepository) repository.BookingRepository) harnessOption {
	return func(h *harness, deps *BookingDeps) {
		deps.Bookings = wrap(deps.Bookings)
	}
}

func withoutDocument() harnessOption {
	return func(h *harness, _ *BookingDeps) {
		h.document = domain.IdentityDocument{}
	}
}

// newHarness builds a station with n vehicles of one type (deposit 1,000,000,
// rate 100,000/day) and a customer with a verified CCCD.
func newHarness(t *testing.T, n int, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		ctx:      context.Background(),
		store:    memory.NewStore(),
		clock:    clock.NewManual(t0),
		notifier: &recordingNotifier{},
		gateway:  payment.NewMockGateway("secret", "http://localhost/mock-pay"),
		locker:   lock.NewLocal(),
	}

	h.station = domain.Station{ID: uuid.New(), Name: "District 1", City: "HCMC", CreatedAt: t0}
	require.NoError(t, h.store.StationRepository.Create(h.ctx, &h.station))
	h.vtype = domain.VehicleType{ID: uuid.New(), Name: "Honda Vision", DepositAmount: 1_000_000, DailyRate: 100_000, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, h.store.VehicleTypeRepository.Create(h.ctx, &h.vtype))
	for i := 0; i < n; i++ {
		v := domain.Vehicle{
			ID: uuid.New(), StationID: h.station.ID, VehicleTypeID: h.vtype.ID,
			LicensePlate: fmt.Sprintf("59A-100.%02d", i), Status: domain.VehicleStatusAvailable,
			CreatedAt: t0.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, h.store.VehicleRepository.Create(h.ctx, &v))
		h.vehicles = append(h.vehicles, v)
	}

	h.user = domain.User{ID: uuid.New(), Name: "Nguyen Van A", Email: "a@example.com", Phone: "+84900000001", CreatedAt: t0}
	require.NoError(t, h.store.UserRepository.Create(h.ctx, &h.user))
	h.document = domain.IdentityDocument{ID: uuid.New(), UserID: h.user.ID, Type: domain.DocumentTypeCCCD, Number: "079000000001", Verified: true, CreatedAt: t0}

	h.avail = NewAvailabilityService(h.store.StationRepository, h.store.VehicleTypeRepository, h.store.VehicleRepository, h.clock, time.UTC)
	wallet := NewWallet(h.store.WalletRepository, h.clock)
	deps := BookingDeps{
		Bookings:     h.store.BookingRepository,
		Payments:     h.store.PaymentRepository,
		Stations:     h.store.StationRepository,
		VehicleTypes: h.store.VehicleTypeRepository,
		Vehicles:     h.store.VehicleRepository,
		Availability: h.avail,
		Settlement:   NewSettlementService(h.store.BookingRepository, h.store.PaymentRepository, wallet, h.clock, 0),
		Identity:     NewIdentityVerifier(h.store.UserRepository, h.clock),
		Gateway:      h.gateway,
		Locker:       h.locker,
		Notifier:     h.notifier,
		Clock:        h.clock,
	}
	for _, opt := range opts {
		opt(h, &deps)
	}
	if h.document.ID != uuid.Nil {
		require.NoError(t, h.store.UserRepository.AddDocument(h.ctx, &h.document))
	}
	h.svc = NewBookingService(deps, BookingConfig{PaymentWindow: 10 * time.Minute, Location: time.UTC})
	return h
}

func (h *harness) create(t *testing.T, start, end int) *domain.Booking {
	t.Helper()
	b, err := h.svc.Create(h.ctx, h.user.ID, h.station.ID, h.vtype.ID, june(start), june(end))
	require.NoError(t, err)
	return b
}

func (h *harness) confirmed(t *testing.T, start, end int) *domain.Booking {
	t.Helper()
	b := h.create(t, start, end)
	b, err := h.svc.ConfirmPayment(h.ctx, b.ID, "txn-"+b.ID.String()[:8])
	require.NoError(t, err)
	return b
}

func (h *harness) active(t *testing.T, start, end int) *domain.Booking {
	t.Helper()
	b := h.confirmed(t, start, end)
	_, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, h.document.ID, "")
	require.NoError(t, err)
	return b
}

func (h *harness) status(t *testing.T, id uuid.UUID) domain.BookingStatus {
	t.Helper()
	b, err := h.store.BookingRepository.GetByID(h.ctx, id)
	require.NoError(t, err)
	return b.Status
}

func TestBookingService_Create(t *testing.T) {
	t.Run("Success snapshots prices and opens the window", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)

		assert.Equal(t, domain.BookingStatusPending, b.Status)
		assert.Equal(t, int64(1_000_000), b.DepositAmount)
		assert.Equal(t, int64(100_000), b.DailyRate)
		assert.Equal(t, int64(1_200_000), b.TotalPayment)
		assert.Equal(t, t0.Add(10*time.Minute), b.PaymentExpiryTime)
		assert.Equal(t, []domain.BookingEventType{domain.BookingEventCreated}, h.notifier.types(b.ID))
	})

	t.Run("Bad dates", func(t *testing.T) {
		h := newHarness(t, 1)
		_, err := h.svc.Create(h.ctx, h.user.ID, h.station.ID, h.vtype.ID, june(12), june(12))
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = h.svc.Create(h.ctx, h.user.ID, h.station.ID, h.vtype.ID, june(1), june(3))
		assert.ErrorIs(t, err, domain.ErrValidation, "today is not in the future")
	})

	t.Run("Unknown station or type", func(t *testing.T) {
		h := newHarness(t, 1)
		_, err := h.svc.Create(h.ctx, h.user.ID, uuid.New(), h.vtype.ID, june(10), june(12))
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = h.svc.Create(h.ctx, h.user.ID, h.station.ID, uuid.New(), june(10), june(12))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("No vehicle in service", func(t *testing.T) {
		h := newHarness(t, 1)
		require.NoError(t, h.store.VehicleRepository.SetServiceStatus(h.ctx, h.vehicles[0].ID, domain.VehicleStatusMaintenance, "engine", t0))

		_, err := h.svc.Create(h.ctx, h.user.ID, h.station.ID, h.vtype.ID, june(10), june(12))
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, domain.ReasonNoVehicle, domain.ReasonOf(err))
	})
}

// One vehicle, booking [10,12) fulfilled: [11,13) overlaps, [12,14) only
// touches the boundary.
func TestScenario_OverlapAndBoundary(t *testing.T) {
	h := newHarness(t, 1)
	h.active(t, 10, 12)

	res, err := h.avail.Query(h.ctx, h.station.ID, h.vtype.ID, june(11), june(13))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Available)
	assert.Equal(t, 1, res.Total)

	res, err = h.avail.Query(h.ctx, h.station.ID, h.vtype.ID, june(12), june(14))
	require.NoError(t, err)
	require.Len(t, res.Vehicles, 1)
	assert.Equal(t, h.vehicles[0].ID, res.Vehicles[0].ID)

	total, err := h.avail.TotalAtStation(h.ctx, h.station.ID, h.vtype.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestScenario_PaymentWindow(t *testing.T) {
	t.Run("Confirm after the window is expired", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)
		h.clock.Advance(11 * time.Minute)

		_, err := h.svc.ConfirmPayment(h.ctx, b.ID, "txn-late")
		assert.ErrorIs(t, err, domain.ErrExpired)
		assert.Equal(t, domain.BookingStatusPending, h.status(t, b.ID))
	})

	t.Run("Confirm exactly at the deadline succeeds", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)
		h.clock.Advance(10 * time.Minute)

		got, err := h.svc.ConfirmPayment(h.ctx, b.ID, "txn-edge")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, got.Status)

		details, err := h.svc.GetBookingDetails(h.ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, details.FullyPaid)
		require.Len(t, details.Payments, 1)
		assert.Equal(t, "txn-edge", details.Payments[0].GatewayTxnID)
	})

	t.Run("Reaper sweep cancels after the window", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)

		h.clock.Advance(10 * time.Minute)
		n, err := h.svc.CancelExpired(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n, "deadline itself is still payable")

		h.clock.Advance(time.Millisecond)
		n, err = h.svc.CancelExpired(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, domain.BookingStatusCancelled, h.status(t, b.ID))
		assert.Contains(t, h.notifier.types(b.ID), domain.BookingEventExpired)

		_, err = h.svc.ConfirmPayment(h.ctx, b.ID, "txn-too-late")
		assert.ErrorIs(t, err, domain.ErrState)
	})

	t.Run("Confirmed booking is not swept", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		h.clock.Advance(time.Hour)

		n, err := h.svc.CancelExpired(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, domain.BookingStatusConfirmed, h.status(t, b.ID))
	})
}

func TestScenario_ConcurrentFulfill(t *testing.T) {
	h := newHarness(t, 1)
	a := h.confirmed(t, 10, 12)
	b := h.confirmed(t, 10, 12)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = h.svc.Fulfill(h.ctx, id, h.vehicles[0].ID, h.document.ID, "")
		}(i, id)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, successes)

	statuses := []domain.BookingStatus{h.status(t, a.ID), h.status(t, b.ID)}
	assert.ElementsMatch(t, []domain.BookingStatus{domain.BookingStatusActive, domain.BookingStatusConfirmed}, statuses)
}

func TestBookingService_FulfillChecks(t *testing.T) {
	t.Run("Booking must be confirmed", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)
		_, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, h.document.ID, "")
		assert.ErrorIs(t, err, domain.ErrState)
	})

	t.Run("Unknown vehicle", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		_, err := h.svc.Fulfill(h.ctx, b.ID, uuid.New(), h.document.ID, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Type mismatch", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		other := domain.VehicleType{ID: uuid.New(), Name: "VinFast Klara"}
		require.NoError(t, h.store.VehicleTypeRepository.Create(h.ctx, &other))
		v := domain.Vehicle{ID: uuid.New(), StationID: h.station.ID, VehicleTypeID: other.ID, LicensePlate: "59A-999.99", Status: domain.VehicleStatusAvailable}
		require.NoError(t, h.store.VehicleRepository.Create(h.ctx, &v))

		_, err := h.svc.Fulfill(h.ctx, b.ID, v.ID, h.document.ID, "")
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, domain.ReasonTypeMismatch, domain.ReasonOf(err))
	})

	t.Run("Station mismatch", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		elsewhere := domain.Station{ID: uuid.New(), Name: "District 7"}
		require.NoError(t, h.store.StationRepository.Create(h.ctx, &elsewhere))
		v := domain.Vehicle{ID: uuid.New(), StationID: elsewhere.ID, VehicleTypeID: h.vtype.ID, LicensePlate: "59A-888.88", Status: domain.VehicleStatusAvailable}
		require.NoError(t, h.store.VehicleRepository.Create(h.ctx, &v))

		_, err := h.svc.Fulfill(h.ctx, b.ID, v.ID, h.document.ID, "")
		assert.Equal(t, domain.ReasonStationMismatch, domain.ReasonOf(err))
	})

	t.Run("Vehicle under maintenance", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		require.NoError(t, h.store.VehicleRepository.SetServiceStatus(h.ctx, h.vehicles[0].ID, domain.VehicleStatusMaintenance, "", t0))

		_, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, h.document.ID, "")
		assert.Equal(t, domain.ReasonVehicleUnavailable, domain.ReasonOf(err))
	})

	t.Run("Missing identity document", func(t *testing.T) {
		h := newHarness(t, 1, withoutDocument())
		b := h.confirmed(t, 10, 12)

		_, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, uuid.New(), "")
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, domain.ReasonMissingDocument, domain.ReasonOf(err))
	})

	t.Run("Document of another customer", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		stranger := domain.User{ID: uuid.New(), Name: "Le Van C", Email: "c@example.com", CreatedAt: t0}
		require.NoError(t, h.store.UserRepository.Create(h.ctx, &stranger))
		foreign := domain.IdentityDocument{ID: uuid.New(), UserID: stranger.ID, Type: domain.DocumentTypeCCCD, Number: "079000000002", Verified: true, CreatedAt: t0}
		require.NoError(t, h.store.UserRepository.AddDocument(h.ctx, &foreign))

		_, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, foreign.ID, "")
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, domain.ReasonMissingDocument, domain.ReasonOf(err))
		assert.Equal(t, domain.BookingStatusConfirmed, h.status(t, b.ID))
	})

	t.Run("Unknown document", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)

		_, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, uuid.New(), "")
		assert.Equal(t, domain.ReasonMissingDocument, domain.ReasonOf(err))

		_, err = h.store.BookingRepository.GetContract(h.ctx, b.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "no contract is recorded")
	})

	t.Run("Own document not verified", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		pending := domain.IdentityDocument{ID: uuid.New(), UserID: h.user.ID, Type: domain.DocumentTypeDrivingLicense, Number: "B1-0002", CreatedAt: t0}
		require.NoError(t, h.store.UserRepository.AddDocument(h.ctx, &pending))

		_, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, pending.ID, "")
		assert.Equal(t, domain.ReasonMissingDocument, domain.ReasonOf(err))
	})

	t.Run("Vehicle locked by another request", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)
		release, err := h.locker.TryAcquire(h.ctx, lock.VehicleKey(h.vehicles[0].ID.String()))
		require.NoError(t, err)
		defer release(h.ctx)

		_, err = h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, h.document.ID, "")
		assert.Equal(t, domain.ReasonVehicleBusy, domain.ReasonOf(err))
	})

	t.Run("Success binds the vehicle", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.confirmed(t, 10, 12)

		c, err := h.svc.Fulfill(h.ctx, b.ID, h.vehicles[0].ID, h.document.ID, "full tank")
		require.NoError(t, err)
		assert.Equal(t, h.vehicles[0].ID, c.VehicleID)
		assert.Equal(t, domain.BookingStatusActive, h.status(t, b.ID))

		v, err := h.store.VehicleRepository.GetByID(h.ctx, h.vehicles[0].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusRented, v.Status)

		// The lock is released once the unit is done.
		release, err := h.locker.TryAcquire(h.ctx, lock.VehicleKey(h.vehicles[0].ID.String()))
		require.NoError(t, err)
		_ = release(h.ctx)
	})
}

func TestScenario_LateReturn(t *testing.T) {
	h := newHarness(t, 1)
	b := h.active(t, 10, 12)
	returned := june(14)

	ret, err := h.svc.Complete(h.ctx, b.ID, domain.ReturnDetails{ReturnDate: &returned})
	require.NoError(t, err)
	assert.True(t, ret.IsLate)
	assert.Equal(t, 2, ret.OverdueDays)
	assert.Equal(t, int64(300_000), ret.LateFee)
	assert.Equal(t, int64(300_000), ret.AdditionalFees)
	assert.Equal(t, int64(700_000), ret.RefundAmount)
	assert.Equal(t, domain.RefundStatusSuccess, ret.RefundStatus)

	balance, err := h.store.WalletRepository.GetBalance(h.ctx, h.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700_000), balance)

	v, err := h.store.VehicleRepository.GetByID(h.ctx, h.vehicles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusAvailable, v.Status)

	// A second return is rejected and never credits twice.
	_, err = h.svc.Complete(h.ctx, b.ID, domain.ReturnDetails{ReturnDate: &returned})
	assert.ErrorIs(t, err, domain.ErrState)
	balance, _ = h.store.WalletRepository.GetBalance(h.ctx, h.user.ID)
	assert.Equal(t, int64(700_000), balance)

	assert.Equal(t, []domain.BookingEventType{
		domain.BookingEventCreated, domain.BookingEventConfirmed, domain.BookingEventActivated,
		domain.BookingEventCompleted, domain.BookingEventRefund,
	}, h.notifier.types(b.ID))
}

func TestScenario_DamageBeyondDeposit(t *testing.T) {
	h := newHarness(t, 1)
	b := h.active(t, 10, 12)
	returned := june(12)
	damage := int64(2_000_000)

	ret, err := h.svc.Complete(h.ctx, b.ID, domain.ReturnDetails{ReturnDate: &returned, DamageFee: &damage, ConditionNotes: "broken mirror"})
	require.NoError(t, err)
	assert.False(t, ret.IsLate)
	assert.Equal(t, int64(2_000_000), ret.AdditionalFees)
	assert.Equal(t, int64(0), ret.RefundAmount)
	assert.Equal(t, domain.RefundStatusNone, ret.RefundStatus)

	v, err := h.store.VehicleRepository.GetByID(h.ctx, h.vehicles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusDamaged, v.Status)

	balance, _ := h.store.WalletRepository.GetBalance(h.ctx, h.user.ID)
	assert.Equal(t, int64(0), balance)

	// A damaged vehicle is out of the pool for any range.
	res, err := h.avail.Query(h.ctx, h.station.ID, h.vtype.ID, june(20), june(22))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Available)
}

func TestBookingService_CompleteWithWalletFailure(t *testing.T) {
	wallet := new(MockWallet)
	wallet.On("Credit", mock.Anything, mock.Anything, int64(1_000_000), mock.Anything, mock.Anything).Return(fmt.Errorf("wallet offline"))
	h := newHarness(t, 1, withWallet(wallet))
	b := h.active(t, 10, 12)
	returned := june(12)

	ret, err := h.svc.Complete(h.ctx, b.ID, domain.ReturnDetails{ReturnDate: &returned})
	require.NoError(t, err, "the return stays recorded")
	assert.Equal(t, domain.RefundStatusFailed, ret.RefundStatus)
	assert.Equal(t, domain.BookingStatusCompleted, h.status(t, b.ID))

	stored, err := h.store.BookingRepository.GetReturn(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusFailed, stored.RefundStatus)

	failed, err := h.store.PaymentRepository.ListByTypeAndStatus(h.ctx, domain.PaymentTypeRefund, domain.PaymentStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].BookingID)
	wallet.AssertExpectations(t)
}

type refundRejectingPayments struct {
	repository.PaymentRepository
}

func (r refundRejectingPayments) Create(ctx context.Context, p *domain.Payment) error {
	if p.Type == domain.PaymentTypeRefund {
		return fmt.Errorf("connection reset by peer")
	}
	return r.PaymentRepository.Create(ctx, p)
}

func TestBookingService_CompleteWhenRefundCannotBeRecorded(t *testing.T) {
	h := newHarness(t, 1, withRefundPayments(func(inner repository.PaymentRepository) repository.PaymentRepository {
		return refundRejectingPayments{inner}
	}))
	b := h.active(t, 10, 12)
	returned := june(12)

	ret, err := h.svc.Complete(h.ctx, b.ID, domain.ReturnDetails{ReturnDate: &returned})
	require.NoError(t, err, "the return stays recorded")
	assert.Equal(t, domain.RefundStatusFailed, ret.RefundStatus)

	stored, err := h.store.BookingRepository.GetReturn(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusFailed, stored.RefundStatus)

	balance, err := h.store.WalletRepository.GetBalance(h.ctx, h.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	unsettled, err := h.store.BookingRepository.ListUnsettledRefunds(h.ctx, h.clock.Now())
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.Equal(t, b.ID, unsettled[0].BookingID)
	assert.NotContains(t, h.notifier.types(b.ID), domain.BookingEventRefund)
}

// sweepBookings serves a fixed scan result to the reaper and fails the
// cancel of one booking.
type sweepBookings struct {
	repository.BookingRepository
	scanned   []domain.Booking
	failOn    uuid.UUID
	attempted []uuid.UUID
}

func (r *sweepBookings) ListExpiredPending(context.Context, time.Time) ([]domain.Booking, error) {
	return r.scanned, nil
}

func (r *sweepBookings) CancelIfExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.attempted = append(r.attempted, id)
	if id == r.failOn {
		return false, fmt.Errorf("deadlock detected")
	}
	return r.BookingRepository.CancelIfExpired(ctx, id, now)
}

func TestBookingService_CancelExpiredIsolatesFailures(t *testing.T) {
	sweep := &sweepBookings{}
	h := newHarness(t, 1, withBookings(func(inner repository.BookingRepository) repository.BookingRepository {
		sweep.BookingRepository = inner
		return sweep
	}))

	failing := h.create(t, 10, 12)
	expired := h.create(t, 13, 14)
	paid := h.create(t, 15, 16)
	sweep.scanned = []domain.Booking{*failing, *expired, *paid}
	sweep.failOn = failing.ID

	// Paid after the scan was taken.
	_, err := h.svc.ConfirmPayment(h.ctx, paid.ID, "txn-paid")
	require.NoError(t, err)
	h.clock.Advance(11 * time.Minute)

	n, err := h.svc.CancelExpired(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{failing.ID, expired.ID, paid.ID}, sweep.attempted)

	assert.Equal(t, domain.BookingStatusPending, h.status(t, failing.ID))
	assert.Equal(t, domain.BookingStatusCancelled, h.status(t, expired.ID))
	assert.Equal(t, domain.BookingStatusConfirmed, h.status(t, paid.ID))

	assert.NotContains(t, h.notifier.types(failing.ID), domain.BookingEventExpired)
	assert.Contains(t, h.notifier.types(expired.ID), domain.BookingEventExpired)
	assert.NotContains(t, h.notifier.types(paid.ID), domain.BookingEventExpired)
}

func TestBookingService_CompleteDefaultsToToday(t *testing.T) {
	h := newHarness(t, 1)
	b := h.active(t, 10, 12)
	h.clock.Set(time.Date(2025, 6, 11, 17, 30, 0, 0, time.UTC))

	ret, err := h.svc.Complete(h.ctx, b.ID, domain.ReturnDetails{})
	require.NoError(t, err)
	assert.Equal(t, june(11), ret.ReturnDate)
	assert.False(t, ret.IsLate)
	assert.Equal(t, int64(1_000_000), ret.RefundAmount)

	// Returned early: the vehicle is free again from the return date.
	res, err := h.avail.Query(h.ctx, h.station.ID, h.vtype.ID, june(11), june(12))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Available)
}

func TestBookingService_OverdueBlocksEveryRange(t *testing.T) {
	h := newHarness(t, 1)
	h.active(t, 10, 12)
	h.clock.Set(time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC))

	res, err := h.avail.Query(h.ctx, h.station.ID, h.vtype.ID, june(25), june(27))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Available)

	overdue, err := h.svc.ListOverdue(h.ctx)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)
}

func TestBookingService_AdminCancel(t *testing.T) {
	h := newHarness(t, 1)

	pending := h.create(t, 10, 12)
	_, err := h.svc.AdminCancel(h.ctx, pending.ID, "duplicate")
	assert.ErrorIs(t, err, domain.ErrState, "pending bookings are left to the reaper")

	active := h.active(t, 15, 17)
	got, err := h.svc.AdminCancel(h.ctx, active.ID, "customer no-show")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)

	v, err := h.store.VehicleRepository.GetByID(h.ctx, h.vehicles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusAvailable, v.Status)

	res, err := h.avail.Query(h.ctx, h.station.ID, h.vtype.ID, june(15), june(17))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Available, "cancelled bookings do not occupy")
}

func TestBookingService_PaymentFlow(t *testing.T) {
	callback := func(h *harness, id uuid.UUID, success bool) ([]byte, string) {
		payload := []byte(fmt.Sprintf(`{"booking_id":%q,"success":%t,"txn_id":"mock-1"}`, id, success))
		return payload, h.gateway.Sign(payload)
	}

	t.Run("Start payment", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)

		url, err := h.svc.StartPayment(h.ctx, h.user.ID, b.ID, "http://localhost:3000/done")
		require.NoError(t, err)
		assert.Contains(t, url, b.ID.String())
		assert.Contains(t, url, "amount=1200000")

		_, err = h.svc.StartPayment(h.ctx, uuid.New(), b.ID, "http://localhost:3000/done")
		assert.ErrorIs(t, err, domain.ErrNotFound, "only the owner can pay")

		h.clock.Advance(11 * time.Minute)
		_, err = h.svc.StartPayment(h.ctx, h.user.ID, b.ID, "http://localhost:3000/done")
		assert.ErrorIs(t, err, domain.ErrExpired)
	})

	t.Run("Successful callback confirms", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)
		payload, sig := callback(h, b.ID, true)

		got, err := h.svc.HandlePaymentCallback(h.ctx, payload, sig)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, got.Status)

		// A redelivery of the same transaction is acknowledged again.
		got, err = h.svc.HandlePaymentCallback(h.ctx, payload, sig)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, got.Status)

		payments, err := h.store.PaymentRepository.ListByBooking(h.ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 1, "no second deposit")

		// A different transaction for a confirmed booking is still rejected.
		other := []byte(fmt.Sprintf(`{"booking_id":%q,"success":true,"txn_id":"mock-2"}`, b.ID))
		_, err = h.svc.HandlePaymentCallback(h.ctx, other, h.gateway.Sign(other))
		assert.ErrorIs(t, err, domain.ErrState)
	})

	t.Run("Failed callback keeps the booking pending", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)
		payload, sig := callback(h, b.ID, false)

		got, err := h.svc.HandlePaymentCallback(h.ctx, payload, sig)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, got.Status)

		payments, err := h.store.PaymentRepository.ListByBooking(h.ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusFailed, payments[0].Status)
	})

	t.Run("Late callback cancels", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)
		h.clock.Advance(11 * time.Minute)
		payload, sig := callback(h, b.ID, true)

		_, err := h.svc.HandlePaymentCallback(h.ctx, payload, sig)
		assert.ErrorIs(t, err, domain.ErrExpired)
		assert.Equal(t, domain.BookingStatusCancelled, h.status(t, b.ID))
	})

	t.Run("Forged callback", func(t *testing.T) {
		h := newHarness(t, 1)
		b := h.create(t, 10, 12)
		payload, _ := callback(h, b.ID, true)

		_, err := h.svc.HandlePaymentCallback(h.ctx, payload, "forged")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.BookingStatusPending, h.status(t, b.ID))
	})
}

func TestBookingService_ListAndDetails(t *testing.T) {
	h := newHarness(t, 1)
	first := h.active(t, 10, 12)
	h.clock.Advance(time.Minute)
	second := h.create(t, 20, 21)

	list, err := h.svc.ListMyBookings(h.ctx, h.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	details, err := h.svc.GetBookingDetails(h.ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Contract)
	assert.Equal(t, h.vehicles[0].ID, details.Contract.VehicleID)
	assert.Nil(t, details.Return)

	details, err = h.svc.GetBookingDetails(h.ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, details.Contract)
	assert.False(t, details.FullyPaid)

	_, err = h.svc.GetBooking(h.ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
