package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/domain"
)

type bookingRepository struct{ s *state }

func (r *bookingRepository) Create(_ context.Context, b *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking not found")
	}
	return &b, nil
}

func (r *bookingRepository) filter(keep func(domain.Booking) bool, less func(a, b domain.Booking) bool) []domain.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r *bookingRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return r.filter(
		func(b domain.Booking) bool { return b.UserID == userID },
		func(a, b domain.Booking) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}

func (r *bookingRepository) ListExpiredPending(_ context.Context, now time.Time) ([]domain.Booking, error) {
	return r.filter(
		func(b domain.Booking) bool {
			return b.Status == domain.BookingStatusPending && b.PaymentExpiryTime.Before(now)
		},
		func(a, b domain.Booking) bool { return a.PaymentExpiryTime.Before(b.PaymentExpiryTime) },
	), nil
}

func (r *bookingRepository) ListActiveEndedBefore(_ context.Context, date time.Time) ([]domain.Booking, error) {
	return r.filter(
		func(b domain.Booking) bool { return b.Status == domain.BookingStatusActive && b.EndDate.Before(date) },
		func(a, b domain.Booking) bool { return a.EndDate.Before(b.EndDate) },
	), nil
}

func (r *bookingRepository) ConfirmDeposit(_ context.Context, bookingID uuid.UUID, p *domain.Payment, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[bookingID]
	if !ok || b.Status != domain.BookingStatusPending || now.After(b.PaymentExpiryTime) {
		return false, nil
	}
	b.Status = domain.BookingStatusConfirmed
	b.UpdatedAt = now
	r.s.bookings[bookingID] = b
	r.s.payments = append(r.s.payments, *p)
	return true, nil
}

func (r *bookingRepository) CancelIfExpired(_ context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[bookingID]
	if !ok || b.Status != domain.BookingStatusPending || !b.PaymentExpiryTime.Before(now) {
		return false, nil
	}
	b.Status = domain.BookingStatusCancelled
	b.UpdatedAt = now
	r.s.bookings[bookingID] = b
	return true, nil
}

func (r *bookingRepository) Activate(_ context.Context, c *domain.Contract, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.vehicles[c.VehicleID]
	if !ok || v.Status != domain.VehicleStatusAvailable {
		return domain.NewConflictError(domain.ReasonVehicleUnavailable)
	}
	if _, open := r.s.openContractForVehicle(c.VehicleID); open {
		return domain.NewConflictError(domain.ReasonContractExists)
	}
	if _, exists := r.s.contracts[c.BookingID]; exists {
		return domain.NewStateError("booking already has a contract")
	}
	b, ok := r.s.bookings[c.BookingID]
	if !ok || b.Status != domain.BookingStatusConfirmed {
		return domain.NewStateError("booking is no longer CONFIRMED")
	}

	v.Status = domain.VehicleStatusRented
	v.UpdatedAt = now
	r.s.vehicles[v.ID] = v
	r.s.contracts[c.BookingID] = *c
	r.s.contractOrder = append(r.s.contractOrder, c.BookingID)
	b.Status = domain.BookingStatusActive
	b.UpdatedAt = now
	r.s.bookings[b.ID] = b
	return nil
}

func (r *bookingRepository) Complete(_ context.Context, rt *domain.ReturnTransaction, vehicleStatus domain.VehicleStatus, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[rt.BookingID]
	if !ok || b.Status != domain.BookingStatusActive {
		return domain.NewStateError("booking is no longer ACTIVE")
	}
	if _, exists := r.s.returns[rt.BookingID]; exists {
		return domain.NewStateError("booking already has a return")
	}
	if err := r.releaseLocked(rt.BookingID, vehicleStatus, rt.ConditionNotes, now); err != nil {
		return err
	}
	b.Status = domain.BookingStatusCompleted
	b.UpdatedAt = now
	r.s.bookings[b.ID] = b
	r.s.returns[rt.BookingID] = *rt
	return nil
}

func (r *bookingRepository) AdminCancel(_ context.Context, bookingID uuid.UUID, now time.Time) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[bookingID]
	if !ok {
		return nil, domain.NewNotFoundError("booking not found")
	}
	if b.Status != domain.BookingStatusConfirmed && b.Status != domain.BookingStatusActive {
		return nil, domain.NewStateError("cannot cancel a %s booking", b.Status)
	}
	if b.Status == domain.BookingStatusActive {
		if err := r.releaseLocked(bookingID, domain.VehicleStatusAvailable, "", now); err != nil {
			return nil, err
		}
	}
	b.Status = domain.BookingStatusCancelled
	b.UpdatedAt = now
	r.s.bookings[bookingID] = b
	return &b, nil
}

// releaseLocked must be called with the state mutex held.
func (r *bookingRepository) releaseLocked(bookingID uuid.UUID, status domain.VehicleStatus, notes string, now time.Time) error {
	c, ok := r.s.contracts[bookingID]
	if !ok || c.EndedAt != nil {
		return domain.NewNotFoundError("open contract not found")
	}
	ended := now
	c.EndedAt = &ended
	r.s.contracts[bookingID] = c

	if v, ok := r.s.vehicles[c.VehicleID]; ok && v.Status == domain.VehicleStatusRented {
		v.Status = status
		v.UpdatedAt = now
		if notes != "" {
			v.ConditionNotes = notes
		}
		r.s.vehicles[v.ID] = v
	}
	return nil
}

func (r *bookingRepository) GetContract(_ context.Context, bookingID uuid.UUID) (*domain.Contract, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contracts[bookingID]
	if !ok {
		return nil, domain.NewNotFoundError("contract not found")
	}
	return &c, nil
}

func (r *bookingRepository) GetReturn(_ context.Context, bookingID uuid.UUID) (*domain.ReturnTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.returns[bookingID]
	if !ok {
		return nil, domain.NewNotFoundError("return transaction not found")
	}
	return &rt, nil
}

func (r *bookingRepository) SetRefundStatus(_ context.Context, bookingID uuid.UUID, status domain.RefundStatus, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.returns[bookingID]
	if !ok {
		return domain.NewNotFoundError("return transaction not found")
	}
	rt.RefundStatus = status
	rt.UpdatedAt = now
	r.s.returns[bookingID] = rt
	return nil
}

func (r *bookingRepository) ListUnsettledRefunds(_ context.Context, stalledBefore time.Time) ([]domain.ReturnTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ReturnTransaction
	for _, rt := range r.s.returns {
		switch {
		case rt.RefundStatus == domain.RefundStatusFailed:
		case rt.RefundStatus == domain.RefundStatusPending && rt.UpdatedAt.Before(stalledBefore):
		default:
			continue
		}
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}
