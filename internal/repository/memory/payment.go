package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/domain"
)

type paymentRepository struct{ s *state }

func (r *paymentRepository) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.Type == domain.PaymentTypeRefund {
		for _, existing := range r.s.payments {
			if existing.BookingID == p.BookingID && existing.Type == domain.PaymentTypeRefund {
				return domain.NewConflictError("refund already recorded")
			}
		}
	}
	r.s.payments = append(r.s.payments, *p)
	return nil
}

func (r *paymentRepository) ListByBooking(_ context.Context, bookingID uuid.UUID) ([]domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *paymentRepository) UpdateStatus(_ context.Context, id uuid.UUID, status domain.PaymentStatus, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, p := range r.s.payments {
		if p.ID != id {
			continue
		}
		if p.Status != domain.PaymentStatusPending {
			return domain.NewStateError("payment is not pending")
		}
		r.s.payments[i].Status = status
		r.s.payments[i].UpdatedAt = now
		return nil
	}
	return domain.NewNotFoundError("payment not found")
}

func (r *paymentRepository) ListByTypeAndStatus(_ context.Context, t domain.PaymentType, status domain.PaymentStatus) ([]domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.s.payments {
		if p.Type == t && p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}
