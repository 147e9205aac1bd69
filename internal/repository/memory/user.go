package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"stationrent-backend/internal/domain"
)

type userRepository struct{ s *state }

func (r *userRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return domain.NewConflictError("email already registered")
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user not found")
	}
	return &u, nil
}

func (r *userRepository) AddDocument(_ context.Context, d *domain.IdentityDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.documents = append(r.s.documents, *d)
	return nil
}

func (r *userRepository) ListDocuments(_ context.Context, userID uuid.UUID) ([]domain.IdentityDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.IdentityDocument
	for _, d := range r.s.documents {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type walletRepository struct{ s *state }

func (r *walletRepository) CreateTransaction(_ context.Context, tx *domain.WalletTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.wallet = append(r.s.wallet, *tx)
	return nil
}

func (r *walletRepository) GetBalance(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var balance int64
	for _, tx := range r.s.wallet {
		if tx.UserID == userID {
			balance += tx.Amount
		}
	}
	return balance, nil
}

func (r *walletRepository) ListTransactions(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.WalletTransaction
	for i := len(r.s.wallet) - 1; i >= 0; i-- {
		if r.s.wallet[i].UserID == userID {
			all = append(all, r.s.wallet[i])
		}
	}
	return page(all, limit, offset), len(all), nil
}

type notificationRepository struct{ s *state }

func (r *notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r *notificationRepository) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), len(all), nil
}

func (r *notificationRepository) MarkAsRead(_ context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, n := range r.s.notifications {
		if n.ID == id && n.UserID == userID {
			r.s.notifications[i].IsRead = true
			return nil
		}
	}
	return domain.NewNotFoundError("notification not found or access denied")
}
