package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/repository"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, name, email, phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.Phone, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err, "") {
		return domain.NewConflictError("email already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	query := `SELECT id, name, email, phone, created_at, updated_at FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *userRepository) AddDocument(ctx context.Context, d *domain.IdentityDocument) error {
	query := `INSERT INTO identity_documents (id, user_id, type, number, verified, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, d.ID, d.UserID, d.Type, d.Number, d.Verified, d.ExpiresAt, d.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert identity document: %w", err)
	}
	return nil
}

func (r *userRepository) ListDocuments(ctx context.Context, userID uuid.UUID) ([]domain.IdentityDocument, error) {
	var docs []domain.IdentityDocument
	query := `SELECT id, user_id, type, number, verified, expires_at, created_at FROM identity_documents WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &docs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list identity documents: %w", err)
	}
	return docs, nil
}
