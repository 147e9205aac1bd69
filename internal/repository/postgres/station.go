package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/repository"
)

type stationRepository struct {
	db *sqlx.DB
}

func NewStationRepository(db *sqlx.DB) repository.StationRepository {
	return &stationRepository{db: db}
}

func (r *stationRepository) Create(ctx context.Context, s *domain.Station) error {
	query := `INSERT INTO stations (id, name, city, address, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.City, s.Address, s.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert station: %w", err)
	}
	return nil
}

func (r *stationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Station, error) {
	var s domain.Station
	query := `SELECT id, name, city, address, created_at FROM stations WHERE id = $1`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, notFound(err, "station")
	}
	return &s, nil
}

func (r *stationRepository) List(ctx context.Context) ([]domain.Station, error) {
	var stations []domain.Station
	query := `SELECT id, name, city, address, created_at FROM stations ORDER BY city, name`
	if err := r.db.SelectContext(ctx, &stations, query); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, nil
}
