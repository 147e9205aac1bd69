package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
)

type vehicleTypeRepository struct {
	db *sqlx.DB
}

func NewVehicleTypeRepository(db *sqlx.DB) repository.VehicleTypeRepository {
	return &vehicleTypeRepository{db: db}
}

const vehicleTypeColumns = `id, name, deposit_amount, daily_rate, created_at, updated_at`

func (r *vehicleTypeRepository) Create(ctx context.Context, vt *domain.VehicleType) error {
	query := `INSERT INTO vehicle_types (` + vehicleTypeColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	logger.DatabaseCall("INSERT", "vehicle_types", "name", vt.Name)
	_, err := r.db.ExecContext(ctx, query, vt.ID, vt.Name, vt.DepositAmount, vt.DailyRate, vt.CreatedAt, vt.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "vehicleTypeID", vt.ID)
	if isUniqueViolation(err, "") {
		return domain.NewConflictError("vehicle type name already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to insert vehicle type: %w", err)
	}
	return nil
}

func (r *vehicleTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleType, error) {
	var vt domain.VehicleType
	query := `SELECT ` + vehicleTypeColumns + ` FROM vehicle_types WHERE id = $1`
	if err := r.db.GetContext(ctx, &vt, query, id); err != nil {
		return nil, notFound(err, "vehicle type")
	}
	return &vt, nil
}

func (r *vehicleTypeRepository) List(ctx context.Context) ([]domain.VehicleType, error) {
	var types []domain.VehicleType
	query := `SELECT ` + vehicleTypeColumns + ` FROM vehicle_types ORDER BY name`
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("failed to list vehicle types: %w", err)
	}
	return types, nil
}

func (r *vehicleTypeRepository) Update(ctx context.Context, vt *domain.VehicleType) error {
	query := `UPDATE vehicle_types SET name = $1, deposit_amount = $2, daily_rate = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, vt.Name, vt.DepositAmount, vt.DailyRate, vt.UpdatedAt, vt.ID)
	if isUniqueViolation(err, "") {
		return domain.NewConflictError("vehicle type name already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to update vehicle type: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError("vehicle type not found")
	}
	return nil
}

// Delete checks references and deletes inside one transaction. The row is
// locked first so a concurrent insert of a referencing vehicle waits on the
// foreign key.
func (r *vehicleTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM vehicle_types WHERE id = $1 FOR UPDATE`, id); err != nil {
		return notFound(err, "vehicle type")
	}

	var refs int
	query := `SELECT (SELECT count(*) FROM vehicles WHERE vehicle_type_id = $1) + (SELECT count(*) FROM bookings WHERE vehicle_type_id = $1)`
	if err := tx.GetContext(ctx, &refs, query, id); err != nil {
		return fmt.Errorf("failed to count vehicle type references: %w", err)
	}
	if refs > 0 {
		return domain.NewConflictError("vehicle type is still referenced")
	}

	// A vehicle or booking inserted after the count still trips the foreign key.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicle_types WHERE id = $1`, id); err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewConflictError("vehicle type is still referenced")
		}
		return fmt.Errorf("failed to delete vehicle type: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewConflictError("vehicle type is still referenced")
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
