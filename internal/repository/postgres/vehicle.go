package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
)

type vehicleRepository struct {
	db *sqlx.DB
}

func NewVehicleRepository(db *sqlx.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleColumns = `id, station_id, vehicle_type_id, license_plate, status, condition_notes, created_at, updated_at`

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (` + vehicleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, v.ID, v.StationID, v.VehicleTypeID, v.LicensePlate, v.Status, v.ConditionNotes, v.CreatedAt, v.UpdatedAt)
	if isUniqueViolation(err, "") {
		return domain.NewConflictError("license plate already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	var v domain.Vehicle
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		return nil, notFound(err, "vehicle")
	}
	return &v, nil
}

type occupancyRow struct {
	domain.Vehicle
	BookingID     uuid.NullUUID  `db:"booking_id"`
	BookingStatus sql.NullString `db:"booking_status"`
	StartDate     sql.NullTime   `db:"start_date"`
	EndDate       sql.NullTime   `db:"end_date"`
	ReturnDate    sql.NullTime   `db:"return_date"`
}

const occupancyQuery = `
SELECT v.id, v.station_id, v.vehicle_type_id, v.license_plate, v.status, v.condition_notes, v.created_at, v.updated_at,
       b.id AS booking_id, b.status AS booking_status, b.start_date, b.end_date, rt.return_date
FROM vehicles v
LEFT JOIN LATERAL (
    SELECT c.booking_id FROM contracts c
    WHERE c.vehicle_id = v.id
    ORDER BY c.created_at DESC
    LIMIT 1
) lc ON TRUE
LEFT JOIN bookings b ON b.id = lc.booking_id
LEFT JOIN return_transactions rt ON rt.booking_id = b.id
WHERE v.station_id = $1 AND v.vehicle_type_id = $2
ORDER BY v.created_at, v.id`

func (r *vehicleRepository) ListOccupancy(ctx context.Context, stationID, typeID uuid.UUID) ([]domain.VehicleOccupancy, error) {
	logger.DatabaseCall("SELECT", "vehicles+contracts", "stationID", stationID, "typeID", typeID)
	var rows []occupancyRow
	err := r.db.SelectContext(ctx, &rows, occupancyQuery, stationID, typeID)
	logger.DatabaseResult("SELECT", int64(len(rows)), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicle occupancy: %w", err)
	}

	out := make([]domain.VehicleOccupancy, 0, len(rows))
	for _, row := range rows {
		o := domain.VehicleOccupancy{Vehicle: row.Vehicle}
		if row.BookingID.Valid {
			id := row.BookingID.UUID
			o.BookingID = &id
			o.BookingStatus = domain.BookingStatus(row.BookingStatus.String)
			o.StartDate = row.StartDate.Time
			o.EndDate = row.EndDate.Time
		}
		if row.ReturnDate.Valid {
			ret := row.ReturnDate.Time
			o.ReturnedAt = &ret
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *vehicleRepository) CountAtStation(ctx context.Context, stationID, typeID uuid.UUID) (int, error) {
	var n int
	query := `SELECT count(*) FROM vehicles WHERE station_id = $1 AND vehicle_type_id = $2`
	if err := r.db.GetContext(ctx, &n, query, stationID, typeID); err != nil {
		return 0, fmt.Errorf("failed to count vehicles: %w", err)
	}
	return n, nil
}

func (r *vehicleRepository) SetServiceStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus, notes string, now time.Time) error {
	if status == domain.VehicleStatusRented {
		return domain.NewValidationError("RENTED is set by fulfillment only")
	}
	query := `UPDATE vehicles SET status = $1, condition_notes = $2, updated_at = $3 WHERE id = $4 AND status <> 'RENTED'`
	res, err := r.db.ExecContext(ctx, query, status, notes, now, id)
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.NewConflictError("vehicle is rented")
	}
	return nil
}
