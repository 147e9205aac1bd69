package domain

import (
	"time"

	"github.com/google/uuid"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusDamaged     VehicleStatus = "DAMAGED"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
)

// InService reports whether the vehicle can be offered at all. Rented
// vehicles stay in service; whether they are free for a range is decided by
// their contract.
func (s VehicleStatus) InService() bool {
	return s == VehicleStatusAvailable || s == VehicleStatusRented
}

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusRented, VehicleStatusDamaged, VehicleStatusMaintenance:
		return true
	}
	return false
}

// VehicleType is a catalog entry shared by every station.
type VehicleType struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	DepositAmount int64     `json:"deposit_amount" db:"deposit_amount"`
	DailyRate     int64     `json:"daily_rate" db:"daily_rate"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Vehicle struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	StationID      uuid.UUID     `json:"station_id" db:"station_id"`
	VehicleTypeID  uuid.UUID     `json:"vehicle_type_id" db:"vehicle_type_id"`
	LicensePlate   string        `json:"license_plate" db:"license_plate"`
	Status         VehicleStatus `json:"status" db:"status"`
	ConditionNotes string        `json:"condition_notes" db:"condition_notes"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

type Station struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city" db:"city"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VehicleOccupancy is a candidate vehicle together with the booking behind
// its most recent contract, if any. It feeds the availability resolver.
type VehicleOccupancy struct {
	Vehicle       Vehicle
	BookingID     *uuid.UUID
	BookingStatus BookingStatus
	StartDate     time.Time
	EndDate       time.Time
	ReturnedAt    *time.Time
}

// Availability is the answer to a range query at one station.
type Availability struct {
	StationID     uuid.UUID `json:"station_id"`
	VehicleTypeID uuid.UUID `json:"vehicle_type_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Vehicles      []Vehicle `json:"vehicles"`
	Available     int       `json:"available"`
	Total         int       `json:"total"`
}
