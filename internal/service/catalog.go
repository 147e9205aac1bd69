package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
)

type catalogService struct {
	stationRepo repository.StationRepository
	typeRepo    repository.VehicleTypeRepository
	vehicleRepo repository.VehicleRepository
	clock       clock.Clock
}

func NewCatalogService(
	stationRepo repository.StationRepository,
	typeRepo repository.VehicleTypeRepository,
	vehicleRepo repository.VehicleRepository,
	clk clock.Clock,
) CatalogService {
	return &catalogService{
		stationRepo: stationRepo,
		typeRepo:    typeRepo,
		vehicleRepo: vehicleRepo,
		clock:       clk,
	}
}

func (s *catalogService) ListStations(ctx context.Context) ([]domain.Station, error) {
	return s.stationRepo.List(ctx)
}

func (s *catalogService) GetStation(ctx context.Context, id uuid.UUID) (*domain.Station, error) {
	return s.stationRepo.GetByID(ctx, id)
}

func (s *catalogService) ListVehicleTypes(ctx context.Context) ([]domain.VehicleType, error) {
	return s.typeRepo.List(ctx)
}

func (s *catalogService) CreateVehicleType(ctx context.Context, name string, deposit, dailyRate int64) (*domain.VehicleType, error) {
	logger.EnterMethod("catalogService.CreateVehicleType", "name", name, "deposit", deposit, "dailyRate", dailyRate)
	name = strings.TrimSpace(name)
	if err := validateVehicleType(name, deposit, dailyRate); err != nil {
		logger.ExitMethodWithError("catalogService.CreateVehicleType", err)
		return nil, err
	}

	now := s.clock.Now()
	vt := &domain.VehicleType{
		ID:            uuid.New(),
		Name:          name,
		DepositAmount: deposit,
		DailyRate:     dailyRate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.typeRepo.Create(ctx, vt); err != nil {
		logger.ExitMethodWithError("catalogService.CreateVehicleType", err, "name", name)
		return nil, err
	}

	logger.ExitMethod("catalogService.CreateVehicleType", "typeID", vt.ID)
	return vt, nil
}

// UpdateVehicleType changes catalog prices. Existing bookings keep the
// prices they were created with.
func (s *catalogService) UpdateVehicleType(ctx context.Context, id uuid.UUID, name string, deposit, dailyRate int64) (*domain.VehicleType, error) {
	logger.EnterMethod("catalogService.UpdateVehicleType", "typeID", id)
	name = strings.TrimSpace(name)
	if err := validateVehicleType(name, deposit, dailyRate); err != nil {
		logger.ExitMethodWithError("catalogService.UpdateVehicleType", err)
		return nil, err
	}

	vt, err := s.typeRepo.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("catalogService.UpdateVehicleType", err, "typeID", id)
		return nil, err
	}
	vt.Name = name
	vt.DepositAmount = deposit
	vt.DailyRate = dailyRate
	vt.UpdatedAt = s.clock.Now()
	if err := s.typeRepo.Update(ctx, vt); err != nil {
		logger.ExitMethodWithError("catalogService.UpdateVehicleType", err, "typeID", id)
		return nil, err
	}

	logger.ExitMethod("catalogService.UpdateVehicleType", "typeID", id)
	return vt, nil
}

func (s *catalogService) DeleteVehicleType(ctx context.Context, id uuid.UUID) error {
	logger.EnterMethod("catalogService.DeleteVehicleType", "typeID", id)
	if err := s.typeRepo.Delete(ctx, id); err != nil {
		logger.ExitMethodWithError("catalogService.DeleteVehicleType", err, "typeID", id)
		return err
	}
	logger.ExitMethod("catalogService.DeleteVehicleType", "typeID", id)
	return nil
}

// SetVehicleStatus lets fleet staff take a vehicle out of the pool or bring
// it back. RENTED is owned by fulfillment and return processing.
func (s *catalogService) SetVehicleStatus(ctx context.Context, vehicleID uuid.UUID, status domain.VehicleStatus, notes string) (*domain.Vehicle, error) {
	logger.EnterMethod("catalogService.SetVehicleStatus", "vehicleID", vehicleID, "status", status)
	if !status.Valid() {
		err := domain.NewValidationError("unknown vehicle status %q", status)
		logger.ExitMethodWithError("catalogService.SetVehicleStatus", err)
		return nil, err
	}
	if err := s.vehicleRepo.SetServiceStatus(ctx, vehicleID, status, notes, s.clock.Now()); err != nil {
		logger.ExitMethodWithError("catalogService.SetVehicleStatus", err, "vehicleID", vehicleID)
		return nil, err
	}
	v, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	logger.ExitMethod("catalogService.SetVehicleStatus", "vehicleID", vehicleID, "status", v.Status)
	return v, nil
}

func validateVehicleType(name string, deposit, dailyRate int64) error {
	if name == "" {
		return domain.NewValidationError("name is required")
	}
	if deposit < 0 || dailyRate < 0 {
		return domain.NewValidationError("prices must not be negative")
	}
	return nil
}
