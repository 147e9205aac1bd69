package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/availability"
	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
	"stationrent-backend/internal/utils"
)

// availabilityService answers range queries. Results are advisory: nothing
// is reserved, Fulfill decides for real.
type availabilityService struct {
	stationRepo repository.StationRepository
	typeRepo    repository.VehicleTypeRepository
	vehicleRepo repository.VehicleRepository
	clock       clock.Clock
	loc         *time.Location
}

func NewAvailabilityService(
	stationRepo repository.StationRepository,
	typeRepo repository.VehicleTypeRepository,
	vehicleRepo repository.VehicleRepository,
	clk clock.Clock,
	loc *time.Location,
) AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &availabilityService{
		stationRepo: stationRepo,
		typeRepo:    typeRepo,
		vehicleRepo: vehicleRepo,
		clock:       clk,
		loc:         loc,
	}
}

func (s *availabilityService) Query(ctx context.Context, stationID, typeID uuid.UUID, startDate, endDate time.Time) (*domain.Availability, error) {
	logger.EnterMethod("availabilityService.Query", "stationID", stationID, "typeID", typeID, "start", startDate, "end", endDate)

	start, end := utils.AsDate(startDate, s.loc), utils.AsDate(endDate, s.loc)
	if !start.Before(end) {
		err := domain.NewValidationError("start date must be before end date")
		logger.ExitMethodWithError("availabilityService.Query", err)
		return nil, err
	}
	if err := s.checkScope(ctx, stationID, typeID); err != nil {
		logger.ExitMethodWithError("availabilityService.Query", err)
		return nil, err
	}

	occupancy, err := s.vehicleRepo.ListOccupancy(ctx, stationID, typeID)
	if err != nil {
		logger.ExitMethodWithError("availabilityService.Query", err)
		return nil, fmt.Errorf("failed to load vehicles: %w", err)
	}
	for i := range occupancy {
		s.normalise(&occupancy[i])
	}

	free := availability.Free(occupancy, start, end, s.clock.Now())
	result := &domain.Availability{
		StationID:     stationID,
		VehicleTypeID: typeID,
		StartDate:     start,
		EndDate:       end,
		Vehicles:      free,
		Available:     len(free),
		Total:         len(occupancy),
	}

	logger.ExitMethod("availabilityService.Query", "available", result.Available, "total", result.Total)
	return result, nil
}

func (s *availabilityService) CountAvailable(ctx context.Context, stationID, typeID uuid.UUID, startDate, endDate time.Time) (int, error) {
	res, err := s.Query(ctx, stationID, typeID, startDate, endDate)
	if err != nil {
		return 0, err
	}
	return res.Available, nil
}

func (s *availabilityService) TotalAtStation(ctx context.Context, stationID, typeID uuid.UUID) (int, error) {
	if err := s.checkScope(ctx, stationID, typeID); err != nil {
		return 0, err
	}
	return s.vehicleRepo.CountAtStation(ctx, stationID, typeID)
}

func (s *availabilityService) checkScope(ctx context.Context, stationID, typeID uuid.UUID) error {
	if _, err := s.stationRepo.GetByID(ctx, stationID); err != nil {
		return err
	}
	if _, err := s.typeRepo.GetByID(ctx, typeID); err != nil {
		return err
	}
	return nil
}

// normalise re-anchors DATE values in the business time zone.
func (s *availabilityService) normalise(o *domain.VehicleOccupancy) {
	if o.BookingID == nil {
		return
	}
	o.StartDate = utils.AsDate(o.StartDate, s.loc)
	o.EndDate = utils.AsDate(o.EndDate, s.loc)
	if o.ReturnedAt != nil {
		r := utils.AsDate(*o.ReturnedAt, s.loc)
		o.ReturnedAt = &r
	}
}
