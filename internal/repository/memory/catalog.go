package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"stationrent-backend/internal/domain"
)

type stationRepository struct{ s *state }

func (r *stationRepository) Create(_ context.Context, st *domain.Station) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stations[st.ID] = *st
	return nil
}

func (r *stationRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stations[id]
	if !ok {
		return nil, domain.NewNotFoundError("station not found")
	}
	return &st, nil
}

func (r *stationRepository) List(_ context.Context) ([]domain.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Station, 0, len(r.s.stations))
	for _, st := range r.s.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type vehicleTypeRepository struct{ s *state }

func (r *vehicleTypeRepository) nameTaken(name string, except uuid.UUID) bool {
	for _, vt := range r.s.vehicleTypes {
		if vt.Name == name && vt.ID != except {
			return true
		}
	}
	return false
}

func (r *vehicleTypeRepository) Create(_ context.Context, vt *domain.VehicleType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nameTaken(vt.Name, vt.ID) {
		return domain.NewConflictError("vehicle type name already exists")
	}
	r.s.vehicleTypes[vt.ID] = *vt
	return nil
}

func (r *vehicleTypeRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.VehicleType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vt, ok := r.s.vehicleTypes[id]
	if !ok {
		return nil, domain.NewNotFoundError("vehicle type not found")
	}
	return &vt, nil
}

func (r *vehicleTypeRepository) List(_ context.Context) ([]domain.VehicleType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.VehicleType, 0, len(r.s.vehicleTypes))
	for _, vt := range r.s.vehicleTypes {
		out = append(out, vt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *vehicleTypeRepository) Update(_ context.Context, vt *domain.VehicleType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.vehicleTypes[vt.ID]
	if !ok {
		return domain.NewNotFoundError("vehicle type not found")
	}
	if r.nameTaken(vt.Name, vt.ID) {
		return domain.NewConflictError("vehicle type name already exists")
	}
	updated := *vt
	updated.CreatedAt = existing.CreatedAt
	r.s.vehicleTypes[vt.ID] = updated
	return nil
}

func (r *vehicleTypeRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vehicleTypes[id]; !ok {
		return domain.NewNotFoundError("vehicle type not found")
	}
	for _, v := range r.s.vehicles {
		if v.VehicleTypeID == id {
			return domain.NewConflictError("vehicle type is still referenced")
		}
	}
	for _, b := range r.s.bookings {
		if b.VehicleTypeID == id {
			return domain.NewConflictError("vehicle type is still referenced")
		}
	}
	delete(r.s.vehicleTypes, id)
	return nil
}

type vehicleRepository struct{ s *state }

func (r *vehicleRepository) Create(_ context.Context, v *domain.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.vehicles {
		if other.LicensePlate == v.LicensePlate {
			return domain.NewConflictError("license plate already registered")
		}
	}
	r.s.vehicles[v.ID] = *v
	return nil
}

func (r *vehicleRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.NewNotFoundError("vehicle not found")
	}
	return &v, nil
}

func (r *vehicleRepository) ListOccupancy(_ context.Context, stationID, typeID uuid.UUID) ([]domain.VehicleOccupancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.VehicleOccupancy
	for _, v := range r.s.vehicles {
		if v.StationID != stationID || v.VehicleTypeID != typeID {
			continue
		}
		o := domain.VehicleOccupancy{Vehicle: v}
		if c, ok := r.s.latestContractForVehicle(v.ID); ok {
			if b, ok := r.s.bookings[c.BookingID]; ok {
				id := b.ID
				o.BookingID = &id
				o.BookingStatus = b.Status
				o.StartDate = b.StartDate
				o.EndDate = b.EndDate
				if rt, ok := r.s.returns[b.ID]; ok {
					ret := rt.ReturnDate
					o.ReturnedAt = &ret
				}
			}
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Vehicle, out[j].Vehicle
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (r *vehicleRepository) CountAtStation(_ context.Context, stationID, typeID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, v := range r.s.vehicles {
		if v.StationID == stationID && v.VehicleTypeID == typeID {
			n++
		}
	}
	return n, nil
}

func (r *vehicleRepository) SetServiceStatus(_ context.Context, id uuid.UUID, status domain.VehicleStatus, notes string, now time.Time) error {
	if status == domain.VehicleStatusRented {
		return domain.NewValidationError("RENTED is set by fulfillment only")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return domain.NewNotFoundError("vehicle not found")
	}
	if v.Status == domain.VehicleStatusRented {
		return domain.NewConflictError("vehicle is rented")
	}
	v.Status = status
	v.ConditionNotes = notes
	v.UpdatedAt = now
	r.s.vehicles[id] = v
	return nil
}
