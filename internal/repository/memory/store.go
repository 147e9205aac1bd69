// Package memory implements every repository on in-process maps. Compound
// operations run under one mutex, which gives them the same all-or-nothing
// behaviour as the Postgres transactions.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/repository"
)

type state struct {
	mu            sync.Mutex
	stations      map[uuid.UUID]domain.Station
	vehicleTypes  map[uuid.UUID]domain.VehicleType
	vehicles      map[uuid.UUID]domain.Vehicle
	bookings      map[uuid.UUID]domain.Booking
	contracts     map[uuid.UUID]domain.Contract // by booking id
	contractOrder []uuid.UUID                   // booking ids, oldest first
	returns       map[uuid.UUID]domain.ReturnTransaction
	payments      []domain.Payment
	users         map[uuid.UUID]domain.User
	documents     []domain.IdentityDocument
	wallet        []domain.WalletTransaction
	notifications []domain.Notification
}

type Store struct {
	repository.StationRepository
	repository.VehicleTypeRepository
	repository.VehicleRepository
	repository.BookingRepository
	repository.PaymentRepository
	repository.UserRepository
	repository.WalletRepository
	repository.NotificationRepository
}

func NewStore() *Store {
	s := &state{
		stations:     make(map[uuid.UUID]domain.Station),
		vehicleTypes: make(map[uuid.UUID]domain.VehicleType),
		vehicles:     make(map[uuid.UUID]domain.Vehicle),
		bookings:     make(map[uuid.UUID]domain.Booking),
		contracts:    make(map[uuid.UUID]domain.Contract),
		returns:      make(map[uuid.UUID]domain.ReturnTransaction),
		users:        make(map[uuid.UUID]domain.User),
	}
	return &Store{
		StationRepository:      &stationRepository{s},
		VehicleTypeRepository:  &vehicleTypeRepository{s},
		VehicleRepository:      &vehicleRepository{s},
		BookingRepository:      &bookingRepository{s},
		PaymentRepository:      &paymentRepository{s},
		UserRepository:         &userRepository{s},
		WalletRepository:       &walletRepository{s},
		NotificationRepository: &notificationRepository{s},
	}
}

func (s *state) openContractForVehicle(vehicleID uuid.UUID) (domain.Contract, bool) {
	for _, c := range s.contracts {
		if c.VehicleID == vehicleID && c.EndedAt == nil {
			return c, true
		}
	}
	return domain.Contract{}, false
}

func (s *state) latestContractForVehicle(vehicleID uuid.UUID) (domain.Contract, bool) {
	for i := len(s.contractOrder) - 1; i >= 0; i-- {
		c := s.contracts[s.contractOrder[i]]
		if c.VehicleID == vehicleID {
			return c, true
		}
	}
	return domain.Contract{}, false
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
