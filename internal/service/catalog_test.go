package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/repository/memory"
)

func TestCatalogService_VehicleTypes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewCatalogService(store.StationRepository, store.VehicleTypeRepository, store.VehicleRepository, clock.NewManual(t0))

	vt, err := svc.CreateVehicleType(ctx, "  Honda Vision ", 1_000_000, 100_000)
	require.NoError(t, err)
	assert.Equal(t, "Honda Vision", vt.Name)

	_, err = svc.CreateVehicleType(ctx, "Honda Vision", 1, 1)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.CreateVehicleType(ctx, "", 1, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.CreateVehicleType(ctx, "Wave", -1, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := svc.UpdateVehicleType(ctx, vt.ID, "Honda Vision 2025", 1_200_000, 120_000)
	require.NoError(t, err)
	assert.Equal(t, int64(120_000), updated.DailyRate)

	_, err = svc.UpdateVehicleType(ctx, uuid.New(), "Ghost", 1, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	types, err := svc.ListVehicleTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Honda Vision 2025", types[0].Name)

	require.NoError(t, svc.DeleteVehicleType(ctx, vt.ID))
	_, err = store.VehicleTypeRepository.GetByID(ctx, vt.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_SetVehicleStatus(t *testing.T) {
	h := newHarness(t, 1)
	svc := NewCatalogService(h.store.StationRepository, h.store.VehicleTypeRepository, h.store.VehicleRepository, h.clock)

	v, err := svc.SetVehicleStatus(h.ctx, h.vehicles[0].ID, domain.VehicleStatusMaintenance, "oil change")
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusMaintenance, v.Status)
	assert.Equal(t, "oil change", v.ConditionNotes)

	_, err = svc.SetVehicleStatus(h.ctx, h.vehicles[0].ID, "BROKEN", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SetVehicleStatus(h.ctx, h.vehicles[0].ID, domain.VehicleStatusAvailable, "")
	require.NoError(t, err)

	// Rented vehicles are owned by fulfillment and return.
	h.active(t, 10, 12)
	_, err = svc.SetVehicleStatus(h.ctx, h.vehicles[0].ID, domain.VehicleStatusMaintenance, "")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.SetVehicleStatus(h.ctx, h.vehicles[0].ID, domain.VehicleStatusRented, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	stations, err := svc.ListStations(h.ctx)
	require.NoError(t, err)
	assert.Len(t, stations, 1)
}

func TestWalletService_Paging(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clk := clock.NewManual(t0)
	wallet := NewWallet(store.WalletRepository, clk)
	svc := NewWalletService(store.WalletRepository, clk)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, wallet.Credit(ctx, userID, 100_000, uuid.New(), "refund"))
	}
	assert.ErrorIs(t, wallet.Credit(ctx, userID, 0, uuid.New(), "noop"), domain.ErrValidation)

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), balance)

	txs, total, err := svc.GetTransactions(ctx, userID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, txs, 1)
}
