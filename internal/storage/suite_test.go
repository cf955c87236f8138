package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"freight-service/internal/profitability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStorageSuite exercises the behaviour every backend must share
func runStorageSuite(t *testing.T, trucks TruckStorage, loads LoadStorage, fuel FuelStorage) {
	ctx := context.Background()
	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	t.Run("truck lifecycle", func(t *testing.T) {
		truck := &Truck{
			ID:                  "truck-1",
			Name:                "Big Blue",
			UnitNumber:          "101",
			FixedCostsWeekly:    1200,
			VariableCostsWeekly: 1800,
			BaselineWeeklyMiles: 3000,
			MilesPerGallon:      6.8,
		}
		require.NoError(t, trucks.CreateTruck(ctx, truck))
		assert.ErrorIs(t, trucks.CreateTruck(ctx, truck), ErrAlreadyExists)

		got, err := trucks.GetTruck(ctx, "truck-1")
		require.NoError(t, err)
		assert.Equal(t, "Big Blue", got.Name)
		assert.Equal(t, 3000.0, got.BaselineWeeklyMiles)
		assert.Equal(t, 6.8, got.MilesPerGallon)

		got.FixedCostsWeekly = 1500
		require.NoError(t, trucks.UpdateTruck(ctx, got))

		updated, err := trucks.GetTruck(ctx, "truck-1")
		require.NoError(t, err)
		assert.Equal(t, 1500.0, updated.FixedCostsWeekly)

		all, err := trucks.GetAllTrucks(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		require.NoError(t, trucks.DeleteTruck(ctx, "truck-1"))
		_, err = trucks.GetTruck(ctx, "truck-1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, trucks.DeleteTruck(ctx, "truck-1"), ErrNotFound)
		assert.ErrorIs(t, trucks.UpdateTruck(ctx, &Truck{ID: "truck-1"}), ErrNotFound)
	})

	t.Run("load queries", func(t *testing.T) {
		first := &Load{
			ID:          "load-1",
			TruckID:     "truck-7",
			Origin:      "Dallas, TX",
			Destination: "Memphis, TN",
			Pay:         1100,
			Miles:       500,
			TotalMiles:  500,
			Status:      LoadStatusBooked,
			Calculation: &profitability.Result{CostPerMile: 1, LoadRevenuePerMile: 2.2, Profit: 600, IsProfitable: true},
			CreatedAt:   base,
		}
		second := &Load{
			ID:            "load-2",
			TruckID:       "truck-7",
			Origin:        "Memphis, TN",
			Destination:   "Atlanta, GA",
			Pay:           900,
			Miles:         390,
			DeadheadMiles: 12,
			TotalMiles:    402,
			Status:        LoadStatusInTransit,
			CreatedAt:     base.Add(time.Hour),
		}
		other := &Load{
			ID:        "load-3",
			TruckID:   "truck-8",
			Pay:       500,
			Miles:     250,
			Status:    LoadStatusBooked,
			CreatedAt: base.Add(30 * time.Minute),
		}

		// inserted out of order on purpose
		require.NoError(t, loads.CreateLoad(ctx, second))
		require.NoError(t, loads.CreateLoad(ctx, first))
		require.NoError(t, loads.CreateLoad(ctx, other))
		assert.ErrorIs(t, loads.CreateLoad(ctx, first), ErrAlreadyExists)

		got, err := loads.GetLoad(ctx, "load-1")
		require.NoError(t, err)
		require.NotNil(t, got.Calculation)
		assert.Equal(t, 600.0, got.Calculation.Profit)
		assert.True(t, got.Calculation.IsProfitable)

		byTruck, err := loads.GetLoadsByTruck(ctx, "truck-7")
		require.NoError(t, err)
		require.Len(t, byTruck, 2)
		assert.Equal(t, "load-1", byTruck[0].ID)
		assert.Equal(t, "load-2", byTruck[1].ID)

		booked, err := loads.GetLoadsByStatus(ctx, LoadStatusBooked)
		require.NoError(t, err)
		assert.Len(t, booked, 2)

		all, err := loads.GetAllLoads(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "load-3", all[1].ID)

		none, err := loads.GetLoadsByTruck(ctx, "truck-missing")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("load status", func(t *testing.T) {
		require.NoError(t, loads.UpdateLoadStatus(ctx, "load-2", LoadStatusDelivered))

		got, err := loads.GetLoad(ctx, "load-2")
		require.NoError(t, err)
		assert.Equal(t, LoadStatusDelivered, got.Status)
		assert.NotNil(t, got.DeliveredAt)

		err = loads.UpdateLoadStatus(ctx, "load-missing", LoadStatusCancelled)
		assert.True(t, errors.Is(err, ErrNotFound), "expected not found, got %v", err)
	})

	t.Run("load update", func(t *testing.T) {
		got, err := loads.GetLoad(ctx, "load-3")
		require.NoError(t, err)

		got.Pay = 650
		got.Calculation = &profitability.Result{Profit: 400, IsProfitable: true}
		require.NoError(t, loads.UpdateLoad(ctx, got))

		updated, err := loads.GetLoad(ctx, "load-3")
		require.NoError(t, err)
		assert.Equal(t, 650.0, updated.Pay)
		require.NotNil(t, updated.Calculation)
		assert.Equal(t, 400.0, updated.Calculation.Profit)

		assert.ErrorIs(t, loads.UpdateLoad(ctx, &Load{ID: "load-missing"}), ErrNotFound)
	})

	t.Run("fuel purchases", func(t *testing.T) {
		later := &FuelPurchase{ID: "fuel-2", TruckID: "truck-7", Gallons: 110, PricePerGallon: 3.9, TotalCost: 429, Odometer: 100700, PurchasedAt: base.Add(48 * time.Hour)}
		earlier := &FuelPurchase{ID: "fuel-1", TruckID: "truck-7", Gallons: 120, PricePerGallon: 3.8, TotalCost: 456, Odometer: 100000, PurchasedAt: base}

		require.NoError(t, fuel.CreateFuelPurchase(ctx, later))
		require.NoError(t, fuel.CreateFuelPurchase(ctx, earlier))
		assert.ErrorIs(t, fuel.CreateFuelPurchase(ctx, earlier), ErrAlreadyExists)

		purchases, err := fuel.GetFuelPurchasesByTruck(ctx, "truck-7")
		require.NoError(t, err)
		require.Len(t, purchases, 2)
		assert.Equal(t, "fuel-1", purchases[0].ID)
		assert.Equal(t, 100700.0, purchases[1].Odometer)

		none, err := fuel.GetFuelPurchasesByTruck(ctx, "truck-8")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
