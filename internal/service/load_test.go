package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"freight-service/internal/cache"
	"freight-service/internal/metrics"
	"freight-service/internal/profitability"
	"freight-service/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher records load events
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) StreamLoadEvent(ctx context.Context, eventType string, load *storage.Load) {
	m.Called(ctx, eventType, load)
}

// MockEstimator returns fixed distances keyed by origin and destination
type MockEstimator struct {
	miles map[string]float64
	calls int
}

func NewMockEstimator() *MockEstimator {
	return &MockEstimator{miles: make(map[string]float64)}
}

func (m *MockEstimator) Add(origin, destination string, miles float64) {
	m.miles[origin+"|"+destination] = miles
}

func (m *MockEstimator) EstimateMiles(ctx context.Context, origin, destination string) (float64, error) {
	m.calls++
	miles, ok := m.miles[origin+"|"+destination]
	if !ok {
		return 0, errors.New("route not found")
	}
	return miles, nil
}

type loadTestEnv struct {
	trucks *TruckService
	loads  *LoadService
	truck  *storage.Truck
	store  storage.LoadStorage
}

func newLoadTestEnv(t *testing.T) *loadTestEnv {
	t.Helper()
	truckStorage := storage.NewMemoryTruckStorage()
	loadStorage := storage.NewMemoryLoadStorage()
	trucks := NewTruckService(truckStorage, loadStorage)
	return &loadTestEnv{
		trucks: trucks,
		loads:  NewLoadService(loadStorage, truckStorage),
		truck:  newTestTruck(t, trucks),
		store:  loadStorage,
	}
}

func (e *loadTestEnv) book(t *testing.T, req CreateLoadRequest) *storage.Load {
	t.Helper()
	if req.TruckID == "" {
		req.TruckID = e.truck.ID
	}
	load, err := e.loads.CreateLoad(context.Background(), req)
	require.NoError(t, err)
	return load
}

func zero() *float64 {
	v := 0.0
	return &v
}

func TestLoadService_Calculate(t *testing.T) {
	env := newLoadTestEnv(t)

	result, err := env.loads.Calculate(context.Background(), CalculateRequest{
		FixedCostsWeekly:    1200,
		VariableCostsWeekly: 1800,
		BaselineWeeklyMiles: 3000,
		Pay:                 1100,
		Miles:               500,
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, result.CostPerMile)
	assert.Equal(t, 2.2, result.LoadRevenuePerMile)
	assert.Equal(t, 600.0, result.Profit)
	assert.True(t, result.IsProfitable)
}

func TestLoadService_Calculate_FillsCostsFromTruck(t *testing.T) {
	env := newLoadTestEnv(t)

	result, err := env.loads.Calculate(context.Background(), CalculateRequest{
		TruckID: env.truck.ID,
		Pay:     1100,
		Miles:   500,
	})

	require.NoError(t, err)
	assert.Equal(t, 600.0, result.Profit)
}

func TestLoadService_Calculate_MissingInput(t *testing.T) {
	env := newLoadTestEnv(t)
	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	env.loads.SetMetrics(collector)

	_, err = env.loads.Calculate(context.Background(), CalculateRequest{Pay: 1100, Miles: 500})

	var missing *profitability.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{
		profitability.FieldFixedCostsWeekly,
		profitability.FieldVariableCostsWeekly,
		profitability.FieldBaselineWeeklyMiles,
	}, missing.Fields)

	count, err := testutil.GatherAndCount(collector.Registry(), "freight_profitability_calculations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoadService_Calculate_UsesCache(t *testing.T) {
	env := newLoadTestEnv(t)
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisCache(mr.Addr(), "", 0, 0)
	defer redisCache.Close()
	env.loads.SetCache(redisCache)
	ctx := context.Background()

	req := CalculateRequest{FixedCostsWeekly: 1200, VariableCostsWeekly: 1800, BaselineWeeklyMiles: 3000, Pay: 1100, Miles: 500}

	first, err := env.loads.Calculate(ctx, req)
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)

	// A seeded entry proves the second call is served from the cache
	key := cache.Key(
		profitability.CostInputs{FixedCostsWeekly: 1200, VariableCostsWeekly: 1800, BaselineWeeklyMiles: 3000},
		profitability.LoadInputs{Pay: 1100, Miles: 500},
		nil,
	)
	require.NoError(t, redisCache.Set(ctx, key, profitability.Result{Profit: 42}))

	second, err := env.loads.Calculate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 600.0, first.Profit)
	assert.Equal(t, 42.0, second.Profit)
}

func TestLoadService_Calculate_CacheDownFallsThrough(t *testing.T) {
	env := newLoadTestEnv(t)
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisCache(mr.Addr(), "", 0, 0)
	defer redisCache.Close()
	env.loads.SetCache(redisCache)
	mr.Close()

	result, err := env.loads.Calculate(context.Background(), CalculateRequest{TruckID: env.truck.ID, Pay: 1100, Miles: 500})

	require.NoError(t, err)
	assert.Equal(t, 600.0, result.Profit)
}

func TestLoadService_CreateLoad(t *testing.T) {
	env := newLoadTestEnv(t)
	publisher := new(MockPublisher)
	publisher.On("StreamLoadEvent", mock.Anything, EventCreated, mock.AnythingOfType("*storage.Load")).Return()
	env.loads.SetPublisher(publisher)

	load := env.book(t, CreateLoadRequest{
		Origin:      "Dallas, TX",
		Destination: "Memphis, TN",
		Pay:         1100,
		Miles:       500,
	})

	assert.NotEmpty(t, load.ID)
	assert.Equal(t, storage.LoadStatusBooked, load.Status)
	assert.Equal(t, 0.0, load.DeadheadMiles)
	assert.Equal(t, 500.0, load.TotalMiles)
	require.NotNil(t, load.Calculation)
	assert.Equal(t, 600.0, load.Calculation.Profit)
	assert.True(t, load.Calculation.IsProfitable)

	stored, err := env.loads.GetLoad(context.Background(), load.ID)
	require.NoError(t, err)
	assert.Equal(t, load.Calculation, stored.Calculation)
	publisher.AssertExpectations(t)
}

func TestLoadService_CreateLoad_FuelFromTruckAndRequest(t *testing.T) {
	env := newLoadTestEnv(t)
	mpg := 7.2
	_, err := env.trucks.UpdateTruckCosts(context.Background(), env.truck.ID, TruckCostsUpdate{MilesPerGallon: &mpg})
	require.NoError(t, err)

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500, FuelPricePerGallon: 3.75})

	assert.Equal(t, 7.2, load.MilesPerGallon)
	assert.Equal(t, 260.42, load.Calculation.FuelCostForLoad)
	assert.Equal(t, 69.4, load.Calculation.EstimatedGallons)
	assert.Equal(t, profitability.EfficiencyGood, load.Calculation.FuelEfficiency)
}

func TestLoadService_CreateLoad_NoFuelPriceIsNeverDefaulted(t *testing.T) {
	env := newLoadTestEnv(t)
	mpg := 7.2
	_, err := env.trucks.UpdateTruckCosts(context.Background(), env.truck.ID, TruckCostsUpdate{MilesPerGallon: &mpg})
	require.NoError(t, err)

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})

	assert.Equal(t, 0.0, load.Calculation.FuelCostForLoad)
	assert.Equal(t, 0.0, load.Calculation.EstimatedGallons)
	assert.Equal(t, profitability.FallbackMilesPerGallon, load.Calculation.MilesPerGallon)
	assert.Equal(t, 600.0, load.Calculation.Profit)
}

func TestLoadService_CreateLoad_RejectsUncalculableLoad(t *testing.T) {
	env := newLoadTestEnv(t)
	publisher := new(MockPublisher)
	env.loads.SetPublisher(publisher)

	_, err := env.loads.CreateLoad(context.Background(), CreateLoadRequest{TruckID: env.truck.ID, Pay: 1100, Miles: 0})

	var missing *profitability.MissingInputError
	require.ErrorAs(t, err, &missing)
	var invalid *profitability.InvalidRangeError
	assert.ErrorAs(t, err, &invalid)

	loads, err := env.loads.GetAllLoads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loads)
	publisher.AssertNotCalled(t, "StreamLoadEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoadService_CreateLoad_TruckWithoutCosts(t *testing.T) {
	env := newLoadTestEnv(t)
	bare, err := env.trucks.RegisterTruck(context.Background(), RegisterTruckRequest{Name: "Bare"})
	require.NoError(t, err)

	_, err = env.loads.CreateLoad(context.Background(), CreateLoadRequest{TruckID: bare.ID, Pay: 1100, Miles: 500})

	var missing *profitability.MissingInputError
	assert.ErrorAs(t, err, &missing)
}

func TestLoadService_CreateLoad_Validation(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	_, err := env.loads.CreateLoad(ctx, CreateLoadRequest{Pay: 1100, Miles: 500})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "truck_id", validation.Field)

	negative := -3.0
	_, err = env.loads.CreateLoad(ctx, CreateLoadRequest{TruckID: env.truck.ID, Pay: 1100, Miles: 500, DeadheadMiles: &negative})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "deadhead_miles", validation.Field)

	_, err = env.loads.CreateLoad(ctx, CreateLoadRequest{TruckID: "missing", Pay: 1100, Miles: 500})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadService_CreateLoad_EstimatesDeadhead(t *testing.T) {
	env := newLoadTestEnv(t)
	estimator := NewMockEstimator()
	estimator.Add("Memphis, TN", "Little Rock, AR", 137)
	env.loads.SetEstimator(estimator)

	// First load has no previous drop-off
	first := env.book(t, CreateLoadRequest{Origin: "Dallas, TX", Destination: "Memphis, TN", Pay: 1100, Miles: 500})
	assert.Equal(t, 0.0, first.DeadheadMiles)
	assert.Equal(t, 0, estimator.calls)

	second := env.book(t, CreateLoadRequest{Origin: "Little Rock, AR", Destination: "Tulsa, OK", Pay: 800, Miles: 275})
	assert.Equal(t, 137.0, second.DeadheadMiles)
	assert.Equal(t, 412.0, second.TotalMiles)

	// Deadhead never enters the load's own profitability
	assert.Equal(t, profitability.RoundCurrency(800-275.0), second.Calculation.Profit)

	// Unknown route falls back to zero
	third := env.book(t, CreateLoadRequest{Origin: "Nowhere", Destination: "Denver, CO", Pay: 1500, Miles: 680})
	assert.Equal(t, 0.0, third.DeadheadMiles)

	// Explicit deadhead skips the estimator
	calls := estimator.calls
	fourth := env.book(t, CreateLoadRequest{Origin: "Denver, CO", Destination: "Boise, ID", Pay: 2000, Miles: 830, DeadheadMiles: zero()})
	assert.Equal(t, 0.0, fourth.DeadheadMiles)
	assert.Equal(t, calls, estimator.calls)
}

func TestNextCreatedAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 4, 5, 123456789, time.UTC)
	truncated := now.Truncate(time.Microsecond)

	tests := []struct {
		name     string
		previous []*storage.Load
		want     time.Time
	}{
		{"no previous loads", nil, truncated},
		{"clock moved on", []*storage.Load{{CreatedAt: truncated.Add(-time.Second)}}, truncated},
		{"same instant", []*storage.Load{{CreatedAt: truncated}}, truncated.Add(time.Microsecond)},
		{"clock behind newest load", []*storage.Load{{CreatedAt: truncated.Add(time.Hour)}}, truncated.Add(time.Hour + time.Microsecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextCreatedAt(tt.previous, now))
		})
	}
}

func TestLoadService_CreateLoad_DeadheadFollowsBookingOrder(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()
	estimator := NewMockEstimator()
	estimator.Add("Tulsa, OK", "Oklahoma City, OK", 106)
	env.loads.SetEstimator(estimator)

	// A load stamped ahead of the local clock, as a skewed writer would leave it
	require.NoError(t, env.store.CreateLoad(ctx, &storage.Load{
		ID:          "skewed",
		TruckID:     env.truck.ID,
		Destination: "Memphis, TN",
		Status:      storage.LoadStatusBooked,
		CreatedAt:   time.Now().UTC().Add(time.Hour),
	}))

	first := env.book(t, CreateLoadRequest{Origin: "Dallas, TX", Destination: "Tulsa, OK", Pay: 1100, Miles: 500})
	second := env.book(t, CreateLoadRequest{Origin: "Oklahoma City, OK", Destination: "Wichita, KS", Pay: 600, Miles: 160})

	assert.Equal(t, 106.0, second.DeadheadMiles)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	loads, err := env.loads.GetLoadsByTruck(ctx, env.truck.ID)
	require.NoError(t, err)
	require.Len(t, loads, 3)
	assert.Equal(t, []string{"skewed", first.ID, second.ID}, []string{loads[0].ID, loads[1].ID, loads[2].ID})
}

func TestLoadService_CreateLoad_ConcurrentBookingsAreOrdered(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.loads.CreateLoad(ctx, CreateLoadRequest{TruckID: env.truck.ID, Pay: 1100, Miles: 500})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loads, err := env.loads.GetLoadsByTruck(ctx, env.truck.ID)
	require.NoError(t, err)
	require.Len(t, loads, 20)
	for i := 1; i < len(loads); i++ {
		assert.True(t, loads[i].CreatedAt.After(loads[i-1].CreatedAt), "load %d shares a timestamp with its predecessor", i)
	}
}

func TestLoadService_UpdateLoadStatus(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("StreamLoadEvent", mock.Anything, mock.Anything, mock.Anything).Return()
	env.loads.SetPublisher(publisher)

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})

	_, err := env.loads.UpdateLoadStatus(ctx, load.ID, storage.LoadStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := env.loads.UpdateLoadStatus(ctx, load.ID, storage.LoadStatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, storage.LoadStatusInTransit, updated.Status)

	delivered, err := env.loads.UpdateLoadStatus(ctx, load.ID, storage.LoadStatusDelivered)
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	_, err = env.loads.UpdateLoadStatus(ctx, load.ID, storage.LoadStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.loads.UpdateLoadStatus(ctx, load.ID, "lost")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	publisher.AssertCalled(t, "StreamLoadEvent", mock.Anything, storage.LoadStatusInTransit, mock.Anything)
	publisher.AssertCalled(t, "StreamLoadEvent", mock.Anything, storage.LoadStatusDelivered, mock.Anything)
}

func TestLoadService_UpdateLoadStatus_Cancel(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})

	cancelled, err := env.loads.UpdateLoadStatus(ctx, load.ID, storage.LoadStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, storage.LoadStatusCancelled, cancelled.Status)

	_, err = env.loads.UpdateLoadStatus(ctx, "missing", storage.LoadStatusCancelled)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadService_RecalculateLoad(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})

	fixed := 2400.0
	_, err := env.trucks.UpdateTruckCosts(ctx, env.truck.ID, TruckCostsUpdate{FixedCostsWeekly: &fixed})
	require.NoError(t, err)

	recalculated, err := env.loads.RecalculateLoad(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.4, recalculated.Calculation.CostPerMile)
	assert.Equal(t, 400.0, recalculated.Calculation.Profit)

	stored, err := env.loads.GetLoad(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.Calculation.Profit)
}

func TestLoadService_RecalculateLoad_Terminal(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})
	_, err := env.loads.UpdateLoadStatus(ctx, load.ID, storage.LoadStatusCancelled)
	require.NoError(t, err)

	_, err = env.loads.RecalculateLoad(ctx, load.ID)

	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestLoadService_RecalculateTruckLoads(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})
	env.book(t, CreateLoadRequest{Pay: 900, Miles: 300})
	cancelled := env.book(t, CreateLoadRequest{Pay: 700, Miles: 200})
	_, err := env.loads.UpdateLoadStatus(ctx, cancelled.ID, storage.LoadStatusCancelled)
	require.NoError(t, err)

	baseline := 2000.0
	_, err = env.trucks.UpdateTruckCosts(ctx, env.truck.ID, TruckCostsUpdate{BaselineWeeklyMiles: &baseline})
	require.NoError(t, err)

	updated, err := env.loads.RecalculateTruckLoads(ctx, env.truck.ID)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, load := range updated {
		assert.Equal(t, 1.5, load.Calculation.CostPerMile)
	}

	stored, err := env.loads.GetLoad(ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.Calculation.CostPerMile)
}

func TestLoadService_RecalculateTruckLoads_ReportsFailures(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})

	baseline := 0.0
	_, err := env.trucks.UpdateTruckCosts(ctx, env.truck.ID, TruckCostsUpdate{BaselineWeeklyMiles: &baseline})
	require.NoError(t, err)

	updated, err := env.loads.RecalculateTruckLoads(ctx, env.truck.ID)
	assert.Empty(t, updated)

	var missing *profitability.MissingInputError
	assert.ErrorAs(t, err, &missing)

	stored, _ := env.loads.GetLoad(ctx, load.ID)
	assert.Equal(t, 600.0, stored.Calculation.Profit)
}

func TestLoadService_GetProfitSummary(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500, DeadheadMiles: zero()})
	deadhead := 50.0
	losing := env.book(t, CreateLoadRequest{Pay: 400, Miles: 500, DeadheadMiles: &deadhead})
	cancelled := env.book(t, CreateLoadRequest{Pay: 2000, Miles: 100})

	_, err := env.loads.UpdateLoadStatus(ctx, cancelled.ID, storage.LoadStatusCancelled)
	require.NoError(t, err)
	_, err = env.loads.UpdateLoadStatus(ctx, losing.ID, storage.LoadStatusInTransit)
	require.NoError(t, err)
	_, err = env.loads.UpdateLoadStatus(ctx, losing.ID, storage.LoadStatusDelivered)
	require.NoError(t, err)

	summary, err := env.loads.GetProfitSummary(ctx, env.truck.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.LoadCount)
	assert.Equal(t, 1, summary.DeliveredCount)
	assert.Equal(t, 1500.0, summary.TotalPay)
	assert.Equal(t, 1000.0, summary.TotalMiles)
	assert.Equal(t, 50.0, summary.TotalDeadheadMiles)
	assert.Equal(t, 500.0, summary.Profit)
	assert.Equal(t, 1000.0, summary.ProjectedCost)
	assert.Equal(t, 1.5, summary.AverageRevenuePerMile)
	assert.Equal(t, 1, summary.ProfitableLoads)
	assert.Equal(t, 1, summary.UnprofitableLoads)
	assert.Equal(t, 4.76, summary.DeadheadPercent)
}

func TestLoadService_GetProfitSummary_UnknownTruck(t *testing.T) {
	env := newLoadTestEnv(t)

	_, err := env.loads.GetProfitSummary(context.Background(), "missing")

	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadService_GetLoadsByStatus(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})

	booked, err := env.loads.GetLoadsByStatus(ctx, storage.LoadStatusBooked)
	require.NoError(t, err)
	assert.Len(t, booked, 1)

	_, err = env.loads.GetLoadsByStatus(ctx, "parked")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestOutcomeFor(t *testing.T) {
	_, missing := profitability.Calculate(profitability.CostInputs{}, profitability.LoadInputs{}, nil)
	_, invalid := profitability.Calculate(
		profitability.CostInputs{FixedCostsWeekly: 1, VariableCostsWeekly: 1, BaselineWeeklyMiles: -1},
		profitability.LoadInputs{Pay: 1, Miles: 1},
		nil,
	)

	assert.Equal(t, metrics.OutcomeOK, OutcomeFor(nil))
	assert.Equal(t, metrics.OutcomeMissingInput, OutcomeFor(missing))
	assert.Equal(t, metrics.OutcomeInvalidRange, OutcomeFor(invalid))
	assert.Equal(t, "error", OutcomeFor(errors.New("boom")))
}

func TestTruckService_DeleteTruck_KeepsTrucksWithOpenLoads(t *testing.T) {
	env := newLoadTestEnv(t)
	ctx := context.Background()

	load := env.book(t, CreateLoadRequest{Pay: 1100, Miles: 500})

	err := env.trucks.DeleteTruck(ctx, env.truck.ID)
	assert.ErrorIs(t, err, ErrTruckHasOpenLoads)

	_, err = env.trucks.GetTruck(ctx, env.truck.ID)
	require.NoError(t, err)

	// The open load can still be recalculated against its truck
	_, err = env.loads.RecalculateLoad(ctx, load.ID)
	require.NoError(t, err)

	_, err = env.loads.UpdateLoadStatus(ctx, load.ID, storage.LoadStatusCancelled)
	require.NoError(t, err)

	require.NoError(t, env.trucks.DeleteTruck(ctx, env.truck.ID))

	_, err = env.trucks.GetTruck(ctx, env.truck.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTruckService_DeleteTruck_NotFound(t *testing.T) {
	env := newLoadTestEnv(t)

	err := env.trucks.DeleteTruck(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
