package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"freight-service/internal/cache"
	"freight-service/internal/distance"
	"freight-service/internal/metrics"
	"freight-service/internal/profitability"
	"freight-service/internal/storage"

	"github.com/google/uuid"
)

// Load event types
const (
	EventCreated      = "created"
	EventRecalculated = "recalculated"
)

// LoadEventPublisher receives load lifecycle events. Publishing is best-effort.
type LoadEventPublisher interface {
	StreamLoadEvent(ctx context.Context, eventType string, load *storage.Load)
}

// allowed status transitions
var transitions = map[string][]string{
	storage.LoadStatusBooked:    {storage.LoadStatusInTransit, storage.LoadStatusCancelled},
	storage.LoadStatusInTransit: {storage.LoadStatusDelivered, storage.LoadStatusCancelled},
}

// LoadService books loads and computes their profitability
type LoadService struct {
	loads     storage.LoadStorage
	trucks    storage.TruckStorage
	estimator distance.Estimator
	cache     cache.CalculationCache
	metrics   *metrics.Collector
	publisher LoadEventPublisher

	// serializes bookings per truck so CreatedAt order matches booking order
	mu         sync.Mutex
	truckLocks map[string]*sync.Mutex
}

// NewLoadService creates a new load service instance
func NewLoadService(loads storage.LoadStorage, trucks storage.TruckStorage) *LoadService {
	return &LoadService{
		loads:      loads,
		trucks:     trucks,
		truckLocks: make(map[string]*sync.Mutex),
	}
}

func (s *LoadService) lockTruck(truckID string) func() {
	s.mu.Lock()
	l, ok := s.truckLocks[truckID]
	if !ok {
		l = &sync.Mutex{}
		s.truckLocks[truckID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// SetEstimator sets the distance estimator used for deadhead miles
func (s *LoadService) SetEstimator(estimator distance.Estimator) {
	s.estimator = estimator
}

// SetCache sets the calculation cache
func (s *LoadService) SetCache(c cache.CalculationCache) {
	s.cache = c
}

// SetMetrics sets the metrics collector
func (s *LoadService) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// SetPublisher sets the load event publisher
func (s *LoadService) SetPublisher(p LoadEventPublisher) {
	s.publisher = p
}

// CalculateRequest is a stand-alone profitability query. When TruckID is set,
// cost fields left at zero and a missing MPG are taken from the truck.
type CalculateRequest struct {
	TruckID             string  `json:"truck_id,omitempty"`
	FixedCostsWeekly    float64 `json:"fixed_costs_weekly"`
	VariableCostsWeekly float64 `json:"variable_costs_weekly"`
	BaselineWeeklyMiles float64 `json:"baseline_weekly_miles"`
	Pay                 float64 `json:"pay"`
	Miles               float64 `json:"miles"`
	MilesPerGallon      float64 `json:"miles_per_gallon,omitempty"`
	FuelPricePerGallon  float64 `json:"fuel_price_per_gallon,omitempty"`
}

// CreateLoadRequest books a load on a truck. DeadheadMiles is estimated from
// the truck's previous drop-off when omitted.
type CreateLoadRequest struct {
	TruckID            string   `json:"truck_id"`
	Origin             string   `json:"origin"`
	Destination        string   `json:"destination"`
	Pay                float64  `json:"pay"`
	Miles              float64  `json:"miles"`
	DeadheadMiles      *float64 `json:"deadhead_miles,omitempty"`
	MilesPerGallon     float64  `json:"miles_per_gallon,omitempty"`
	FuelPricePerGallon float64  `json:"fuel_price_per_gallon,omitempty"`
}

// ProfitSummary aggregates the booked, in-transit and delivered loads of a truck
type ProfitSummary struct {
	TruckID               string  `json:"truck_id"`
	LoadCount             int     `json:"load_count"`
	DeliveredCount        int     `json:"delivered_count"`
	TotalPay              float64 `json:"total_pay"`
	TotalMiles            float64 `json:"total_miles"`
	TotalDeadheadMiles    float64 `json:"total_deadhead_miles"`
	ProjectedCost         float64 `json:"projected_cost"`
	Profit                float64 `json:"profit"`
	AverageRevenuePerMile float64 `json:"average_revenue_per_mile"`
	ProfitableLoads       int     `json:"profitable_loads"`
	UnprofitableLoads     int     `json:"unprofitable_loads"`
	DeadheadPercent       float64 `json:"deadhead_percent"`
}

// fuelInputs returns nil when neither fuel value was supplied
func fuelInputs(mpg, price float64) *profitability.FuelInputs {
	if mpg == 0 && price == 0 {
		return nil
	}
	return &profitability.FuelInputs{MilesPerGallon: mpg, FuelPricePerGallon: price}
}

// Calculate runs the profitability calculator, memoized through the cache when one is set
func (s *LoadService) Calculate(ctx context.Context, req CalculateRequest) (profitability.Result, error) {
	cost := profitability.CostInputs{
		FixedCostsWeekly:    req.FixedCostsWeekly,
		VariableCostsWeekly: req.VariableCostsWeekly,
		BaselineWeeklyMiles: req.BaselineWeeklyMiles,
	}
	mpg := req.MilesPerGallon

	if req.TruckID != "" {
		truck, err := s.trucks.GetTruck(ctx, req.TruckID)
		if err != nil {
			return profitability.Result{}, err
		}
		if cost.FixedCostsWeekly == 0 {
			cost.FixedCostsWeekly = truck.FixedCostsWeekly
		}
		if cost.VariableCostsWeekly == 0 {
			cost.VariableCostsWeekly = truck.VariableCostsWeekly
		}
		if cost.BaselineWeeklyMiles == 0 {
			cost.BaselineWeeklyMiles = truck.BaselineWeeklyMiles
		}
		if mpg == 0 {
			mpg = truck.MilesPerGallon
		}
	}

	load := profitability.LoadInputs{Pay: req.Pay, Miles: req.Miles}
	return s.calculate(ctx, cost, load, fuelInputs(mpg, req.FuelPricePerGallon))
}

func (s *LoadService) calculate(ctx context.Context, cost profitability.CostInputs, load profitability.LoadInputs, fuel *profitability.FuelInputs) (profitability.Result, error) {
	key := cache.Key(cost, load, fuel)

	if s.cache != nil {
		result, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("Calculation cache read failed", "error", err)
		} else if ok {
			s.metrics.RecordCalculation(metrics.OutcomeOK)
			return result, nil
		}
	}

	result, err := profitability.Calculate(cost, load, fuel)
	s.metrics.RecordCalculation(OutcomeFor(err))
	if err != nil {
		return profitability.Result{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			slog.Warn("Calculation cache write failed", "error", err)
		}
	}

	return result, nil
}

// CreateLoad books a load. The load is rejected if its profitability cannot be computed.
func (s *LoadService) CreateLoad(ctx context.Context, req CreateLoadRequest) (*storage.Load, error) {
	if strings.TrimSpace(req.TruckID) == "" {
		return nil, &ValidationError{Field: "truck_id", Reason: "is required"}
	}
	if req.DeadheadMiles != nil {
		if err := nonNegative("deadhead_miles", *req.DeadheadMiles); err != nil {
			return nil, err
		}
	}

	truck, err := s.trucks.GetTruck(ctx, req.TruckID)
	if err != nil {
		return nil, err
	}

	mpg := req.MilesPerGallon
	if mpg == 0 {
		mpg = truck.MilesPerGallon
	}

	result, err := s.calculate(ctx, CostInputs(truck), profitability.LoadInputs{Pay: req.Pay, Miles: req.Miles}, fuelInputs(mpg, req.FuelPricePerGallon))
	if err != nil {
		return nil, err
	}

	unlock := s.lockTruck(truck.ID)
	defer unlock()

	previous, err := s.loads.GetLoadsByTruck(ctx, truck.ID)
	if err != nil {
		return nil, err
	}

	var deadhead float64
	if req.DeadheadMiles != nil {
		deadhead = *req.DeadheadMiles
	} else {
		deadhead = s.estimateDeadhead(ctx, truck.ID, previous, req.Origin)
	}

	load := &storage.Load{
		ID:                 uuid.NewString(),
		TruckID:            truck.ID,
		Origin:             strings.TrimSpace(req.Origin),
		Destination:        strings.TrimSpace(req.Destination),
		Pay:                req.Pay,
		Miles:              req.Miles,
		DeadheadMiles:      deadhead,
		TotalMiles:         req.Miles + deadhead,
		MilesPerGallon:     mpg,
		FuelPricePerGallon: req.FuelPricePerGallon,
		Status:             storage.LoadStatusBooked,
		Calculation:        &result,
		CreatedAt:          nextCreatedAt(previous, time.Now().UTC()),
	}

	if err := s.loads.CreateLoad(ctx, load); err != nil {
		return nil, err
	}

	s.metrics.RecordLoadStatus(load.Status)
	s.metrics.RecordLoadProfit(result.Profit)
	s.publish(ctx, EventCreated, load)

	slog.Info("Load booked", "load_id", load.ID, "truck_id", truck.ID, "profit", result.Profit, "is_profitable", result.IsProfitable)
	return load, nil
}

// createdAtStep keeps successive loads distinct at the microsecond precision
// Postgres stores timestamps with.
const createdAtStep = time.Microsecond

// nextCreatedAt returns now, or a time just after the truck's newest load when
// the clock has not moved past it. previous must be ordered by CreatedAt.
func nextCreatedAt(previous []*storage.Load, now time.Time) time.Time {
	now = now.Truncate(createdAtStep)
	if len(previous) == 0 {
		return now
	}
	last := previous[len(previous)-1].CreatedAt
	if now.After(last) {
		return now
	}
	return last.Add(createdAtStep)
}

// estimateDeadhead returns the miles from the truck's last drop-off to origin,
// or zero when that cannot be determined. previous is ordered oldest first.
func (s *LoadService) estimateDeadhead(ctx context.Context, truckID string, previous []*storage.Load, origin string) float64 {
	if s.estimator == nil || strings.TrimSpace(origin) == "" {
		return 0
	}

	var lastDrop string
	for i := len(previous) - 1; i >= 0; i-- {
		if previous[i].Status != storage.LoadStatusCancelled && previous[i].Destination != "" {
			lastDrop = previous[i].Destination
			break
		}
	}
	if lastDrop == "" {
		return 0
	}

	miles, err := s.estimator.EstimateMiles(ctx, lastDrop, origin)
	if err != nil {
		slog.Warn("Deadhead estimate failed", "truck_id", truckID, "from", lastDrop, "to", origin, "error", err)
		return 0
	}

	return miles
}

// GetLoad retrieves a load by ID
func (s *LoadService) GetLoad(ctx context.Context, loadID string) (*storage.Load, error) {
	return s.loads.GetLoad(ctx, loadID)
}

// GetAllLoads returns every load, oldest first
func (s *LoadService) GetAllLoads(ctx context.Context) ([]*storage.Load, error) {
	return s.loads.GetAllLoads(ctx)
}

// GetLoadsByTruck returns a truck's loads, oldest first
func (s *LoadService) GetLoadsByTruck(ctx context.Context, truckID string) ([]*storage.Load, error) {
	if _, err := s.trucks.GetTruck(ctx, truckID); err != nil {
		return nil, err
	}
	return s.loads.GetLoadsByTruck(ctx, truckID)
}

// GetLoadsByStatus returns loads with the given status
func (s *LoadService) GetLoadsByStatus(ctx context.Context, status string) ([]*storage.Load, error) {
	if !validStatus(status) {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	return s.loads.GetLoadsByStatus(ctx, status)
}

// UpdateLoadStatus moves a load along booked -> in_transit -> delivered, or cancels it
func (s *LoadService) UpdateLoadStatus(ctx context.Context, loadID, status string) (*storage.Load, error) {
	if !validStatus(status) {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	load, err := s.loads.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	if !canTransition(load.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, load.Status, status)
	}

	if err := s.loads.UpdateLoadStatus(ctx, loadID, status); err != nil {
		return nil, err
	}

	updated, err := s.loads.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLoadStatus(status)
	s.publish(ctx, status, updated)

	slog.Info("Load status updated", "load_id", loadID, "from", load.Status, "to", status)
	return updated, nil
}

// RecalculateLoad recomputes a load's profitability from its truck's current costs
func (s *LoadService) RecalculateLoad(ctx context.Context, loadID string) (*storage.Load, error) {
	load, err := s.loads.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	if isTerminal(load.Status) {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("%s loads cannot be recalculated", load.Status)}
	}

	truck, err := s.trucks.GetTruck(ctx, load.TruckID)
	if err != nil {
		return nil, err
	}

	return s.recalculate(ctx, load, truck)
}

// RecalculateTruckLoads recomputes every open load of a truck. Loads that can
// no longer be calculated keep their previous result and are reported in the error.
func (s *LoadService) RecalculateTruckLoads(ctx context.Context, truckID string) ([]*storage.Load, error) {
	truck, err := s.trucks.GetTruck(ctx, truckID)
	if err != nil {
		return nil, err
	}

	loads, err := s.loads.GetLoadsByTruck(ctx, truckID)
	if err != nil {
		return nil, err
	}

	var updated []*storage.Load
	var errs []error
	for _, load := range loads {
		if isTerminal(load.Status) {
			continue
		}
		recalculated, err := s.recalculate(ctx, load, truck)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", load.ID, err))
			continue
		}
		updated = append(updated, recalculated)
	}

	return updated, errors.Join(errs...)
}

func (s *LoadService) recalculate(ctx context.Context, load *storage.Load, truck *storage.Truck) (*storage.Load, error) {
	mpg := load.MilesPerGallon
	if mpg == 0 {
		mpg = truck.MilesPerGallon
	}

	result, err := s.calculate(ctx, CostInputs(truck), profitability.LoadInputs{Pay: load.Pay, Miles: load.Miles}, fuelInputs(mpg, load.FuelPricePerGallon))
	if err != nil {
		return nil, err
	}

	load.MilesPerGallon = mpg
	load.Calculation = &result
	if err := s.loads.UpdateLoad(ctx, load); err != nil {
		return nil, err
	}

	s.publish(ctx, EventRecalculated, load)
	return load, nil
}

// GetProfitSummary totals a truck's non-cancelled loads from their stored results
func (s *LoadService) GetProfitSummary(ctx context.Context, truckID string) (*ProfitSummary, error) {
	loads, err := s.GetLoadsByTruck(ctx, truckID)
	if err != nil {
		return nil, err
	}

	summary := &ProfitSummary{TruckID: truckID}
	for _, load := range loads {
		if load.Status == storage.LoadStatusCancelled || load.Calculation == nil {
			continue
		}

		summary.LoadCount++
		if load.Status == storage.LoadStatusDelivered {
			summary.DeliveredCount++
		}
		summary.TotalPay += load.Pay
		summary.TotalMiles += load.Miles
		summary.TotalDeadheadMiles += load.DeadheadMiles
		summary.Profit += load.Calculation.Profit

		if load.Calculation.IsProfitable {
			summary.ProfitableLoads++
		} else {
			summary.UnprofitableLoads++
		}
	}

	summary.ProjectedCost = summary.TotalPay - summary.Profit
	if summary.TotalMiles > 0 {
		summary.AverageRevenuePerMile = summary.TotalPay / summary.TotalMiles
	}
	if driven := summary.TotalMiles + summary.TotalDeadheadMiles; driven > 0 {
		summary.DeadheadPercent = summary.TotalDeadheadMiles / driven * 100
	}

	summary.TotalPay = profitability.RoundCurrency(summary.TotalPay)
	summary.ProjectedCost = profitability.RoundCurrency(summary.ProjectedCost)
	summary.Profit = profitability.RoundCurrency(summary.Profit)
	summary.AverageRevenuePerMile = profitability.RoundCurrency(summary.AverageRevenuePerMile)
	summary.DeadheadPercent = profitability.RoundCurrency(summary.DeadheadPercent)

	return summary, nil
}

func (s *LoadService) publish(ctx context.Context, eventType string, load *storage.Load) {
	if s.publisher != nil {
		s.publisher.StreamLoadEvent(ctx, eventType, load)
	}
}

func validStatus(status string) bool {
	switch status {
	case storage.LoadStatusBooked, storage.LoadStatusInTransit, storage.LoadStatusDelivered, storage.LoadStatusCancelled:
		return true
	}
	return false
}

func isTerminal(status string) bool {
	return status == storage.LoadStatusDelivered || status == storage.LoadStatusCancelled
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
