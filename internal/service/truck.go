package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"freight-service/internal/profitability"
	"freight-service/internal/storage"

	"github.com/google/uuid"
)

// TruckService manages trucks and their operating costs
type TruckService struct {
	storage storage.TruckStorage
	loads   storage.LoadStorage
}

// NewTruckService creates a new truck service instance. Loads are consulted
// before a truck is deleted.
func NewTruckService(storage storage.TruckStorage, loads storage.LoadStorage) *TruckService {
	return &TruckService{storage: storage, loads: loads}
}

// RegisterTruckRequest describes a new truck. Costs may be left at zero
// and filled in later; the calculator reports them as missing until then.
type RegisterTruckRequest struct {
	Name                string  `json:"name"`
	UnitNumber          string  `json:"unit_number"`
	FixedCostsWeekly    float64 `json:"fixed_costs_weekly"`
	VariableCostsWeekly float64 `json:"variable_costs_weekly"`
	BaselineWeeklyMiles float64 `json:"baseline_weekly_miles"`
	MilesPerGallon      float64 `json:"miles_per_gallon"`
}

// TruckCostsUpdate holds the cost fields to change. Nil fields are left as they are.
type TruckCostsUpdate struct {
	FixedCostsWeekly    *float64 `json:"fixed_costs_weekly"`
	VariableCostsWeekly *float64 `json:"variable_costs_weekly"`
	BaselineWeeklyMiles *float64 `json:"baseline_weekly_miles"`
	MilesPerGallon      *float64 `json:"miles_per_gallon"`
}

// RegisterTruck validates and stores a new truck
func (s *TruckService) RegisterTruck(ctx context.Context, req RegisterTruckRequest) (*storage.Truck, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}

	costs := []struct {
		field string
		value float64
	}{
		{"fixed_costs_weekly", req.FixedCostsWeekly},
		{"variable_costs_weekly", req.VariableCostsWeekly},
		{"baseline_weekly_miles", req.BaselineWeeklyMiles},
		{"miles_per_gallon", req.MilesPerGallon},
	}
	for _, c := range costs {
		if err := nonNegative(c.field, c.value); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	truck := &storage.Truck{
		ID:                  uuid.NewString(),
		Name:                name,
		UnitNumber:          strings.TrimSpace(req.UnitNumber),
		FixedCostsWeekly:    req.FixedCostsWeekly,
		VariableCostsWeekly: req.VariableCostsWeekly,
		BaselineWeeklyMiles: req.BaselineWeeklyMiles,
		MilesPerGallon:      req.MilesPerGallon,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.storage.CreateTruck(ctx, truck); err != nil {
		return nil, err
	}

	return truck, nil
}

// GetTruck retrieves a truck by ID
func (s *TruckService) GetTruck(ctx context.Context, truckID string) (*storage.Truck, error) {
	return s.storage.GetTruck(ctx, truckID)
}

// UpdateTruckCosts changes a truck's cost profile
func (s *TruckService) UpdateTruckCosts(ctx context.Context, truckID string, update TruckCostsUpdate) (*storage.Truck, error) {
	truck, err := s.storage.GetTruck(ctx, truckID)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		name   string
		value  *float64
		target *float64
	}{
		{"fixed_costs_weekly", update.FixedCostsWeekly, &truck.FixedCostsWeekly},
		{"variable_costs_weekly", update.VariableCostsWeekly, &truck.VariableCostsWeekly},
		{"baseline_weekly_miles", update.BaselineWeeklyMiles, &truck.BaselineWeeklyMiles},
		{"miles_per_gallon", update.MilesPerGallon, &truck.MilesPerGallon},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := nonNegative(f.name, *f.value); err != nil {
			return nil, err
		}
		*f.target = *f.value
	}

	truck.UpdatedAt = time.Now().UTC()
	if err := s.storage.UpdateTruck(ctx, truck); err != nil {
		return nil, err
	}

	return truck, nil
}

// DeleteTruck removes a truck. Trucks with booked or in-transit loads are kept.
func (s *TruckService) DeleteTruck(ctx context.Context, truckID string) error {
	if _, err := s.storage.GetTruck(ctx, truckID); err != nil {
		return err
	}

	loads, err := s.loads.GetLoadsByTruck(ctx, truckID)
	if err != nil {
		return err
	}

	openLoads := 0
	for _, load := range loads {
		if !isTerminal(load.Status) {
			openLoads++
		}
	}
	if openLoads > 0 {
		return fmt.Errorf("%w: truck %s has %d booked or in-transit loads", ErrTruckHasOpenLoads, truckID, openLoads)
	}

	return s.storage.DeleteTruck(ctx, truckID)
}

// GetAllTrucks returns every truck ordered by unit number
func (s *TruckService) GetAllTrucks(ctx context.Context) ([]*storage.Truck, error) {
	trucks, err := s.storage.GetAllTrucks(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(trucks, func(i, j int) bool {
		if trucks[i].UnitNumber != trucks[j].UnitNumber {
			return trucks[i].UnitNumber < trucks[j].UnitNumber
		}
		return trucks[i].ID < trucks[j].ID
	})

	return trucks, nil
}

// CostInputs maps a truck's cost profile onto calculator input
func CostInputs(truck *storage.Truck) profitability.CostInputs {
	return profitability.CostInputs{
		FixedCostsWeekly:    truck.FixedCostsWeekly,
		VariableCostsWeekly: truck.VariableCostsWeekly,
		BaselineWeeklyMiles: truck.BaselineWeeklyMiles,
	}
}

func nonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if value < 0 {
		return &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}
