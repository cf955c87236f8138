package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"freight-service/internal/profitability"
)

var (
	// ErrNotFound is returned, wrapped with the record id, when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a record whose id is taken
	ErrAlreadyExists = errors.New("already exists")
)

// Load statuses
const (
	LoadStatusBooked    = "booked"
	LoadStatusInTransit = "in_transit"
	LoadStatusDelivered = "delivered"
	LoadStatusCancelled = "cancelled"
)

// Truck is a power unit with its weekly operating costs
type Truck struct {
	ID                  string    `json:"id" dynamodbav:"id" gorm:"primaryKey;size:64"`
	Name                string    `json:"name" dynamodbav:"name"`
	UnitNumber          string    `json:"unit_number" dynamodbav:"unit_number" gorm:"index"`
	FixedCostsWeekly    float64   `json:"fixed_costs_weekly" dynamodbav:"fixed_costs_weekly"`
	VariableCostsWeekly float64   `json:"variable_costs_weekly" dynamodbav:"variable_costs_weekly"`
	BaselineWeeklyMiles float64   `json:"baseline_weekly_miles" dynamodbav:"baseline_weekly_miles"`
	MilesPerGallon      float64   `json:"miles_per_gallon,omitempty" dynamodbav:"miles_per_gallon,omitempty"`
	CreatedAt           time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Load is a single paid haul assigned to a truck
type Load struct {
	ID                 string                `json:"id" dynamodbav:"id" gorm:"primaryKey;size:64"`
	TruckID            string                `json:"truck_id" dynamodbav:"truck_id" gorm:"index;size:64"`
	Origin             string                `json:"origin" dynamodbav:"origin"`
	Destination        string                `json:"destination" dynamodbav:"destination"`
	Pay                float64               `json:"pay" dynamodbav:"pay"`
	Miles              float64               `json:"miles" dynamodbav:"miles"`
	DeadheadMiles      float64               `json:"deadhead_miles" dynamodbav:"deadhead_miles"`
	TotalMiles         float64               `json:"total_miles" dynamodbav:"total_miles"`
	MilesPerGallon     float64               `json:"miles_per_gallon,omitempty" dynamodbav:"miles_per_gallon,omitempty"`
	FuelPricePerGallon float64               `json:"fuel_price_per_gallon,omitempty" dynamodbav:"fuel_price_per_gallon,omitempty"`
	Status             string                `json:"status" dynamodbav:"status" gorm:"index;size:16"`
	Calculation        *profitability.Result `json:"calculation,omitempty" dynamodbav:"calculation,omitempty" gorm:"serializer:json"`
	CreatedAt          time.Time             `json:"created_at" dynamodbav:"created_at"`
	DeliveredAt        *time.Time            `json:"delivered_at,omitempty" dynamodbav:"delivered_at,omitempty"`
}

// FuelPurchase is a single fill-up
type FuelPurchase struct {
	ID             string    `json:"id" dynamodbav:"id" gorm:"primaryKey;size:64"`
	TruckID        string    `json:"truck_id" dynamodbav:"truck_id" gorm:"index;size:64"`
	Gallons        float64   `json:"gallons" dynamodbav:"gallons"`
	PricePerGallon float64   `json:"price_per_gallon" dynamodbav:"price_per_gallon"`
	TotalCost      float64   `json:"total_cost" dynamodbav:"total_cost"`
	Odometer       float64   `json:"odometer,omitempty" dynamodbav:"odometer,omitempty"`
	Location       string    `json:"location,omitempty" dynamodbav:"location,omitempty"`
	PurchasedAt    time.Time `json:"purchased_at" dynamodbav:"purchased_at"`
}

// TruckStorage defines the interface for truck data operations
type TruckStorage interface {
	// CreateTruck adds a new truck
	CreateTruck(ctx context.Context, truck *Truck) error

	// GetTruck retrieves a truck by ID
	GetTruck(ctx context.Context, truckID string) (*Truck, error)

	// UpdateTruck replaces an existing truck
	UpdateTruck(ctx context.Context, truck *Truck) error

	// DeleteTruck removes a truck
	DeleteTruck(ctx context.Context, truckID string) error

	// GetAllTrucks returns every truck
	GetAllTrucks(ctx context.Context) ([]*Truck, error)
}

// LoadStorage defines the interface for load data operations
type LoadStorage interface {
	// CreateLoad adds a new load
	CreateLoad(ctx context.Context, load *Load) error

	// GetLoad retrieves a load by ID
	GetLoad(ctx context.Context, loadID string) (*Load, error)

	// UpdateLoad replaces an existing load
	UpdateLoad(ctx context.Context, load *Load) error

	// GetLoadsByTruck returns a truck's loads, oldest first
	GetLoadsByTruck(ctx context.Context, truckID string) ([]*Load, error)

	// GetLoadsByStatus finds loads by status
	GetLoadsByStatus(ctx context.Context, status string) ([]*Load, error)

	// GetAllLoads returns every load, oldest first
	GetAllLoads(ctx context.Context) ([]*Load, error)

	// UpdateLoadStatus sets the status and stamps DeliveredAt on delivery
	UpdateLoadStatus(ctx context.Context, loadID, status string) error
}

// FuelStorage defines the interface for fuel purchase operations
type FuelStorage interface {
	// CreateFuelPurchase records a fill-up
	CreateFuelPurchase(ctx context.Context, purchase *FuelPurchase) error

	// GetFuelPurchasesByTruck returns a truck's fill-ups, oldest first
	GetFuelPurchasesByTruck(ctx context.Context, truckID string) ([]*FuelPurchase, error)
}

func sortLoads(loads []*Load) {
	sort.SliceStable(loads, func(i, j int) bool {
		if loads[i].CreatedAt.Equal(loads[j].CreatedAt) {
			return loads[i].ID < loads[j].ID
		}
		return loads[i].CreatedAt.Before(loads[j].CreatedAt)
	})
}

func sortPurchases(purchases []*FuelPurchase) {
	sort.SliceStable(purchases, func(i, j int) bool {
		if purchases[i].PurchasedAt.Equal(purchases[j].PurchasedAt) {
			return purchases[i].ID < purchases[j].ID
		}
		return purchases[i].PurchasedAt.Before(purchases[j].PurchasedAt)
	})
}
