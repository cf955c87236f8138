package service

import (
	"context"
	"strings"
	"time"

	"freight-service/internal/profitability"
	"freight-service/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FuelService records fill-ups and derives observed fuel economy
type FuelService struct {
	storage storage.FuelStorage
	trucks  storage.TruckStorage
}

// NewFuelService creates a new fuel service instance
func NewFuelService(storage storage.FuelStorage, trucks storage.TruckStorage) *FuelService {
	return &FuelService{
		storage: storage,
		trucks:  trucks,
	}
}

// RecordPurchaseRequest describes a fill-up. ID is optional and lets
// upstream feeds deduplicate redelivered records.
type RecordPurchaseRequest struct {
	ID             string    `json:"id,omitempty"`
	TruckID        string    `json:"truck_id"`
	Gallons        float64   `json:"gallons"`
	PricePerGallon float64   `json:"price_per_gallon"`
	Odometer       float64   `json:"odometer,omitempty"`
	Location       string    `json:"location,omitempty"`
	PurchasedAt    time.Time `json:"purchased_at,omitempty"`
}

// FuelStats summarizes a truck's fill-ups. ObservedMilesPerGallon is nil until
// two fill-ups with increasing odometer readings exist.
type FuelStats struct {
	TruckID                string                    `json:"truck_id"`
	Purchases              int                       `json:"purchases"`
	TotalGallons           float64                   `json:"total_gallons"`
	TotalSpend             float64                   `json:"total_spend"`
	AveragePricePerGallon  float64                   `json:"average_price_per_gallon"`
	MilesTracked           float64                   `json:"miles_tracked"`
	ObservedMilesPerGallon *float64                  `json:"observed_miles_per_gallon,omitempty"`
	FuelEfficiency         *profitability.Efficiency `json:"fuel_efficiency,omitempty"`
}

// RecordPurchase validates and stores a fill-up
func (s *FuelService) RecordPurchase(ctx context.Context, req RecordPurchaseRequest) (*storage.FuelPurchase, error) {
	if strings.TrimSpace(req.TruckID) == "" {
		return nil, &ValidationError{Field: "truck_id", Reason: "is required"}
	}
	if err := positive("gallons", req.Gallons); err != nil {
		return nil, err
	}
	if err := positive("price_per_gallon", req.PricePerGallon); err != nil {
		return nil, err
	}
	if err := nonNegative("odometer", req.Odometer); err != nil {
		return nil, err
	}

	if _, err := s.trucks.GetTruck(ctx, req.TruckID); err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	purchasedAt := req.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = time.Now().UTC()
	}

	purchase := &storage.FuelPurchase{
		ID:             id,
		TruckID:        req.TruckID,
		Gallons:        req.Gallons,
		PricePerGallon: req.PricePerGallon,
		TotalCost:      profitability.RoundCurrency(req.Gallons * req.PricePerGallon),
		Odometer:       req.Odometer,
		Location:       strings.TrimSpace(req.Location),
		PurchasedAt:    purchasedAt,
	}

	if err := s.storage.CreateFuelPurchase(ctx, purchase); err != nil {
		return nil, err
	}

	return purchase, nil
}

// GetPurchases returns a truck's fill-ups, oldest first
func (s *FuelService) GetPurchases(ctx context.Context, truckID string) ([]*storage.FuelPurchase, error) {
	if _, err := s.trucks.GetTruck(ctx, truckID); err != nil {
		return nil, err
	}
	return s.storage.GetFuelPurchasesByTruck(ctx, truckID)
}

// FuelStats totals a truck's fill-ups and derives MPG from odometer readings.
// The first fill-up only marks the starting odometer, so its gallons are not
// counted against the miles driven.
func (s *FuelService) FuelStats(ctx context.Context, truckID string) (*FuelStats, error) {
	purchases, err := s.GetPurchases(ctx, truckID)
	if err != nil {
		return nil, err
	}

	stats := &FuelStats{TruckID: truckID, Purchases: len(purchases)}

	var tracked []*storage.FuelPurchase
	for _, p := range purchases {
		stats.TotalGallons += p.Gallons
		stats.TotalSpend += p.TotalCost
		if p.Odometer > 0 {
			tracked = append(tracked, p)
		}
	}

	if stats.TotalGallons > 0 {
		stats.AveragePricePerGallon = roundTo(stats.TotalSpend/stats.TotalGallons, 3)
	}

	if len(tracked) >= 2 {
		first, last := tracked[0], tracked[len(tracked)-1]
		miles := last.Odometer - first.Odometer

		var gallons float64
		for _, p := range tracked[1:] {
			gallons += p.Gallons
		}

		if miles > 0 && gallons > 0 {
			mpg := roundTo(miles/gallons, 2)
			rating := profitability.RateEfficiency(mpg)
			stats.MilesTracked = miles
			stats.ObservedMilesPerGallon = &mpg
			stats.FuelEfficiency = &rating
		}
	}

	stats.TotalGallons = roundTo(stats.TotalGallons, 1)
	stats.TotalSpend = profitability.RoundCurrency(stats.TotalSpend)

	return stats, nil
}

func positive(field string, value float64) error {
	if err := nonNegative(field, value); err != nil {
		return err
	}
	if value == 0 {
		return &ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
