package profitability

import (
	"math"

	"github.com/shopspring/decimal"
)

// FallbackMilesPerGallon is the assumed fuel economy used only to rate a load
// when no fuel data was supplied. It never enters cost or profit math.
const FallbackMilesPerGallon = 6.5

// Efficiency is the fuel-efficiency rating of a truck for a load
type Efficiency string

const (
	EfficiencyExcellent Efficiency = "excellent"
	EfficiencyGood      Efficiency = "good"
	EfficiencyAverage   Efficiency = "average"
	EfficiencyPoor      Efficiency = "poor"
)

// CostInputs holds a truck's weekly operating costs and the mileage they are spread over
type CostInputs struct {
	FixedCostsWeekly    float64 `json:"fixed_costs_weekly"`
	VariableCostsWeekly float64 `json:"variable_costs_weekly"`
	BaselineWeeklyMiles float64 `json:"baseline_weekly_miles"`
}

// LoadInputs holds the pay and loaded miles of a single load
type LoadInputs struct {
	Pay   float64 `json:"pay"`
	Miles float64 `json:"miles"`
}

// FuelInputs holds optional fuel economy data. Both values must be positive
// for fuel cost to be computed.
type FuelInputs struct {
	MilesPerGallon     float64 `json:"miles_per_gallon"`
	FuelPricePerGallon float64 `json:"fuel_price_per_gallon"`
}

// Result is the rounded outcome of a profitability calculation
type Result struct {
	CostPerMile        float64    `json:"cost_per_mile" dynamodbav:"cost_per_mile"`
	LoadRevenuePerMile float64    `json:"load_revenue_per_mile" dynamodbav:"load_revenue_per_mile"`
	Profit             float64    `json:"profit" dynamodbav:"profit"`
	IsProfitable       bool       `json:"is_profitable" dynamodbav:"is_profitable"`
	FuelCostForLoad    float64    `json:"fuel_cost_for_load" dynamodbav:"fuel_cost_for_load"`
	EstimatedGallons   float64    `json:"estimated_gallons" dynamodbav:"estimated_gallons"`
	MilesPerGallon     float64    `json:"miles_per_gallon" dynamodbav:"miles_per_gallon"`
	FuelEfficiency     Efficiency `json:"fuel_efficiency" dynamodbav:"fuel_efficiency"`
}

// Calculate computes cost-per-mile, revenue-per-mile, profit and fuel figures for a load.
//
// All five required fields must be present and non-zero; the calculation is
// all-or-nothing and returns no partial result on error. Rounding is applied
// only to the returned Result.
func Calculate(cost CostInputs, load LoadInputs, fuel *FuelInputs) (Result, error) {
	if err := validate(cost, load); err != nil {
		return Result{}, err
	}

	costPerMile := (cost.FixedCostsWeekly + cost.VariableCostsWeekly) / cost.BaselineWeeklyMiles
	revenuePerMile := load.Pay / load.Miles
	profit := load.Pay - load.Miles*costPerMile

	var gallons, fuelCost float64
	mpg := FallbackMilesPerGallon
	if fuel.complete() {
		mpg = fuel.MilesPerGallon
		gallons = load.Miles / fuel.MilesPerGallon
		fuelCost = gallons * fuel.FuelPricePerGallon
	}

	// Finite inputs can still overflow
	derived := []field{
		{FieldCostPerMile, costPerMile, false},
		{FieldLoadRevenuePerMile, revenuePerMile, false},
		{FieldProfit, profit, false},
		{FieldEstimatedGallons, gallons, false},
		{FieldFuelCostForLoad, fuelCost, false},
	}
	for _, f := range derived {
		if math.IsInf(f.value, 0) || math.IsNaN(f.value) {
			return Result{}, &InvalidRangeError{Field: f.name, Reason: reasonFinite}
		}
	}

	return Result{
		CostPerMile:        round(costPerMile, 3),
		LoadRevenuePerMile: round(revenuePerMile, 2),
		Profit:             round(profit, 2),
		IsProfitable:       revenuePerMile > costPerMile,
		FuelCostForLoad:    round(fuelCost, 2),
		EstimatedGallons:   round(gallons, 1),
		MilesPerGallon:     mpg,
		FuelEfficiency:     RateEfficiency(mpg),
	}, nil
}

// RateEfficiency maps miles per gallon to a rating. Each band includes its lower bound.
func RateEfficiency(mpg float64) Efficiency {
	switch {
	case mpg >= 8:
		return EfficiencyExcellent
	case mpg >= 7:
		return EfficiencyGood
	case mpg >= 6:
		return EfficiencyAverage
	default:
		return EfficiencyPoor
	}
}

// RoundCurrency rounds a dollar amount to cents, half away from zero
func RoundCurrency(v float64) float64 {
	return round(v, 2)
}

func (f *FuelInputs) complete() bool {
	if f == nil {
		return false
	}
	return usable(f.MilesPerGallon) && usable(f.FuelPricePerGallon)
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
