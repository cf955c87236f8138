package profitability

import (
	"fmt"
	"math"
	"strings"
)

// Field names reported in validation errors.
const (
	FieldFixedCostsWeekly    = "fixed_costs_weekly"
	FieldVariableCostsWeekly = "variable_costs_weekly"
	FieldBaselineWeeklyMiles = "baseline_weekly_miles"
	FieldPay                 = "pay"
	FieldMiles               = "miles"

	// derived values, reported when the inputs overflow them
	FieldCostPerMile        = "cost_per_mile"
	FieldLoadRevenuePerMile = "load_revenue_per_mile"
	FieldProfit             = "profit"
	FieldEstimatedGallons   = "estimated_gallons"
	FieldFuelCostForLoad    = "fuel_cost_for_load"
)

// MissingInputError reports required inputs that were not provided.
// A required input is missing when it is zero or NaN.
type MissingInputError struct {
	Fields []string
	ranges []error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", strings.Join(e.Fields, ", "))
}

// Unwrap exposes the range violations of any missing divisor so errors.As
// can match *InvalidRangeError as well.
func (e *MissingInputError) Unwrap() []error {
	return e.ranges
}

// InvalidRangeError reports an input that is present but outside its allowed range
type InvalidRangeError struct {
	Field  string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const (
	reasonPositive    = "must be greater than zero"
	reasonNonNegative = "must not be negative"
	reasonFinite      = "must be a finite number"
)

type field struct {
	name    string
	value   float64
	divisor bool
}

// validate checks every required field before any arithmetic happens.
// Missing fields take precedence over range violations.
func validate(cost CostInputs, load LoadInputs) error {
	fields := []field{
		{FieldFixedCostsWeekly, cost.FixedCostsWeekly, false},
		{FieldVariableCostsWeekly, cost.VariableCostsWeekly, false},
		{FieldBaselineWeeklyMiles, cost.BaselineWeeklyMiles, true},
		{FieldPay, load.Pay, false},
		{FieldMiles, load.Miles, true},
	}

	missing := &MissingInputError{}
	for _, f := range fields {
		if f.value != 0 && !math.IsNaN(f.value) {
			continue
		}
		missing.Fields = append(missing.Fields, f.name)
		if f.divisor {
			missing.ranges = append(missing.ranges, &InvalidRangeError{Field: f.name, Reason: reasonPositive})
		}
	}
	if len(missing.Fields) > 0 {
		return missing
	}

	for _, f := range fields {
		switch {
		case math.IsInf(f.value, 0):
			return &InvalidRangeError{Field: f.name, Reason: reasonFinite}
		case f.divisor && f.value <= 0:
			return &InvalidRangeError{Field: f.name, Reason: reasonPositive}
		case f.value < 0:
			return &InvalidRangeError{Field: f.name, Reason: reasonNonNegative}
		}
	}
	return nil
}
