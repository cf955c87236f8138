package service

import (
	"errors"
	"fmt"

	"freight-service/internal/metrics"
	"freight-service/internal/profitability"
)

// ErrInvalidTransition is returned when a load cannot move to the requested status
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrTruckHasOpenLoads is returned when deleting a truck whose loads are not finished
var ErrTruckHasOpenLoads = errors.New("truck has open loads")

// ValidationError reports a request field that failed validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OutcomeFor classifies a calculator error for metrics
func OutcomeFor(err error) string {
	var missing *profitability.MissingInputError
	var invalid *profitability.InvalidRangeError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &missing):
		return metrics.OutcomeMissingInput
	case errors.As(err, &invalid):
		return metrics.OutcomeInvalidRange
	default:
		return "error"
	}
}
