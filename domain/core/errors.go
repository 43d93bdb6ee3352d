package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound      = errors.New("resource not found")
	ErrClaimNotFound = fmt.Errorf("%w: claim", ErrNotFound)
	ErrRunNotFound   = fmt.Errorf("%w: run", ErrNotFound)

	// Data errors
	ErrValidation       = errors.New("validation failed")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrDuplicateClaim   = errors.New("duplicate claim in evaluation set")
	ErrInvalidPredictor = errors.New("invalid predictor value")

	// Fitting errors
	ErrSingularFit  = errors.New("singular model fit")
	ErrNotConverged = errors.New("model fit did not converge")
)

// NewNotFoundError builds a not-found error for a resource id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewValidationError reports an invalid field
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrValidation, field, reason)
}

// NewPredictorError reports a predictor value the models cannot use
func NewPredictorError(claimID ClaimID, field string, value float64) error {
	return fmt.Errorf("%w: claim %s field %s = %v", ErrInvalidPredictor, claimID, field, value)
}

// IsInputError reports whether err came from unusable input data
func IsInputError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDuplicateClaim) ||
		errors.Is(err, ErrInvalidPredictor)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFitError reports whether err came from a failed model fit
func IsFitError(err error) bool {
	return errors.Is(err, ErrSingularFit) || errors.Is(err, ErrNotConverged)
}
