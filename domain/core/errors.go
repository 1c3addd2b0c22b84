package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)

	// Data shape errors
	ErrEmptyTable    = errors.New("table has no rows")
	ErrColumnMissing = errors.New("required column missing")
	ErrUnmappedValue = errors.New("unmapped value")

	// Analysis errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// NewColumnMissingError reports the candidate names tried and a sample of
// the columns actually seen, mirroring the loader's discovery order.
func NewColumnMissingError(candidates []string, seen []string) error {
	limit := len(seen)
	if limit > 12 {
		limit = 12
	}
	return fmt.Errorf("%w: tried %v, saw columns like %v", ErrColumnMissing, candidates, seen[:limit])
}

// NewUnmappedValueError reports the first few offending row indexes.
func NewUnmappedValueError(column string, rows []int) error {
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	return fmt.Errorf("%w: %s at rows %v", ErrUnmappedValue, column, rows[:limit])
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrEmptyTable) ||
		errors.Is(err, ErrColumnMissing) ||
		errors.Is(err, ErrUnmappedValue)
}
