package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while building an index.
var (
	// ErrInvalidInput indicates that the aggregator was handed input it
	// cannot read: an unreadable stream, text that is not UTF-8, or a row
	// carrying a non-finite score. Data-shape problems never produce it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownMode indicates that a scoring mode string is not recognized.
	ErrUnknownMode = errors.New("unknown scoring mode")

	// ErrUnknownPillar indicates that a pillar value is outside the closed set.
	ErrUnknownPillar = errors.New("unknown pillar")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// RowError describes why a single indicator row was refused by the
// aggregator. It wraps ErrInvalidInput so callers can test with errors.Is.
type RowError struct {
	// ProviderID identifies the provider the row belongs to.
	ProviderID string

	// IndicatorID identifies the indicator the row scores.
	IndicatorID string

	// Field names the offending field.
	Field string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for RowError.
func (e *RowError) Error() string {
	return fmt.Sprintf("row error: provider=%s, indicator=%s, field=%s, err=%v",
		e.ProviderID, e.IndicatorID, e.Field, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *RowError) Unwrap() error { return e.Err }

// NewRowError creates a new RowError for the given row and field.
func NewRowError(row IndicatorRow, field string, err error) *RowError {
	return &RowError{
		ProviderID:  row.ProviderID,
		IndicatorID: row.IndicatorID,
		Field:       field,
		Err:         err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
