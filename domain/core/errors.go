package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural input errors (fatal to the single output unit affected)
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrSchemaMismatch  = errors.New("dataset schema mismatch")
	ErrColumnNotFound  = errors.New("column not found")

	// Analysis errors
	ErrModelFit         = errors.New("model fit failed")
	ErrEmptyPopulation  = errors.New("population is empty")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Parameter errors
	ErrUnknownPopulation = errors.New("unknown population definition")
	ErrInvalidConfLevel  = errors.New("confidence level must be in (0, 1)")
)

// Error constructors with context

// NewDatasetNotFoundError reports a missing dataset file with its resolved path.
func NewDatasetNotFoundError(dataset, path string) error {
	return fmt.Errorf("%w: %s (looked for %s)", ErrDatasetNotFound, dataset, path)
}

// NewSchemaMismatchError reports a missing or mistyped column in a dataset.
func NewSchemaMismatchError(dataset, column, reason string) error {
	return fmt.Errorf("%w: %s column %s: %s", ErrSchemaMismatch, dataset, column, reason)
}

// NewColumnNotFoundError reports a column lookup failure with table context.
func NewColumnNotFoundError(table, column string) error {
	return fmt.Errorf("%w: %s in table %s", ErrColumnNotFound, column, table)
}

// NewModelFitError reports a model that could not be fit, with the model formula.
func NewModelFitError(formula, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrModelFit, formula, reason)
}

// NewEmptyPopulationError reports a population that selected no subjects.
func NewEmptyPopulationError(population, arm string) error {
	if arm == "" {
		return fmt.Errorf("%w: %s", ErrEmptyPopulation, population)
	}
	return fmt.Errorf("%w: %s in arm %s", ErrEmptyPopulation, population, arm)
}

// Error checking helpers
func IsDatasetNotFound(err error) bool {
	return errors.Is(err, ErrDatasetNotFound)
}

func IsSchemaMismatch(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

func IsModelFitError(err error) bool {
	return errors.Is(err, ErrModelFit)
}

// IsStructuralError reports whether the error is a structural input error,
// fatal to the single report output that triggered it but never to siblings.
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrDatasetNotFound) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrColumnNotFound)
}
