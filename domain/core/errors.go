package core

import (
	"errors"
	"fmt"
)

// Engine error taxonomy - centralized sentinel definitions
var (
	// Configuration errors fail the whole run before any training starts.
	ErrConfiguration = errors.New("configuration error")
	ErrUnknownKernel = fmt.Errorf("%w: unknown kernel family", ErrConfiguration)
	ErrIndexMismatch = fmt.Errorf("%w: cell index mismatch", ErrConfiguration)
	ErrViewCollision = fmt.Errorf("%w: duplicate view name", ErrConfiguration)
	ErrInvalidFolds  = fmt.Errorf("%w: fold count must be >= 2", ErrConfiguration)

	// Data errors fail the whole run before any training starts.
	ErrData              = errors.New("data error")
	ErrDuplicateFeature  = fmt.Errorf("%w: duplicate feature name", ErrData)
	ErrDuplicateCell     = fmt.Errorf("%w: duplicate cell identifier", ErrData)
	ErrMissingCoordinate = fmt.Errorf("%w: cell absent from coordinates", ErrData)
	ErrNonFinite         = fmt.Errorf("%w: non-finite value in input", ErrData)

	// Model-fit errors are localized to one (target, view, fold) unit and
	// never abort sibling units.
	ErrModelFit   = errors.New("model fit error")
	ErrDegenerate = fmt.Errorf("%w: all predictors degenerate", ErrModelFit)

	// Persistence errors are surfaced to the caller, not retried.
	ErrPersistence = errors.New("persistence error")
	ErrRunNotFound = fmt.Errorf("%w: run label not found", ErrPersistence)
)

// Error constructors with context

func NewConfigError(detail string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, detail)
}

func NewKernelError(family string) error {
	return fmt.Errorf("%w: %q", ErrUnknownKernel, family)
}

func NewIndexMismatchError(subject string) error {
	return fmt.Errorf("%w: %s", ErrIndexMismatch, subject)
}

func NewMissingCoordinateError(cellID string) error {
	return fmt.Errorf("%w: %s", ErrMissingCoordinate, cellID)
}

func NewNonFiniteError(feature string, row int) error {
	return fmt.Errorf("%w: feature %s row %d", ErrNonFinite, feature, row)
}

func NewDegenerateError(target, view string, fold int) error {
	return fmt.Errorf("%w: target %s view %s fold %d", ErrDegenerate, target, view, fold)
}

// Error checking helpers

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrData)
}

func IsModelFitError(err error) bool {
	return errors.Is(err, ErrModelFit)
}

func IsPersistenceError(err error) bool {
	return errors.Is(err, ErrPersistence)
}
