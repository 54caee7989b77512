/*
errors.go - Centralized error types for the fuel ledger

PURPOSE:
  All ledger error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Validation errors - User-correctable data-entry conflicts, rejected
     before any write. The API layer surfaces the conflicting values.
  2. Not-found errors  - The referenced record or vehicle does not exist.
  3. Storage errors    - Anything else that escapes a store call. Fatal
     to the current mutation; the coordinator rolls the whole unit back.

USAGE:
  if ledger.IsValidation(err) {
      // 400: show the operator the conflicting readings
  }

SEE ALSO:
  - validate.go:    Produces the validation errors
  - coordinator.go: Propagation and rollback policy
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMileageBelowPrevious is returned when a record's odometer reading
	// is not strictly greater than its predecessor's.
	ErrMileageBelowPrevious = errors.New("mileage not greater than previous record")

	// ErrMileageAboveNext is returned when a record's odometer reading is
	// not strictly less than its successor's.
	ErrMileageAboveNext = errors.New("mileage not less than next record")

	// ErrFutureDate is returned for a fueling dated after the processing day.
	ErrFutureDate = errors.New("fueling date is in the future")

	// ErrNegativeOdometer is returned for a negative odometer reading.
	ErrNegativeOdometer = errors.New("odometer reading must not be negative")

	// ErrRecordNotFound is returned when the referenced fueling record
	// does not exist.
	ErrRecordNotFound = errors.New("fueling record not found")

	// ErrVehicleNotFound is returned when the referenced vehicle does not exist.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrConcurrentModification is returned when a record moved between
	// vehicles while a mutation on it was being prepared. Safe to retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the conflicting values
// =============================================================================

// ConflictBound names which neighbor a mileage conflict is against.
type ConflictBound string

const (
	BoundPrevious ConflictBound = "previous"
	BoundNext     ConflictBound = "next"
)

// MileageConflictError reports an odometer reading that is not strictly
// between its neighbors. Both readings are included so the UI can
// explain the conflict to the operator.
type MileageConflictError struct {
	VehicleID    VehicleID
	Bound        ConflictBound
	Reading      int64
	Neighbor     int64
	NeighborDate Date
}

func (e *MileageConflictError) Error() string {
	if e.Bound == BoundPrevious {
		return fmt.Sprintf("mileage %d is not greater than the previous record's %d (on %s)",
			e.Reading, e.Neighbor, e.NeighborDate)
	}
	return fmt.Sprintf("mileage %d is not less than the next record's %d (on %s)",
		e.Reading, e.Neighbor, e.NeighborDate)
}

func (e *MileageConflictError) Unwrap() error {
	if e.Bound == BoundPrevious {
		return ErrMileageBelowPrevious
	}
	return ErrMileageAboveNext
}

// FutureDateError reports a fueling dated after the processing day.
type FutureDateError struct {
	Date  Date
	Today Date
}

func (e *FutureDateError) Error() string {
	return fmt.Sprintf("fueling date %s is after the current date %s", e.Date, e.Today)
}

func (e *FutureDateError) Unwrap() error { return ErrFutureDate }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is a user-correctable
// data-entry rejection (never written, safe to surface as-is).
func IsValidation(err error) bool {
	return errors.Is(err, ErrMileageBelowPrevious) ||
		errors.Is(err, ErrMileageAboveNext) ||
		errors.Is(err, ErrFutureDate) ||
		errors.Is(err, ErrNegativeOdometer)
}

// IsNotFound returns true if the error indicates a missing record or vehicle.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrVehicleNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
