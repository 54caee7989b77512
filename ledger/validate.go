/*
validate.go - Pre-write mutation validation

PURPOSE:
  Checks a candidate record (new or edited) against its would-be
  neighbors BEFORE anything is written. Without this gate, a cascade
  would silently turn a data-entry mistake into a chain of "unknown"
  efficiencies (the nil-on-non-positive rule masks negative distances)
  instead of surfacing a clear error to the operator.

WHAT IT CHECKS:
  1. Odometer reading is non-negative.
  2. Effective date is not after the processing day.
  3. Reading strictly greater than the predecessor's, when one exists.
  4. Reading strictly less than the successor's, when one exists.

WHAT IT DOES NOT DO:
  It never computes efficiency. Derivation is the Recalculator's job,
  run after the write, which keeps this check side-effect-free.

  Fuel quantity is deliberately NOT validated here: a non-positive
  quantity yields an unknown efficiency rather than a rejected write.

SEE ALSO:
  - neighbors.go: Supplies the Neighbors argument
  - errors.go:    The structured rejections returned here
*/
package ledger

import "fmt"

// Candidate is the record-to-be as seen by the validator: just the
// fields the invariants constrain.
type Candidate struct {
	VehicleID VehicleID
	Date      Date
	Odometer  int64
}

// ValidateMutation rejects a candidate that would break the chain's
// ordering invariant or post-date the processing day. Returns nil when
// the write may proceed.
func ValidateMutation(c Candidate, nb Neighbors, today Date) error {
	if c.Odometer < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeOdometer, c.Odometer)
	}
	if c.Date.After(today) {
		return &FutureDateError{Date: c.Date, Today: today}
	}
	if p := nb.Predecessor; p != nil && c.Odometer <= p.Odometer {
		return &MileageConflictError{
			VehicleID:    c.VehicleID,
			Bound:        BoundPrevious,
			Reading:      c.Odometer,
			Neighbor:     p.Odometer,
			NeighborDate: p.Date,
		}
	}
	if s := nb.Successor; s != nil && c.Odometer >= s.Odometer {
		return &MileageConflictError{
			VehicleID:    c.VehicleID,
			Bound:        BoundNext,
			Reading:      c.Odometer,
			Neighbor:     s.Odometer,
			NeighborDate: s.Date,
		}
	}
	return nil
}
