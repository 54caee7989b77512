/*
Package ledger implements the fuel-efficiency ledger.

PURPOSE:
  For every vehicle, fueling events form a chronological chain where each
  event's derived "distance per unit fuel" depends on the immediately
  preceding event's odometer reading. This package owns that chain:
  the record model, the ordering, the validation applied on mutation,
  and the cascade that re-derives efficiency after any change.

KEY CONCEPTS IN THIS FILE (types.go):
  - FuelingRecord: One fueling event with its derived efficiency
  - ChainPos:      A record's position in its vehicle's chain
  - Derivation:    distance / fuel, rounded to one decimal, or unknown

ORDERING INVARIANT (per vehicle):
  Records are totally ordered by (Date, Seq, ID) ascending. Within that
  order the odometer reading must be strictly increasing between any
  predecessor/successor pair. The Seq value is assigned once at insert
  and never changes, so "which was recorded first" survives edits and
  cross-vehicle moves.

OWNERSHIP:
  Efficiency is written only by the Recalculator. Nothing else in the
  repository may set it.

SEE ALSO:
  - neighbors.go:   Predecessor/successor resolution
  - validate.go:    Pre-write mutation checks
  - recalc.go:      Forward cascade recomputation
  - coordinator.go: Atomic create/update/delete units
*/
package ledger

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RecordID string
type VehicleID string

// =============================================================================
// FUELING RECORD - One fueling event
// =============================================================================

// FuelingRecord is a single fueling event in a vehicle's chain.
//
// Efficiency is nil when it cannot be derived: no predecessor exists,
// the computed distance is non-positive, or the fuel quantity is
// non-positive. That is a legitimate "unknown" state, not an error.
type FuelingRecord struct {
	ID           RecordID
	VehicleID    VehicleID
	Date         Date
	Odometer     int64
	FuelQuantity decimal.Decimal
	Efficiency   *decimal.Decimal

	// Seq breaks ties among same-day records for the same vehicle.
	// Store-assigned at insert, monotonically increasing, immutable.
	Seq int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Pos returns the record's position in its vehicle's chain.
func (r FuelingRecord) Pos() ChainPos {
	return ChainPos{Date: r.Date, Seq: r.Seq}
}

// =============================================================================
// CHAIN POSITION - Where a record sits in the (Date, Seq) order
// =============================================================================

// ChainPos identifies a position in a vehicle's chain. Seq values are
// unique per store, so (Date, Seq) is a strict total order.
type ChainPos struct {
	Date Date
	Seq  int64
}

// Before reports whether p sorts strictly before o.
func (p ChainPos) Before(o ChainPos) bool {
	if !p.Date.Equal(o.Date) {
		return p.Date.Before(o.Date)
	}
	return p.Seq < o.Seq
}

// InsertPos is the position a brand-new record would take on the given
// day: after every existing record sharing that date, because its Seq
// will be the highest assigned so far.
func InsertPos(d Date) ChainPos {
	return ChainPos{Date: d, Seq: math.MaxInt64}
}

// =============================================================================
// DERIVATION RULE
// =============================================================================

// DeriveEfficiency computes distance-per-fuel-unit for one chain step.
// Returns nil unless both the distance and the fuel quantity are
// positive; the ratio is rounded to one decimal place.
func DeriveEfficiency(distance int64, fuel decimal.Decimal) *decimal.Decimal {
	if distance <= 0 || !fuel.IsPositive() {
		return nil
	}
	eff := decimal.NewFromInt(distance).Div(fuel).Round(1)
	return &eff
}

// EfficiencyEqual compares two nullable efficiency values.
func EfficiencyEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
