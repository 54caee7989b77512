/*
recalc.go - Cascade recomputation of derived efficiency

PURPOSE:
  After any mutation, re-derives Efficiency for every record of the
  affected vehicle at or after the earliest touched date.

WHY FORWARD-ONLY FROM THE EARLIEST TOUCHED POINT IS SUFFICIENT:
  A record's efficiency depends only on itself and its immediate
  predecessor's odometer reading. A mutation can change the mutated
  record's own value, its successor's (whose predecessor reading may
  have changed), and transitively everything after it. Records strictly
  before the earliest touched date never see their predecessor change,
  so they are invariant and are never fetched.

ALGORITHM:
  1. Seed the baseline from the last record dated strictly before the
     start date (nil baseline if none).
  2. Walk the records at or after the start date in chain order.
  3. Derive each record's efficiency from the running baseline and
     persist it when it changed.
  4. ALWAYS advance the baseline to the record's own reading - even when
     the derived value was unknown - because the baseline tracks position
     in the chain, not validity.

SEE ALSO:
  - types.go:       DeriveEfficiency (the per-step rule)
  - coordinator.go: Chooses the cascade windows per mutation
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CASCADE RECALCULATOR
// =============================================================================

type Recalculator struct {
	store Store
}

func NewRecalculator(store Store) *Recalculator {
	return &Recalculator{store: store}
}

// RecalculateFrom re-derives Efficiency for every record of the vehicle
// dated at or after from, in chain order. Returns how many records had
// their stored value changed. Running it twice with no intervening
// writes changes nothing the second time.
func (r *Recalculator) RecalculateFrom(ctx context.Context, vehicleID VehicleID, from Date) (int, error) {
	var baseline *int64
	if prev, err := r.store.LastBefore(ctx, vehicleID, from); err != nil {
		return 0, fmt.Errorf("failed to seed cascade baseline: %w", err)
	} else if prev != nil {
		odo := prev.Odometer
		baseline = &odo
	}

	recs, err := r.store.RecordsFrom(ctx, vehicleID, from)
	if err != nil {
		return 0, fmt.Errorf("failed to load cascade window: %w", err)
	}

	changed := 0
	for i := range recs {
		rec := &recs[i]

		var derived *decimal.Decimal
		if baseline != nil {
			derived = DeriveEfficiency(rec.Odometer-*baseline, rec.FuelQuantity)
		}
		if !EfficiencyEqual(derived, rec.Efficiency) {
			if err := r.store.SaveEfficiency(ctx, rec.ID, derived); err != nil {
				return changed, fmt.Errorf("failed to persist efficiency for %s: %w", rec.ID, err)
			}
			changed++
		}

		odo := rec.Odometer
		baseline = &odo
	}
	return changed, nil
}
