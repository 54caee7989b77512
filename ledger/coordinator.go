/*
coordinator.go - Atomic mutation units for the fuel ledger

PURPOSE:
  The Coordinator is the ledger's only write path. It wraps one logical
  operation (create / update / delete) as an atomic unit:

    1. Resolve neighbors and validate (create/update only)
    2. Perform the record write
    3. Raise the vehicle's denormalized current-mileage cache
    4. Cascade-recalculate every affected vehicle/date window
    5. Commit - or roll the whole unit back on any failure

CASCADE WINDOWS:
  create:  from the new record's date on its vehicle
  update:  from min(old date, new date) on the vehicle; a cross-vehicle
           move instead runs two independent cascades, one per vehicle,
           each from its own earliest affected date
  delete:  from the deleted record's date on its vehicle

  The min(old, new) window applies even when only minor fields changed
  (fuel quantity, odometer): any field change to a record in the chain
  requires at least a one-record-forward recheck.

CONCURRENCY:
  A per-vehicle mutex serializes same-vehicle mutations end to end, so a
  validator's neighbor snapshot cannot go stale before its write lands.
  Cross-vehicle moves hold both vehicles' locks. Everything inside the
  lock runs under a single store transaction.

FAILURE SEMANTICS:
  Validation rejections are typed results the caller surfaces to the
  operator (IsValidation). Storage failures abort the unit; the ledger
  is left exactly as it was - no partial cascade, no mileage bump
  without its record write.

SEE ALSO:
  - validate.go: The pre-write gate
  - recalc.go:   The forward cascade
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MUTATION COORDINATOR
// =============================================================================

type Coordinator struct {
	store TxStore
	locks *vehicleLocks

	// Clock supplies the processing day for the future-date check.
	// Overridable in tests; defaults to Today.
	Clock func() Date
}

func NewCoordinator(store TxStore) *Coordinator {
	return &Coordinator{
		store: store,
		locks: newVehicleLocks(),
		Clock: Today,
	}
}

// NewRecord is a fueling-event submission.
type NewRecord struct {
	VehicleID    VehicleID
	Date         Date
	Odometer     int64
	FuelQuantity decimal.Decimal
}

// RecordPatch carries the fields an edit wants to change. Nil fields
// keep their current value. A non-nil VehicleID moves the record to
// another vehicle's chain.
type RecordPatch struct {
	VehicleID    *VehicleID
	Date         *Date
	Odometer     *int64
	FuelQuantity *decimal.Decimal
}

// =============================================================================
// CREATE
// =============================================================================

// CreateRecord validates and inserts a new fueling record, then cascades
// from its date. Returns the stored record with its derived efficiency.
func (c *Coordinator) CreateRecord(ctx context.Context, in NewRecord) (*FuelingRecord, error) {
	unlock := c.locks.Lock(in.VehicleID)
	defer unlock()

	rec := &FuelingRecord{
		ID:           RecordID(uuid.NewString()),
		VehicleID:    in.VehicleID,
		Date:         in.Date,
		Odometer:     in.Odometer,
		FuelQuantity: in.FuelQuantity,
	}

	err := c.store.WithTx(ctx, func(s Store) error {
		nb, err := NewNeighborResolver(s).Resolve(ctx, in.VehicleID, InsertPos(in.Date), "")
		if err != nil {
			return err
		}
		candidate := Candidate{VehicleID: in.VehicleID, Date: in.Date, Odometer: in.Odometer}
		if err := ValidateMutation(candidate, nb, c.Clock()); err != nil {
			return err
		}
		if err := s.Insert(ctx, rec); err != nil {
			return err
		}
		if err := raiseMileage(ctx, s, in.VehicleID, in.Odometer); err != nil {
			return err
		}
		_, err = NewRecalculator(s).RecalculateFrom(ctx, in.VehicleID, in.Date)
		return err
	})
	if err != nil {
		return nil, err
	}

	return c.store.Get(ctx, rec.ID)
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateRecord applies a patch to an existing record, revalidates it at
// its new chain position, and cascades. Same-vehicle edits cascade from
// min(old date, new date); a cross-vehicle move repairs both chains.
func (c *Coordinator) UpdateRecord(ctx context.Context, id RecordID, patch RecordPatch) (*FuelingRecord, error) {
	// Pre-read outside the transaction to learn which vehicles to lock.
	existing, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrRecordNotFound
	}

	oldVehicle := existing.VehicleID
	newVehicle := oldVehicle
	if patch.VehicleID != nil {
		newVehicle = *patch.VehicleID
	}

	unlock := c.locks.LockPair(oldVehicle, newVehicle)
	defer unlock()

	err = c.store.WithTx(ctx, func(s Store) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrRecordNotFound
		}
		if cur.VehicleID != oldVehicle {
			// The record moved between the pre-read and lock acquisition;
			// the locks held do not cover its current chain.
			return ErrConcurrentModification
		}

		next := *cur
		next.VehicleID = newVehicle
		if patch.Date != nil {
			next.Date = *patch.Date
		}
		if patch.Odometer != nil {
			next.Odometer = *patch.Odometer
		}
		if patch.FuelQuantity != nil {
			next.FuelQuantity = *patch.FuelQuantity
		}

		// The record keeps its Seq, so its position among same-day
		// records on the target chain is (new date, original seq).
		pos := ChainPos{Date: next.Date, Seq: cur.Seq}
		nb, err := NewNeighborResolver(s).Resolve(ctx, next.VehicleID, pos, id)
		if err != nil {
			return err
		}
		candidate := Candidate{VehicleID: next.VehicleID, Date: next.Date, Odometer: next.Odometer}
		if err := ValidateMutation(candidate, nb, c.Clock()); err != nil {
			return err
		}

		if err := s.Update(ctx, next); err != nil {
			return err
		}
		if err := raiseMileage(ctx, s, next.VehicleID, next.Odometer); err != nil {
			return err
		}

		recalc := NewRecalculator(s)
		if newVehicle == oldVehicle {
			_, err = recalc.RecalculateFrom(ctx, oldVehicle, MinDate(cur.Date, next.Date))
			return err
		}
		// Cross-vehicle move: repair the gap left behind, then integrate
		// into the new chain. Each cascade only needs its own vehicle's
		// earliest affected date.
		if _, err := recalc.RecalculateFrom(ctx, oldVehicle, cur.Date); err != nil {
			return err
		}
		_, err = recalc.RecalculateFrom(ctx, newVehicle, next.Date)
		return err
	})
	if err != nil {
		return nil, err
	}

	return c.store.Get(ctx, id)
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteRecord removes a record and cascades from its date, so the
// former successor re-derives against its new (possibly absent)
// predecessor. The mileage cache is never lowered by a delete.
func (c *Coordinator) DeleteRecord(ctx context.Context, id RecordID) error {
	existing, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrRecordNotFound
	}

	unlock := c.locks.Lock(existing.VehicleID)
	defer unlock()

	return c.store.WithTx(ctx, func(s Store) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrRecordNotFound
		}
		if cur.VehicleID != existing.VehicleID {
			return ErrConcurrentModification
		}

		if err := s.Delete(ctx, id); err != nil {
			return err
		}
		_, err = NewRecalculator(s).RecalculateFrom(ctx, cur.VehicleID, cur.Date)
		return err
	})
}

// raiseMileage bumps the vehicle's cached current mileage when the
// transaction-scoped store maintains one. A store without the
// projection simply skips it; a failed bump aborts the whole unit, so
// the cache can never record a reading whose record write rolled back.
func raiseMileage(ctx context.Context, s Store, vehicleID VehicleID, odometer int64) error {
	if mc, ok := s.(MileageCache); ok {
		return mc.RaiseMileage(ctx, vehicleID, odometer)
	}
	return nil
}
