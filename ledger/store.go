/*
store.go - Persistence interfaces for the fuel ledger

PURPOSE:
  Defines the contract between the ledger algorithms and the database.
  The algorithms (neighbor resolution, validation, cascade) only ever
  see these interfaces, so they can be unit-tested against an in-memory
  ordered store with no live database.

KEY INTERFACES:
  Store:        Record persistence plus the ordered chain queries
  TxStore:      Atomic multi-write units (validate + write + cascade)
  MileageCache: The vehicle's denormalized current-mileage projection

ORDERED QUERY CONTRACT:
  All chain queries order by (effective date, seq, id) ascending.
  Predecessor/Successor are strict: they never return the excluded
  record or a record at the candidate position itself.

EFFICIENCY OWNERSHIP:
  SaveEfficiency is the ONLY way the derived value is written. Insert
  and Update never persist a caller-supplied efficiency; the cascade
  recomputes it after every mutation.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - coordinator.go: The only writer, always inside WithTx
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Record persistence and ordered chain queries
// =============================================================================

type Store interface {
	// Insert persists a new record and assigns its Seq (and timestamps).
	// The record's Efficiency is ignored; the cascade derives it.
	Insert(ctx context.Context, rec *FuelingRecord) error

	// Get returns the record, or nil if it does not exist.
	Get(ctx context.Context, id RecordID) (*FuelingRecord, error)

	// Update rewrites the record's fields. Seq and CreatedAt are preserved;
	// Efficiency is left untouched (SaveEfficiency owns it).
	Update(ctx context.Context, rec FuelingRecord) error

	// Delete removes the record. Deleting a missing record is an error.
	Delete(ctx context.Context, id RecordID) error

	// Predecessor returns the nearest record strictly before pos in the
	// vehicle's chain, excluding the given record id. Nil if none.
	Predecessor(ctx context.Context, vehicleID VehicleID, pos ChainPos, exclude RecordID) (*FuelingRecord, error)

	// Successor returns the nearest record strictly after pos in the
	// vehicle's chain, excluding the given record id. Nil if none.
	Successor(ctx context.Context, vehicleID VehicleID, pos ChainPos, exclude RecordID) (*FuelingRecord, error)

	// LastBefore returns the vehicle's last record dated strictly before
	// the given day. Nil if none. Seeds the cascade baseline.
	LastBefore(ctx context.Context, vehicleID VehicleID, before Date) (*FuelingRecord, error)

	// RecordsFrom returns the vehicle's records dated at or after the
	// given day, ascending by (date, seq, id).
	RecordsFrom(ctx context.Context, vehicleID VehicleID, from Date) ([]FuelingRecord, error)

	// Records returns the vehicle's full chain, ascending by (date, seq, id).
	Records(ctx context.Context, vehicleID VehicleID) ([]FuelingRecord, error)

	// SaveEfficiency persists the derived efficiency for one record.
	// nil means "unknown". Only the Recalculator calls this.
	SaveEfficiency(ctx context.Context, id RecordID, eff *decimal.Decimal) error
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic mutation units
// =============================================================================

// TxStore wraps Store with transaction support. A mutation's validate,
// write, mileage-cache bump, and cascade all run within one WithTx call:
// if fn returns an error nothing is persisted.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// MILEAGE CACHE - Denormalized vehicle mileage projection
// =============================================================================

// MileageCache maintains the vehicle's "current mileage" field as a
// monotonic max over the readings written to the ledger. It is an
// eventually-consistent convenience, never a source of truth; precise
// reads scan the ledger instead.
//
// Transaction-scoped stores implement this so the bump commits (or rolls
// back) with the record write.
type MileageCache interface {
	RaiseMileage(ctx context.Context, vehicleID VehicleID, odometer int64) error
}
