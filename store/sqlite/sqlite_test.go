package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-office/ledger"
	"github.com/fleetops/fleet-office/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(y int, m time.Month, d int) ledger.Date {
	return ledger.NewDate(y, m, d)
}

func insertRec(t *testing.T, store *sqlite.Store, id, vehicle string, date ledger.Date, odometer int64, qty string) *ledger.FuelingRecord {
	t.Helper()
	rec := &ledger.FuelingRecord{
		ID:           ledger.RecordID(id),
		VehicleID:    ledger.VehicleID(vehicle),
		Date:         date,
		Odometer:     odometer,
		FuelQuantity: decimal.RequireFromString(qty),
	}
	require.NoError(t, store.Insert(context.Background(), rec))
	return rec
}

// =============================================================================
// LEDGER ROUNDTRIP TESTS
// =============================================================================

func TestSQLite_InsertAndGet_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertRec(t, store, "r1", "veh-1", day(2025, time.March, 10), 10400, "50.5")

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ledger.VehicleID("veh-1"), got.VehicleID)
	assert.True(t, got.Date.Equal(day(2025, time.March, 10)))
	assert.Equal(t, int64(10400), got.Odometer)
	assert.True(t, got.FuelQuantity.Equal(decimal.RequireFromString("50.5")))
	assert.Nil(t, got.Efficiency)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_Get_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Insert_AssignsMonotonicSeq(t *testing.T) {
	store := newTestStore(t)

	a := insertRec(t, store, "a", "veh-1", day(2025, time.March, 20), 300, "40")
	b := insertRec(t, store, "b", "veh-1", day(2025, time.March, 1), 100, "40")

	assert.Positive(t, a.Seq)
	assert.Less(t, a.Seq, b.Seq, "seq follows insertion order, not dates")
}

// =============================================================================
// CHAIN QUERY TESTS
// =============================================================================

func TestSQLite_Records_OrderedByDateThenSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertRec(t, store, "c", "veh-1", day(2025, time.March, 20), 300, "40")
	insertRec(t, store, "a", "veh-1", day(2025, time.March, 1), 100, "40")
	insertRec(t, store, "b1", "veh-1", day(2025, time.March, 10), 200, "40")
	insertRec(t, store, "b2", "veh-1", day(2025, time.March, 10), 250, "40")
	insertRec(t, store, "other", "veh-2", day(2025, time.March, 5), 999, "40")

	recs, err := store.Records(ctx, "veh-1")
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, ledger.RecordID("a"), recs[0].ID)
	assert.Equal(t, ledger.RecordID("b1"), recs[1].ID)
	assert.Equal(t, ledger.RecordID("b2"), recs[2].ID)
	assert.Equal(t, ledger.RecordID("c"), recs[3].ID)
}

func TestSQLite_RecordsFrom_InclusiveWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertRec(t, store, "a", "veh-1", day(2025, time.March, 1), 100, "40")
	insertRec(t, store, "b", "veh-1", day(2025, time.March, 10), 200, "40")
	insertRec(t, store, "c", "veh-1", day(2025, time.March, 20), 300, "40")

	recs, err := store.RecordsFrom(ctx, "veh-1", day(2025, time.March, 10))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ledger.RecordID("b"), recs[0].ID)
}

func TestSQLite_Neighbors_TupleComparison(t *testing.T) {
	// Same-day ties must resolve by seq, exactly like the in-memory
	// store, or neighbor resolution diverges between environments.
	store := newTestStore(t)
	ctx := context.Background()

	b1 := insertRec(t, store, "b1", "veh-1", day(2025, time.March, 10), 200, "40")
	b2 := insertRec(t, store, "b2", "veh-1", day(2025, time.March, 10), 250, "40")

	prev, err := store.Predecessor(ctx, "veh-1", b2.Pos(), b2.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, b1.ID, prev.ID)

	next, err := store.Successor(ctx, "veh-1", b1.Pos(), b1.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, b2.ID, next.ID)

	prev, err = store.Predecessor(ctx, "veh-1", ledger.InsertPos(day(2025, time.March, 10)), "")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, b2.ID, prev.ID, "a new same-day record lands after existing ones")

	next, err = store.Successor(ctx, "veh-1", ledger.InsertPos(day(2025, time.March, 10)), "")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestSQLite_LastBefore_StrictlyEarlierDatesOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertRec(t, store, "a", "veh-1", day(2025, time.March, 1), 100, "40")
	insertRec(t, store, "b", "veh-1", day(2025, time.March, 10), 200, "40")

	got, err := store.LastBefore(ctx, "veh-1", day(2025, time.March, 10))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ledger.RecordID("a"), got.ID)

	got, err = store.LastBefore(ctx, "veh-1", day(2025, time.March, 1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// UPDATE / DELETE / EFFICIENCY TESTS
// =============================================================================

func TestSQLite_Update_PreservesSeqAndEfficiency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := insertRec(t, store, "a", "veh-1", day(2025, time.March, 1), 100, "40")
	eight := decimal.NewFromInt(8)
	require.NoError(t, store.SaveEfficiency(ctx, rec.ID, &eight))

	changed := *rec
	changed.Date = day(2025, time.March, 15)
	changed.Odometer = 150
	require.NoError(t, store.Update(ctx, changed))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(day(2025, time.March, 15)))
	assert.Equal(t, int64(150), got.Odometer)
	assert.Equal(t, rec.Seq, got.Seq)
	require.NotNil(t, got.Efficiency)
	assert.True(t, got.Efficiency.Equal(eight), "efficiency untouched until the cascade rewrites it")
}

func TestSQLite_Update_Missing(t *testing.T) {
	store := newTestStore(t)
	err := store.Update(context.Background(), ledger.FuelingRecord{
		ID:           "nope",
		VehicleID:    "veh-1",
		Date:         day(2025, time.March, 1),
		FuelQuantity: decimal.NewFromInt(40),
	})
	assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestSQLite_SaveEfficiency_SetAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := insertRec(t, store, "a", "veh-1", day(2025, time.March, 1), 100, "40")

	eff := decimal.RequireFromString("12.5")
	require.NoError(t, store.SaveEfficiency(ctx, rec.ID, &eff))
	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Efficiency)
	assert.True(t, got.Efficiency.Equal(eff))

	require.NoError(t, store.SaveEfficiency(ctx, rec.ID, nil))
	got, err = store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Efficiency)

	assert.ErrorIs(t, store.SaveEfficiency(ctx, "nope", &eff), ledger.ErrRecordNotFound)
}

func TestSQLite_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insertRec(t, store, "a", "veh-1", day(2025, time.March, 1), 100, "40")

	require.NoError(t, store.Delete(ctx, "a"))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, store.Delete(ctx, "a"), ledger.ErrRecordNotFound)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestSQLite_WithTx_CommitKeepsWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s ledger.Store) error {
		return s.Insert(ctx, &ledger.FuelingRecord{
			ID:           "a",
			VehicleID:    "veh-1",
			Date:         day(2025, time.March, 1),
			Odometer:     100,
			FuelQuantity: decimal.NewFromInt(40),
		})
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSQLite_WithTx_ErrorRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.Insert(ctx, &ledger.FuelingRecord{
			ID:           "a",
			VehicleID:    "veh-1",
			Date:         day(2025, time.March, 1),
			Odometer:     100,
			FuelQuantity: decimal.NewFromInt(40),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got, "rolled back insert must not be visible")
}

func TestSQLite_WithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.Insert(ctx, &ledger.FuelingRecord{
			ID:           "a",
			VehicleID:    "veh-1",
			Date:         day(2025, time.March, 1),
			Odometer:     100,
			FuelQuantity: decimal.NewFromInt(40),
		}); err != nil {
			return err
		}
		got, err := s.Get(ctx, "a")
		if err != nil {
			return err
		}
		require.NotNil(t, got, "a transaction reads its own writes")
		return nil
	})
	require.NoError(t, err)
}

// =============================================================================
// VEHICLE TESTS
// =============================================================================

func TestSQLite_Vehicle_SaveGetList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVehicle(ctx, sqlite.Vehicle{
		ID:          "veh-1",
		PlateNumber: "AB-123-CD",
		Make:        "Renault",
		Model:       "Master",
		Year:        2021,
	}))

	got, err := store.GetVehicle(ctx, "veh-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AB-123-CD", got.PlateNumber)
	assert.Equal(t, "active", got.Status, "status defaults to active")
	assert.Zero(t, got.CurrentMileage)

	missing, err := store.GetVehicle(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveVehicle(ctx, sqlite.Vehicle{ID: "veh-2", PlateNumber: "ZZ-999-ZZ"}))
	all, err := store.ListVehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_Vehicle_DuplicatePlate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVehicle(ctx, sqlite.Vehicle{ID: "veh-1", PlateNumber: "AB-123-CD"}))
	err := store.SaveVehicle(ctx, sqlite.Vehicle{ID: "veh-2", PlateNumber: "AB-123-CD"})

	require.Error(t, err)
	assert.True(t, sqlite.IsDuplicatePlate(err))
}

func TestSQLite_RaiseMileage_Monotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVehicle(ctx, sqlite.Vehicle{ID: "veh-1", PlateNumber: "AB-123-CD"}))

	require.NoError(t, store.RaiseMileage(ctx, "veh-1", 500))
	require.NoError(t, store.RaiseMileage(ctx, "veh-1", 300))

	got, err := store.GetVehicle(ctx, "veh-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.CurrentMileage)
}

func TestSQLite_DeleteVehicle_RemovesHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVehicle(ctx, sqlite.Vehicle{ID: "veh-1", PlateNumber: "AB-123-CD"}))
	insertRec(t, store, "r1", "veh-1", day(2025, time.March, 1), 100, "40")
	require.NoError(t, store.SaveMaintenance(ctx, sqlite.MaintenanceEntry{
		ID:          "m1",
		VehicleID:   "veh-1",
		ServiceDate: day(2025, time.April, 1),
		Description: "oil change",
		Cost:        decimal.NewFromInt(80),
	}))

	require.NoError(t, store.DeleteVehicle(ctx, "veh-1"))

	v, err := store.GetVehicle(ctx, "veh-1")
	require.NoError(t, err)
	assert.Nil(t, v)

	recs, err := store.Records(ctx, "veh-1")
	require.NoError(t, err)
	assert.Empty(t, recs)

	entries, err := store.ListMaintenance(ctx, "veh-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// MAINTENANCE TESTS
// =============================================================================

func TestSQLite_Maintenance_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMaintenance(ctx, sqlite.MaintenanceEntry{
		ID: "m1", VehicleID: "veh-1", ServiceDate: day(2025, time.March, 1),
		Description: "oil change", Cost: decimal.NewFromInt(80),
	}))
	require.NoError(t, store.SaveMaintenance(ctx, sqlite.MaintenanceEntry{
		ID: "m2", VehicleID: "veh-1", ServiceDate: day(2025, time.April, 1),
		Description: "brake pads", Cost: decimal.RequireFromString("219.9"),
	}))

	entries, err := store.ListMaintenance(ctx, "veh-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m2", entries[0].ID)
	assert.Equal(t, "brake pads", entries[0].Description)
	assert.True(t, entries[0].Cost.Equal(decimal.RequireFromString("219.9")))
}
