package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-office/ledger"
	"github.com/fleetops/fleet-office/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(y int, m time.Month, d int) ledger.Date {
	return ledger.NewDate(y, m, d)
}

func rec(id, vehicle string, date ledger.Date, odometer int64) *ledger.FuelingRecord {
	return &ledger.FuelingRecord{
		ID:           ledger.RecordID(id),
		VehicleID:    ledger.VehicleID(vehicle),
		Date:         date,
		Odometer:     odometer,
		FuelQuantity: decimal.NewFromInt(40),
	}
}

func ids(recs []ledger.FuelingRecord) []ledger.RecordID {
	out := make([]ledger.RecordID, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// =============================================================================
// INSERT / ORDERING TESTS
// =============================================================================

func TestMemory_Insert_AssignsMonotonicSeq(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	a := rec("a", "veh-1", day(2025, time.March, 10), 100)
	b := rec("b", "veh-2", day(2025, time.March, 1), 200)
	require.NoError(t, mem.Insert(ctx, a))
	require.NoError(t, mem.Insert(ctx, b))

	assert.Less(t, a.Seq, b.Seq, "seq follows insertion order, not dates")
	assert.False(t, a.CreatedAt.IsZero())
	assert.False(t, a.UpdatedAt.IsZero())
}

func TestMemory_Insert_IgnoresCallerEfficiency(t *testing.T) {
	mem := store.NewMemory()
	eff := decimal.NewFromInt(9)
	r := rec("a", "veh-1", day(2025, time.March, 10), 100)
	r.Efficiency = &eff

	require.NoError(t, mem.Insert(context.Background(), r))

	stored, err := mem.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, stored.Efficiency, "efficiency is derived, never submitted")
}

func TestMemory_Records_SortedByDateThenSeq(t *testing.T) {
	// Insert out of order, including a same-day pair; the chain comes
	// back in (date, seq) order.
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Insert(ctx, rec("c", "veh-1", day(2025, time.March, 20), 300)))
	require.NoError(t, mem.Insert(ctx, rec("a", "veh-1", day(2025, time.March, 1), 100)))
	require.NoError(t, mem.Insert(ctx, rec("b1", "veh-1", day(2025, time.March, 10), 200)))
	require.NoError(t, mem.Insert(ctx, rec("b2", "veh-1", day(2025, time.March, 10), 250)))

	recs, err := mem.Records(ctx, "veh-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.RecordID{"a", "b1", "b2", "c"}, ids(recs))
}

// =============================================================================
// NEIGHBOR LOOKUP TESTS
// =============================================================================

func TestMemory_Neighbors_SameDayTiesUseSeq(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	b1 := rec("b1", "veh-1", day(2025, time.March, 10), 200)
	b2 := rec("b2", "veh-1", day(2025, time.March, 10), 250)
	require.NoError(t, mem.Insert(ctx, b1))
	require.NoError(t, mem.Insert(ctx, b2))

	// From b2's own position, b1 is the predecessor.
	prev, err := mem.Predecessor(ctx, "veh-1", b2.Pos(), b2.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, b1.ID, prev.ID)

	// From b1's position, b2 is the successor.
	next, err := mem.Successor(ctx, "veh-1", b1.Pos(), b1.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, b2.ID, next.ID)

	// A brand-new same-day record would land after both.
	prev, err = mem.Predecessor(ctx, "veh-1", ledger.InsertPos(day(2025, time.March, 10)), "")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, b2.ID, prev.ID)
}

func TestMemory_Neighbors_ExcludeSkipsTheRecordItself(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	a := rec("a", "veh-1", day(2025, time.March, 1), 100)
	b := rec("b", "veh-1", day(2025, time.March, 10), 200)
	require.NoError(t, mem.Insert(ctx, a))
	require.NoError(t, mem.Insert(ctx, b))

	// Repositioning b onto a later date: its predecessor search must
	// not find b's own row.
	prev, err := mem.Predecessor(ctx, "veh-1", ledger.ChainPos{Date: day(2025, time.March, 15), Seq: b.Seq}, b.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, a.ID, prev.ID)
}

func TestMemory_LastBefore_StrictlyEarlierDatesOnly(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Insert(ctx, rec("a", "veh-1", day(2025, time.March, 1), 100)))
	require.NoError(t, mem.Insert(ctx, rec("b", "veh-1", day(2025, time.March, 10), 200)))

	got, err := mem.LastBefore(ctx, "veh-1", day(2025, time.March, 10))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ledger.RecordID("a"), got.ID, "same-day records do not count")

	got, err = mem.LastBefore(ctx, "veh-1", day(2025, time.March, 1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// UPDATE / DELETE TESTS
// =============================================================================

func TestMemory_Update_RepositionsAndPreservesIdentity(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	a := rec("a", "veh-1", day(2025, time.March, 1), 100)
	b := rec("b", "veh-1", day(2025, time.March, 10), 200)
	require.NoError(t, mem.Insert(ctx, a))
	require.NoError(t, mem.Insert(ctx, b))

	moved := *a
	moved.Date = day(2025, time.March, 20)
	moved.Odometer = 300
	require.NoError(t, mem.Update(ctx, moved))

	recs, err := mem.Records(ctx, "veh-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.RecordID{"b", "a"}, ids(recs))
	assert.Equal(t, a.Seq, recs[1].Seq, "seq survives repositioning")
	assert.Equal(t, a.CreatedAt, recs[1].CreatedAt)
}

func TestMemory_Update_MovesBetweenVehicles(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	a := rec("a", "veh-1", day(2025, time.March, 1), 100)
	require.NoError(t, mem.Insert(ctx, a))

	moved := *a
	moved.VehicleID = "veh-2"
	require.NoError(t, mem.Update(ctx, moved))

	donor, err := mem.Records(ctx, "veh-1")
	require.NoError(t, err)
	assert.Empty(t, donor)

	receiver, err := mem.Records(ctx, "veh-2")
	require.NoError(t, err)
	assert.Equal(t, []ledger.RecordID{"a"}, ids(receiver))
}

func TestMemory_Update_MissingRecord(t *testing.T) {
	mem := store.NewMemory()
	err := mem.Update(context.Background(), *rec("nope", "veh-1", day(2025, time.March, 1), 100))
	assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestMemory_Delete_RemovesFromChain(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Insert(ctx, rec("a", "veh-1", day(2025, time.March, 1), 100)))
	require.NoError(t, mem.Delete(ctx, "a"))

	got, err := mem.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, mem.Delete(ctx, "a"), ledger.ErrRecordNotFound)
}

// =============================================================================
// EFFICIENCY / MILEAGE TESTS
// =============================================================================

func TestMemory_SaveEfficiency_SetAndClear(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Insert(ctx, rec("a", "veh-1", day(2025, time.March, 1), 100)))

	eight := decimal.NewFromInt(8)
	require.NoError(t, mem.SaveEfficiency(ctx, "a", &eight))
	got, err := mem.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.Efficiency)
	assert.True(t, got.Efficiency.Equal(eight))

	require.NoError(t, mem.SaveEfficiency(ctx, "a", nil))
	got, err = mem.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got.Efficiency)

	assert.ErrorIs(t, mem.SaveEfficiency(ctx, "nope", &eight), ledger.ErrRecordNotFound)
}

func TestMemory_RaiseMileage_Monotonic(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.RaiseMileage(ctx, "veh-1", 500))
	require.NoError(t, mem.RaiseMileage(ctx, "veh-1", 300))
	assert.Equal(t, int64(500), mem.CurrentMileage("veh-1"))

	require.NoError(t, mem.RaiseMileage(ctx, "veh-1", 700))
	assert.Equal(t, int64(700), mem.CurrentMileage("veh-1"))
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestMemory_WithTx_CommitKeepsWrites(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	err := mem.WithTx(ctx, func(s ledger.Store) error {
		return s.Insert(ctx, rec("a", "veh-1", day(2025, time.March, 1), 100))
	})
	require.NoError(t, err)

	got, err := mem.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemory_WithTx_ErrorRollsBackEverything(t *testing.T) {
	// GIVEN: One committed record and some cached mileage
	// WHEN: A transaction writes records, efficiency and mileage, then fails
	// THEN: All of it is rolled back

	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Insert(ctx, rec("a", "veh-1", day(2025, time.March, 1), 100)))
	require.NoError(t, mem.RaiseMileage(ctx, "veh-1", 100))

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s ledger.Store) error {
		if err := s.Insert(ctx, rec("b", "veh-1", day(2025, time.March, 10), 200)); err != nil {
			return err
		}
		eight := decimal.NewFromInt(8)
		if err := s.SaveEfficiency(ctx, "a", &eight); err != nil {
			return err
		}
		if err := s.(ledger.MileageCache).RaiseMileage(ctx, "veh-1", 200); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	recs, err := mem.Records(ctx, "veh-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.RecordID{"a"}, ids(recs))
	assert.Nil(t, recs[0].Efficiency)
	assert.Equal(t, int64(100), mem.CurrentMileage("veh-1"))
}

func TestMemory_WithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	err := mem.WithTx(ctx, func(s ledger.Store) error {
		if err := s.Insert(ctx, rec("a", "veh-1", day(2025, time.March, 1), 100)); err != nil {
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
