package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fleetops/fleet-office/ledger"
)

// =============================================================================
// DERIVATION RULE TESTS
// =============================================================================

func TestDeriveEfficiency_PositiveInputs(t *testing.T) {
	// GIVEN: 400 km on 50 L
	// THEN: 8 km/L

	got := ledger.DeriveEfficiency(400, decimal.NewFromInt(50))
	assert.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromInt(8)), "got %s", got)
}

func TestDeriveEfficiency_RoundsToOneDecimal(t *testing.T) {
	got := ledger.DeriveEfficiency(100, decimal.NewFromInt(3))
	assert.NotNil(t, got)
	assert.Equal(t, "33.3", got.String())
}

func TestDeriveEfficiency_NonPositiveDistance(t *testing.T) {
	assert.Nil(t, ledger.DeriveEfficiency(0, decimal.NewFromInt(50)))
	assert.Nil(t, ledger.DeriveEfficiency(-10, decimal.NewFromInt(50)))
}

func TestDeriveEfficiency_NonPositiveFuel(t *testing.T) {
	// A zero fuel quantity is stored as-is; the derived value is simply
	// unknown, never a division error.
	assert.Nil(t, ledger.DeriveEfficiency(400, decimal.Zero))
	assert.Nil(t, ledger.DeriveEfficiency(400, decimal.NewFromInt(-5)))
}

func TestEfficiencyEqual(t *testing.T) {
	eight := decimal.NewFromInt(8)
	alsoEight := decimal.NewFromFloat(8.0)
	nine := decimal.NewFromInt(9)

	assert.True(t, ledger.EfficiencyEqual(nil, nil))
	assert.True(t, ledger.EfficiencyEqual(&eight, &alsoEight))
	assert.False(t, ledger.EfficiencyEqual(&eight, &nine))
	assert.False(t, ledger.EfficiencyEqual(&eight, nil))
	assert.False(t, ledger.EfficiencyEqual(nil, &eight))
}

// =============================================================================
// CHAIN POSITION TESTS
// =============================================================================

func TestChainPos_DateOrdersFirst(t *testing.T) {
	earlier := ledger.ChainPos{Date: ledger.NewDate(2025, time.March, 1), Seq: 99}
	later := ledger.ChainPos{Date: ledger.NewDate(2025, time.March, 2), Seq: 1}

	assert.True(t, earlier.Before(later))
	assert.False(t, later.Before(earlier))
}

func TestChainPos_SeqBreaksSameDayTies(t *testing.T) {
	day := ledger.NewDate(2025, time.March, 10)
	first := ledger.ChainPos{Date: day, Seq: 1}
	second := ledger.ChainPos{Date: day, Seq: 2}

	assert.True(t, first.Before(second))
	assert.False(t, second.Before(first))
	assert.False(t, first.Before(first), "strict order")
}

func TestInsertPos_SortsAfterExistingSameDayRecords(t *testing.T) {
	// GIVEN: A record already stored on March 10
	// WHEN: A new record for March 10 is positioned
	// THEN: The new record sorts after the existing one

	day := ledger.NewDate(2025, time.March, 10)
	existing := ledger.ChainPos{Date: day, Seq: 7}

	assert.True(t, existing.Before(ledger.InsertPos(day)))
	assert.False(t, ledger.InsertPos(day).Before(existing))
}
