/*
Package reports computes read-only aggregates over the fuel ledger.

PURPOSE:
  Turns a vehicle's ordered fueling chain into the numbers back-office
  screens care about: totals, averages and best/worst efficiency. Pure
  functions over records - no store access, no writes.

KEY CONCEPTS:
  - Measured record: a record with a derived efficiency. The chain head
    and zero-fuel records carry no efficiency; they count toward
    RecordCount but are excluded from distance, fuel and efficiency
    aggregates.
  - Alert: a threshold check on the summary. Evaluation consumes
    aggregates only, so it can run on cached summaries.

SEE ALSO:
  - ledger/recalc.go: where efficiency values come from
  - api/handlers.go:  the report endpoint
*/
package reports

import (
	"github.com/shopspring/decimal"

	"github.com/fleetops/fleet-office/ledger"
)

// VehicleSummary aggregates a vehicle's fueling chain.
type VehicleSummary struct {
	VehicleID       ledger.VehicleID
	RecordCount     int
	MeasuredCount   int
	TotalDistance   int64
	TotalFuel       decimal.Decimal
	AvgEfficiency   *decimal.Decimal
	BestEfficiency  *decimal.Decimal
	WorstEfficiency *decimal.Decimal
	FirstDate       ledger.Date
	LastDate        ledger.Date
}

// Summarize computes a summary from a vehicle's records. The slice must
// be in chain order, as returned by the store.
func Summarize(vehicleID ledger.VehicleID, records []ledger.FuelingRecord) VehicleSummary {
	summary := VehicleSummary{
		VehicleID:   vehicleID,
		RecordCount: len(records),
	}
	if len(records) == 0 {
		return summary
	}

	summary.FirstDate = records[0].Date
	summary.LastDate = records[len(records)-1].Date

	var prevOdometer int64
	havePrev := false
	effSum := decimal.Zero

	for _, rec := range records {
		if rec.Efficiency == nil {
			prevOdometer = rec.Odometer
			havePrev = true
			continue
		}

		summary.MeasuredCount++
		if havePrev {
			summary.TotalDistance += rec.Odometer - prevOdometer
		}
		summary.TotalFuel = summary.TotalFuel.Add(rec.FuelQuantity)
		effSum = effSum.Add(*rec.Efficiency)

		if summary.BestEfficiency == nil || rec.Efficiency.GreaterThan(*summary.BestEfficiency) {
			eff := *rec.Efficiency
			summary.BestEfficiency = &eff
		}
		if summary.WorstEfficiency == nil || rec.Efficiency.LessThan(*summary.WorstEfficiency) {
			eff := *rec.Efficiency
			summary.WorstEfficiency = &eff
		}

		prevOdometer = rec.Odometer
		havePrev = true
	}

	if summary.MeasuredCount > 0 {
		avg := effSum.Div(decimal.NewFromInt(int64(summary.MeasuredCount))).Round(1)
		summary.AvgEfficiency = &avg
	}
	return summary
}

// EfficiencyAlert flags a vehicle whose average efficiency dropped below
// a threshold.
type EfficiencyAlert struct {
	VehicleID     ledger.VehicleID
	AvgEfficiency decimal.Decimal
	Threshold     decimal.Decimal
}

// EvaluateAlert returns an alert when the summary's average efficiency
// is below the threshold, nil otherwise. Vehicles with no measured
// records never alert.
func EvaluateAlert(summary VehicleSummary, threshold decimal.Decimal) *EfficiencyAlert {
	if summary.AvgEfficiency == nil {
		return nil
	}
	if summary.AvgEfficiency.GreaterThanOrEqual(threshold) {
		return nil
	}
	return &EfficiencyAlert{
		VehicleID:     summary.VehicleID,
		AvgEfficiency: *summary.AvgEfficiency,
		Threshold:     threshold,
	}
}
