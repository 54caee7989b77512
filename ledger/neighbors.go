package ledger

import (
	"context"
	"fmt"
)

// =============================================================================
// NEIGHBOR RESOLVER - Nearest predecessor/successor for a chain position
// =============================================================================

// Neighbors holds the records immediately around a candidate position.
// Either side may be nil: the first record of a vehicle has no
// predecessor, the last has no successor.
type Neighbors struct {
	Predecessor *FuelingRecord
	Successor   *FuelingRecord
}

// NeighborResolver finds the records adjacent to a candidate position in
// a vehicle's chain. The validator checks the candidate's odometer
// against both sides; the recalculator seeds its baseline from the
// predecessor side.
type NeighborResolver struct {
	store Store
}

func NewNeighborResolver(store Store) *NeighborResolver {
	return &NeighborResolver{store: store}
}

// Resolve returns the neighbors of pos in the vehicle's chain. For an
// edit, exclude carries the id of the record being edited so it never
// shows up as its own neighbor; for a create it is empty.
func (r *NeighborResolver) Resolve(ctx context.Context, vehicleID VehicleID, pos ChainPos, exclude RecordID) (Neighbors, error) {
	pred, err := r.store.Predecessor(ctx, vehicleID, pos, exclude)
	if err != nil {
		return Neighbors{}, fmt.Errorf("failed to resolve predecessor: %w", err)
	}
	succ, err := r.store.Successor(ctx, vehicleID, pos, exclude)
	if err != nil {
		return Neighbors{}, fmt.Errorf("failed to resolve successor: %w", err)
	}
	return Neighbors{Predecessor: pred, Successor: succ}, nil
}
