package ledger

import "sync"

// =============================================================================
// PER-VEHICLE LOCKS - Serialize mutations on the same vehicle's chain
// =============================================================================

// vehicleLocks hands out one mutex per vehicle so the
// validate-write-cascade sequence for a vehicle never interleaves with
// another mutation on the same vehicle. Mutations on different vehicles
// proceed concurrently.
//
// Mutexes are created lazily and kept for the process lifetime; the map
// is bounded by the fleet size.
type vehicleLocks struct {
	mu    sync.Mutex
	locks map[VehicleID]*sync.Mutex
}

func newVehicleLocks() *vehicleLocks {
	return &vehicleLocks{locks: make(map[VehicleID]*sync.Mutex)}
}

func (l *vehicleLocks) get(id VehicleID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Lock acquires the vehicle's mutex and returns the release function.
func (l *vehicleLocks) Lock(id VehicleID) func() {
	m := l.get(id)
	m.Lock()
	return m.Unlock
}

// LockPair acquires both vehicles' mutexes for a cross-vehicle move.
// Locks are always taken in lexical vehicle order so two concurrent
// moves between the same pair cannot deadlock.
func (l *vehicleLocks) LockPair(a, b VehicleID) func() {
	if a == b {
		return l.Lock(a)
	}
	if b < a {
		a, b = b, a
	}
	ma, mb := l.get(a), l.get(b)
	ma.Lock()
	mb.Lock()
	return func() {
		mb.Unlock()
		ma.Unlock()
	}
}
