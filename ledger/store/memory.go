// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/fleet-office/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps each vehicle's chain as a slice sorted by
// (date, seq, id). It implements ledger.TxStore (snapshot/rollback) and
// ledger.MileageCache.
type Memory struct {
	mu      sync.RWMutex
	chains  map[ledger.VehicleID][]ledger.FuelingRecord
	byID    map[ledger.RecordID]ledger.VehicleID
	mileage map[ledger.VehicleID]int64
	seq     int64
}

func NewMemory() *Memory {
	return &Memory{
		chains:  make(map[ledger.VehicleID][]ledger.FuelingRecord),
		byID:    make(map[ledger.RecordID]ledger.VehicleID),
		mileage: make(map[ledger.VehicleID]int64),
	}
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

func (m *Memory) Insert(ctx context.Context, rec *ledger.FuelingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(rec)
}

func (m *Memory) Get(ctx context.Context, id ledger.RecordID) (*ledger.FuelingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id), nil
}

func (m *Memory) Update(ctx context.Context, rec ledger.FuelingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(rec)
}

func (m *Memory) Delete(ctx context.Context, id ledger.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *Memory) Predecessor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.predecessorLocked(vehicleID, pos, exclude), nil
}

func (m *Memory) Successor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successorLocked(vehicleID, pos, exclude), nil
}

func (m *Memory) LastBefore(ctx context.Context, vehicleID ledger.VehicleID, before ledger.Date) (*ledger.FuelingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBeforeLocked(vehicleID, before), nil
}

func (m *Memory) RecordsFrom(ctx context.Context, vehicleID ledger.VehicleID, from ledger.Date) ([]ledger.FuelingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recordsFromLocked(vehicleID, from), nil
}

func (m *Memory) Records(ctx context.Context, vehicleID ledger.VehicleID) ([]ledger.FuelingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chain := m.chains[vehicleID]
	out := make([]ledger.FuelingRecord, len(chain))
	copy(out, chain)
	return out, nil
}

func (m *Memory) SaveEfficiency(ctx context.Context, id ledger.RecordID, eff *decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEfficiencyLocked(id, eff)
}

// =============================================================================
// MILEAGE CACHE
// =============================================================================

func (m *Memory) RaiseMileage(ctx context.Context, vehicleID ledger.VehicleID, odometer int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raiseMileageLocked(vehicleID, odometer)
	return nil
}

// CurrentMileage returns the cached mileage projection for a vehicle.
func (m *Memory) CurrentMileage(vehicleID ledger.VehicleID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mileage[vehicleID]
}

// =============================================================================
// TRANSACTIONAL STORE - snapshot and restore on error
// =============================================================================

// WithTx executes fn against a transactional view. On error the whole
// store is restored to its pre-transaction snapshot.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	chains  map[ledger.VehicleID][]ledger.FuelingRecord
	byID    map[ledger.RecordID]ledger.VehicleID
	mileage map[ledger.VehicleID]int64
	seq     int64
}

func (m *Memory) snapshot() memorySnapshot {
	chains := make(map[ledger.VehicleID][]ledger.FuelingRecord, len(m.chains))
	for k, v := range m.chains {
		chains[k] = append([]ledger.FuelingRecord{}, v...)
	}
	byID := make(map[ledger.RecordID]ledger.VehicleID, len(m.byID))
	for k, v := range m.byID {
		byID[k] = v
	}
	mileage := make(map[ledger.VehicleID]int64, len(m.mileage))
	for k, v := range m.mileage {
		mileage[k] = v
	}
	return memorySnapshot{chains: chains, byID: byID, mileage: mileage, seq: m.seq}
}

func (m *Memory) restore(s memorySnapshot) {
	m.chains = s.chains
	m.byID = s.byID
	m.mileage = s.mileage
	m.seq = s.seq
}

// txView runs against the parent while the parent's lock is held by WithTx.
type txView struct {
	parent *Memory
}

func (v *txView) Insert(ctx context.Context, rec *ledger.FuelingRecord) error {
	return v.parent.insertLocked(rec)
}

func (v *txView) Get(ctx context.Context, id ledger.RecordID) (*ledger.FuelingRecord, error) {
	return v.parent.getLocked(id), nil
}

func (v *txView) Update(ctx context.Context, rec ledger.FuelingRecord) error {
	return v.parent.updateLocked(rec)
}

func (v *txView) Delete(ctx context.Context, id ledger.RecordID) error {
	return v.parent.deleteLocked(id)
}

func (v *txView) Predecessor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	return v.parent.predecessorLocked(vehicleID, pos, exclude), nil
}

func (v *txView) Successor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	return v.parent.successorLocked(vehicleID, pos, exclude), nil
}

func (v *txView) LastBefore(ctx context.Context, vehicleID ledger.VehicleID, before ledger.Date) (*ledger.FuelingRecord, error) {
	return v.parent.lastBeforeLocked(vehicleID, before), nil
}

func (v *txView) RecordsFrom(ctx context.Context, vehicleID ledger.VehicleID, from ledger.Date) ([]ledger.FuelingRecord, error) {
	return v.parent.recordsFromLocked(vehicleID, from), nil
}

func (v *txView) Records(ctx context.Context, vehicleID ledger.VehicleID) ([]ledger.FuelingRecord, error) {
	chain := v.parent.chains[vehicleID]
	out := make([]ledger.FuelingRecord, len(chain))
	copy(out, chain)
	return out, nil
}

func (v *txView) SaveEfficiency(ctx context.Context, id ledger.RecordID, eff *decimal.Decimal) error {
	return v.parent.saveEfficiencyLocked(id, eff)
}

func (v *txView) RaiseMileage(ctx context.Context, vehicleID ledger.VehicleID, odometer int64) error {
	v.parent.raiseMileageLocked(vehicleID, odometer)
	return nil
}

// =============================================================================
// LOCKED HELPERS
// =============================================================================

func (m *Memory) insertLocked(rec *ledger.FuelingRecord) error {
	m.seq++
	rec.Seq = m.seq
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Efficiency = nil

	m.insertSorted(*rec)
	m.byID[rec.ID] = rec.VehicleID
	return nil
}

func (m *Memory) insertSorted(rec ledger.FuelingRecord) {
	chain := m.chains[rec.VehicleID]
	pos := rec.Pos()
	i := sort.Search(len(chain), func(i int) bool {
		return pos.Before(chain[i].Pos())
	})
	chain = append(chain, ledger.FuelingRecord{})
	copy(chain[i+1:], chain[i:])
	chain[i] = rec
	m.chains[rec.VehicleID] = chain
}

func (m *Memory) getLocked(id ledger.RecordID) *ledger.FuelingRecord {
	vehicleID, ok := m.byID[id]
	if !ok {
		return nil
	}
	for _, rec := range m.chains[vehicleID] {
		if rec.ID == id {
			out := rec
			return &out
		}
	}
	return nil
}

func (m *Memory) updateLocked(rec ledger.FuelingRecord) error {
	cur := m.getLocked(rec.ID)
	if cur == nil {
		return ledger.ErrRecordNotFound
	}
	// Seq, CreatedAt and Efficiency survive the rewrite; the cascade
	// re-derives Efficiency afterwards.
	rec.Seq = cur.Seq
	rec.CreatedAt = cur.CreatedAt
	rec.Efficiency = cur.Efficiency
	rec.UpdatedAt = time.Now().UTC()

	m.removeFromChain(cur.VehicleID, rec.ID)
	m.insertSorted(rec)
	m.byID[rec.ID] = rec.VehicleID
	return nil
}

func (m *Memory) deleteLocked(id ledger.RecordID) error {
	vehicleID, ok := m.byID[id]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	m.removeFromChain(vehicleID, id)
	delete(m.byID, id)
	return nil
}

func (m *Memory) removeFromChain(vehicleID ledger.VehicleID, id ledger.RecordID) {
	chain := m.chains[vehicleID]
	for i, rec := range chain {
		if rec.ID == id {
			m.chains[vehicleID] = append(chain[:i], chain[i+1:]...)
			return
		}
	}
}

func (m *Memory) predecessorLocked(vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) *ledger.FuelingRecord {
	chain := m.chains[vehicleID]
	for i := len(chain) - 1; i >= 0; i-- {
		rec := chain[i]
		if rec.ID == exclude {
			continue
		}
		if rec.Pos().Before(pos) {
			out := rec
			return &out
		}
	}
	return nil
}

func (m *Memory) successorLocked(vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) *ledger.FuelingRecord {
	for _, rec := range m.chains[vehicleID] {
		if rec.ID == exclude {
			continue
		}
		if pos.Before(rec.Pos()) {
			out := rec
			return &out
		}
	}
	return nil
}

func (m *Memory) lastBeforeLocked(vehicleID ledger.VehicleID, before ledger.Date) *ledger.FuelingRecord {
	chain := m.chains[vehicleID]
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Date.Before(before) {
			out := chain[i]
			return &out
		}
	}
	return nil
}

func (m *Memory) recordsFromLocked(vehicleID ledger.VehicleID, from ledger.Date) []ledger.FuelingRecord {
	var out []ledger.FuelingRecord
	for _, rec := range m.chains[vehicleID] {
		if rec.Date.AfterOrEqual(from) {
			out = append(out, rec)
		}
	}
	return out
}

func (m *Memory) saveEfficiencyLocked(id ledger.RecordID, eff *decimal.Decimal) error {
	vehicleID, ok := m.byID[id]
	if !ok {
		return ledger.ErrRecordNotFound
	}
	chain := m.chains[vehicleID]
	for i := range chain {
		if chain[i].ID == id {
			if eff == nil {
				chain[i].Efficiency = nil
			} else {
				v := *eff
				chain[i].Efficiency = &v
			}
			return nil
		}
	}
	return ledger.ErrRecordNotFound
}

func (m *Memory) raiseMileageLocked(vehicleID ledger.VehicleID, odometer int64) {
	if odometer > m.mileage[vehicleID] {
		m.mileage[vehicleID] = odometer
	}
}
