/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements persistence for the whole back office: the fuel ledger
  (ledger.TxStore + ledger.MileageCache) plus the vehicle and
  maintenance CRUD around it. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  fueling_records:     The ledger, one row per fueling event
  fueling_seq:         Monotonic counter feeding seq assignment
  vehicles:            Vehicle registry with the current-mileage cache
  maintenance_entries: Service history (plain CRUD)

CHAIN ORDERING:
  Every chain query orders by (effective_date, seq, id). Neighbor
  lookups use tuple comparisons so "strictly before/after a position"
  matches the ledger's ordering exactly, including same-day ties.

TRANSACTIONS:
  WithTx wraps a sql.Tx behind a transaction-scoped view. All reads
  inside the view go through the same sql.Tx, so a cascade sees the
  record written moments earlier in the same unit.

WAL MODE:
  SQLite is opened with WAL for better concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/fleet.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  coord := ledger.NewCoordinator(store)

SEE ALSO:
  - ledger/store.go:        Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fleetops/fleet-office/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Fueling records (the ledger)
	CREATE TABLE IF NOT EXISTS fueling_records (
		id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		odometer INTEGER NOT NULL,
		fuel_quantity TEXT NOT NULL,
		efficiency TEXT,
		seq INTEGER NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- The hot path: chain walks and neighbor lookups per vehicle
	CREATE INDEX IF NOT EXISTS idx_fueling_chain
		ON fueling_records(vehicle_id, effective_date, seq);

	-- Monotonic counter for seq assignment. AUTOINCREMENT guarantees
	-- values are never reused, so "recorded first" stays stable across
	-- edits and cross-vehicle moves.
	CREATE TABLE IF NOT EXISTS fueling_seq (
		n INTEGER PRIMARY KEY AUTOINCREMENT
	);

	-- Vehicles (registry + denormalized current-mileage cache)
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		plate_number TEXT NOT NULL UNIQUE,
		make TEXT,
		model TEXT,
		year INTEGER,
		status TEXT NOT NULL DEFAULT 'active',
		current_mileage INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Maintenance entries (plain CRUD)
	CREATE TABLE IF NOT EXISTS maintenance_entries (
		id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		service_date TEXT NOT NULL,
		description TEXT NOT NULL,
		cost TEXT,
		odometer INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maintenance_vehicle
		ON maintenance_entries(vehicle_id, service_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so every helper can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

const recordColumns = `id, vehicle_id, effective_date, odometer, fuel_quantity, efficiency, seq, created_at, updated_at`

// Insert adds a record to the ledger and assigns its seq.
func (s *Store) Insert(ctx context.Context, rec *ledger.FuelingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertRecord(ctx, s.db, rec)
}

func (s *Store) insertRecord(ctx context.Context, db dbtx, rec *ledger.FuelingRecord) error {
	seq, err := s.nextSeq(ctx, db)
	if err != nil {
		return err
	}
	rec.Seq = seq
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Efficiency = nil

	query := `
		INSERT INTO fueling_records
		(id, vehicle_id, effective_date, odometer, fuel_quantity, efficiency, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		rec.ID,
		rec.VehicleID,
		rec.Date.String(),
		rec.Odometer,
		rec.FuelQuantity.String(),
		rec.Seq,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fueling record: %w", err)
	}
	return nil
}

func (s *Store) nextSeq(ctx context.Context, db dbtx) (int64, error) {
	res, err := db.ExecContext(ctx, "INSERT INTO fueling_seq DEFAULT VALUES")
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}
	return res.LastInsertId()
}

// Get returns a record by ID, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id ledger.RecordID) (*ledger.FuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRecord(ctx, s.db, id)
}

func (s *Store) getRecord(ctx context.Context, db dbtx, id ledger.RecordID) (*ledger.FuelingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM fueling_records WHERE id = ?`
	recs, err := s.queryRecords(ctx, db, query, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// Update rewrites a record's mutable fields. Seq, created_at and
// efficiency are preserved; the cascade re-derives efficiency.
func (s *Store) Update(ctx context.Context, rec ledger.FuelingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateRecord(ctx, s.db, rec)
}

func (s *Store) updateRecord(ctx context.Context, db dbtx, rec ledger.FuelingRecord) error {
	query := `
		UPDATE fueling_records
		SET vehicle_id = ?, effective_date = ?, odometer = ?, fuel_quantity = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		rec.VehicleID,
		rec.Date.String(),
		rec.Odometer,
		rec.FuelQuantity.String(),
		time.Now().UTC().Format(time.RFC3339),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update fueling record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id ledger.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteRecord(ctx, s.db, id)
}

func (s *Store) deleteRecord(ctx context.Context, db dbtx, id ledger.RecordID) error {
	res, err := db.ExecContext(ctx, "DELETE FROM fueling_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete fueling record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

// Predecessor returns the nearest record strictly before pos in the
// vehicle's chain.
func (s *Store) Predecessor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predecessor(ctx, s.db, vehicleID, pos, exclude)
}

func (s *Store) predecessor(ctx context.Context, db dbtx, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM fueling_records
		WHERE vehicle_id = ? AND id != ?
		  AND (effective_date < ? OR (effective_date = ? AND seq < ?))
		ORDER BY effective_date DESC, seq DESC, id DESC
		LIMIT 1
	`
	recs, err := s.queryRecords(ctx, db, query,
		vehicleID, exclude, pos.Date.String(), pos.Date.String(), pos.Seq)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// Successor returns the nearest record strictly after pos in the
// vehicle's chain.
func (s *Store) Successor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.successor(ctx, s.db, vehicleID, pos, exclude)
}

func (s *Store) successor(ctx context.Context, db dbtx, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM fueling_records
		WHERE vehicle_id = ? AND id != ?
		  AND (effective_date > ? OR (effective_date = ? AND seq > ?))
		ORDER BY effective_date ASC, seq ASC, id ASC
		LIMIT 1
	`
	recs, err := s.queryRecords(ctx, db, query,
		vehicleID, exclude, pos.Date.String(), pos.Date.String(), pos.Seq)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// LastBefore returns the vehicle's last record dated strictly before
// the given day.
func (s *Store) LastBefore(ctx context.Context, vehicleID ledger.VehicleID, before ledger.Date) (*ledger.FuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBefore(ctx, s.db, vehicleID, before)
}

func (s *Store) lastBefore(ctx context.Context, db dbtx, vehicleID ledger.VehicleID, before ledger.Date) (*ledger.FuelingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM fueling_records
		WHERE vehicle_id = ? AND effective_date < ?
		ORDER BY effective_date DESC, seq DESC, id DESC
		LIMIT 1
	`
	recs, err := s.queryRecords(ctx, db, query, vehicleID, before.String())
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// RecordsFrom returns a vehicle's records dated at or after the given day.
func (s *Store) RecordsFrom(ctx context.Context, vehicleID ledger.VehicleID, from ledger.Date) ([]ledger.FuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordsFrom(ctx, s.db, vehicleID, from)
}

func (s *Store) recordsFrom(ctx context.Context, db dbtx, vehicleID ledger.VehicleID, from ledger.Date) ([]ledger.FuelingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM fueling_records
		WHERE vehicle_id = ? AND effective_date >= ?
		ORDER BY effective_date ASC, seq ASC, id ASC
	`
	return s.queryRecords(ctx, db, query, vehicleID, from.String())
}

// Records returns a vehicle's full chain in order.
func (s *Store) Records(ctx context.Context, vehicleID ledger.VehicleID) ([]ledger.FuelingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records(ctx, s.db, vehicleID)
}

func (s *Store) records(ctx context.Context, db dbtx, vehicleID ledger.VehicleID) ([]ledger.FuelingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM fueling_records
		WHERE vehicle_id = ?
		ORDER BY effective_date ASC, seq ASC, id ASC
	`
	return s.queryRecords(ctx, db, query, vehicleID)
}

// SaveEfficiency persists the derived efficiency for one record.
func (s *Store) SaveEfficiency(ctx context.Context, id ledger.RecordID, eff *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEfficiency(ctx, s.db, id, eff)
}

func (s *Store) saveEfficiency(ctx context.Context, db dbtx, id ledger.RecordID, eff *decimal.Decimal) error {
	var value sql.NullString
	if eff != nil {
		value = sql.NullString{String: eff.String(), Valid: true}
	}
	res, err := db.ExecContext(ctx,
		"UPDATE fueling_records SET efficiency = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("failed to save efficiency: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

func (s *Store) queryRecords(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.FuelingRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fueling records: %w", err)
	}
	defer rows.Close()

	var records []ledger.FuelingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (ledger.FuelingRecord, error) {
	var (
		rec          ledger.FuelingRecord
		date         string
		fuelQuantity string
		efficiency   sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := rows.Scan(
		&rec.ID, &rec.VehicleID, &date, &rec.Odometer,
		&fuelQuantity, &efficiency, &rec.Seq, &createdAt, &updatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan fueling record: %w", err)
	}

	rec.Date, err = ledger.ParseDate(date)
	if err != nil {
		return rec, fmt.Errorf("bad effective_date %q: %w", date, err)
	}
	rec.FuelQuantity, err = decimal.NewFromString(fuelQuantity)
	if err != nil {
		return rec, fmt.Errorf("bad fuel_quantity %q: %w", fuelQuantity, err)
	}
	if efficiency.Valid {
		eff, err := decimal.NewFromString(efficiency.String)
		if err != nil {
			return rec, fmt.Errorf("bad efficiency %q: %w", efficiency.String, err)
		}
		rec.Efficiency = &eff
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// =============================================================================
// MILEAGE CACHE (ledger.MileageCache interface)
// =============================================================================

// RaiseMileage bumps the vehicle's cached current mileage. Monotonic:
// the cache never decreases, even when records are edited down or deleted.
func (s *Store) RaiseMileage(ctx context.Context, vehicleID ledger.VehicleID, odometer int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raiseMileage(ctx, s.db, vehicleID, odometer)
}

func (s *Store) raiseMileage(ctx context.Context, db dbtx, vehicleID ledger.VehicleID, odometer int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE vehicles SET current_mileage = MAX(current_mileage, ?), updated_at = ? WHERE id = ?`,
		odometer, time.Now().UTC().Format(time.RFC3339), vehicleID)
	if err != nil {
		return fmt.Errorf("failed to raise vehicle mileage: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. All reads
// and writes inside fn go through the same sql.Tx.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Insert(ctx context.Context, rec *ledger.FuelingRecord) error {
	return ts.parent.insertRecord(ctx, ts.tx, rec)
}

func (ts *txStore) Get(ctx context.Context, id ledger.RecordID) (*ledger.FuelingRecord, error) {
	return ts.parent.getRecord(ctx, ts.tx, id)
}

func (ts *txStore) Update(ctx context.Context, rec ledger.FuelingRecord) error {
	return ts.parent.updateRecord(ctx, ts.tx, rec)
}

func (ts *txStore) Delete(ctx context.Context, id ledger.RecordID) error {
	return ts.parent.deleteRecord(ctx, ts.tx, id)
}

func (ts *txStore) Predecessor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	return ts.parent.predecessor(ctx, ts.tx, vehicleID, pos, exclude)
}

func (ts *txStore) Successor(ctx context.Context, vehicleID ledger.VehicleID, pos ledger.ChainPos, exclude ledger.RecordID) (*ledger.FuelingRecord, error) {
	return ts.parent.successor(ctx, ts.tx, vehicleID, pos, exclude)
}

func (ts *txStore) LastBefore(ctx context.Context, vehicleID ledger.VehicleID, before ledger.Date) (*ledger.FuelingRecord, error) {
	return ts.parent.lastBefore(ctx, ts.tx, vehicleID, before)
}

func (ts *txStore) RecordsFrom(ctx context.Context, vehicleID ledger.VehicleID, from ledger.Date) ([]ledger.FuelingRecord, error) {
	return ts.parent.recordsFrom(ctx, ts.tx, vehicleID, from)
}

func (ts *txStore) Records(ctx context.Context, vehicleID ledger.VehicleID) ([]ledger.FuelingRecord, error) {
	return ts.parent.records(ctx, ts.tx, vehicleID)
}

func (ts *txStore) SaveEfficiency(ctx context.Context, id ledger.RecordID, eff *decimal.Decimal) error {
	return ts.parent.saveEfficiency(ctx, ts.tx, id, eff)
}

func (ts *txStore) RaiseMileage(ctx context.Context, vehicleID ledger.VehicleID, odometer int64) error {
	return ts.parent.raiseMileage(ctx, ts.tx, vehicleID, odometer)
}

// =============================================================================
// VEHICLE STORE
// =============================================================================

// Vehicle is a vehicle registry row. CurrentMileage is the denormalized
// cache maintained by RaiseMileage - an eventually-consistent max over
// the ledger, never authoritative.
type Vehicle struct {
	ID             string
	PlateNumber    string
	Make           string
	Model          string
	Year           int
	Status         string
	CurrentMileage int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SaveVehicle inserts or updates a vehicle.
func (s *Store) SaveVehicle(ctx context.Context, v Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO vehicles (id, plate_number, make, model, year, status, current_mileage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plate_number = excluded.plate_number,
			make = excluded.make,
			model = excluded.model,
			year = excluded.year,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	if v.Status == "" {
		v.Status = "active"
	}
	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.PlateNumber, v.Make, v.Model, v.Year, v.Status, v.CurrentMileage, now, now)
	return err
}

// GetVehicle retrieves a vehicle by ID, or nil if it does not exist.
func (s *Store) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v Vehicle
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, plate_number, make, model, year, status, current_mileage, created_at, updated_at
		 FROM vehicles WHERE id = ?`, id,
	).Scan(&v.ID, &v.PlateNumber, &v.Make, &v.Model, &v.Year, &v.Status, &v.CurrentMileage, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &v, nil
}

// ListVehicles returns all vehicles ordered by plate number.
func (s *Store) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plate_number, make, model, year, status, current_mileage, created_at, updated_at
		 FROM vehicles ORDER BY plate_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		var v Vehicle
		var createdAt, updatedAt string
		if err := rows.Scan(&v.ID, &v.PlateNumber, &v.Make, &v.Model, &v.Year, &v.Status,
			&v.CurrentMileage, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// DeleteVehicle removes a vehicle together with its ledger and
// maintenance history, atomically.
func (s *Store) DeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM fueling_records WHERE vehicle_id = ?", id); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM maintenance_entries WHERE vehicle_id = ?", id); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM vehicles WHERE id = ?", id); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// MAINTENANCE STORE
// =============================================================================

// MaintenanceEntry is a service-history row.
type MaintenanceEntry struct {
	ID          string
	VehicleID   string
	ServiceDate ledger.Date
	Description string
	Cost        decimal.Decimal
	Odometer    int64
	CreatedAt   time.Time
}

// SaveMaintenance inserts a maintenance entry.
func (s *Store) SaveMaintenance(ctx context.Context, e MaintenanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance_entries (id, vehicle_id, service_date, description, cost, odometer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.VehicleID, e.ServiceDate.String(), e.Description,
		e.Cost.String(), e.Odometer, time.Now().UTC().Format(time.RFC3339))
	return err
}

// ListMaintenance returns a vehicle's maintenance history, newest first.
func (s *Store) ListMaintenance(ctx context.Context, vehicleID string) ([]MaintenanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vehicle_id, service_date, description, cost, odometer, created_at
		FROM maintenance_entries
		WHERE vehicle_id = ?
		ORDER BY service_date DESC, created_at DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MaintenanceEntry
	for rows.Next() {
		var e MaintenanceEntry
		var serviceDate, cost, createdAt string
		if err := rows.Scan(&e.ID, &e.VehicleID, &serviceDate, &e.Description,
			&cost, &e.Odometer, &createdAt); err != nil {
			return nil, err
		}
		e.ServiceDate, _ = ledger.ParseDate(serviceDate)
		e.Cost, _ = decimal.NewFromString(cost)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteMaintenance removes a maintenance entry.
func (s *Store) DeleteMaintenance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM maintenance_entries WHERE id = ?", id)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"fueling_records", "maintenance_entries", "vehicles"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsDuplicatePlate reports whether an error came from the plate_number
// uniqueness constraint.
func IsDuplicatePlate(err error) bool {
	return isUniqueConstraintError(err) && strings.Contains(err.Error(), "plate_number")
}
