/*
handlers.go - HTTP API handlers for the fleet back office

PURPOSE:
  Exposes the fleet ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic. All fueling
  mutations go through the ledger.Coordinator; handlers never touch the
  chain directly.

ENDPOINTS:
  Vehicles:
    GET    /api/vehicles                    List all vehicles
    POST   /api/vehicles                    Register vehicle
    GET    /api/vehicles/{id}               Get vehicle details
    DELETE /api/vehicles/{id}               Delete vehicle + history

  Fuelings:
    GET    /api/vehicles/{id}/fuelings      Ordered fueling chain
    POST   /api/vehicles/{id}/fuelings      Record a fueling event
    PUT    /api/fuelings/{id}               Edit (incl. cross-vehicle move)
    DELETE /api/fuelings/{id}               Delete a fueling record

  Reports:
    GET    /api/vehicles/{id}/report        Efficiency summary

  Maintenance:
    GET    /api/vehicles/{id}/maintenance   Service history
    POST   /api/vehicles/{id}/maintenance   Log a service

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input format
  3. Call domain logic (coordinator, reports)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (mileage bounds, future dates); the body
         carries the conflicting readings
  - 404: Vehicle or record not found
  - 409: Duplicate plate, concurrent modification (retryable)
  - 500: Storage errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/coordinator.go: Mutation semantics
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetops/fleet-office/ledger"
	"github.com/fleetops/fleet-office/reports"
	"github.com/fleetops/fleet-office/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Coordinator *ledger.Coordinator
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:       store,
		Coordinator: ledger.NewCoordinator(store),
	}
}

// =============================================================================
// VEHICLE HANDLERS
// =============================================================================

// ListVehicles returns all vehicles.
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Store.ListVehicles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list vehicles", err)
		return
	}

	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVehicle returns a single vehicle.
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := h.Store.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleDTO(*v))
}

// CreateVehicle registers a new vehicle.
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req CreateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PlateNumber == "" {
		writeError(w, http.StatusBadRequest, "plate_number is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	v := sqlite.Vehicle{
		ID:          req.ID,
		PlateNumber: req.PlateNumber,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Status:      "active",
	}
	if err := h.Store.SaveVehicle(r.Context(), v); err != nil {
		if sqlite.IsDuplicatePlate(err) {
			writeError(w, http.StatusConflict, "Plate number already registered", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create vehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVehicleDTO(v))
}

// DeleteVehicle removes a vehicle and all of its history.
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := h.Store.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}
	if err := h.Store.DeleteVehicle(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete vehicle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// FUELING HANDLERS
// =============================================================================

// ListFuelings returns a vehicle's fueling chain in order.
func (h *Handler) ListFuelings(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")

	v, err := h.Store.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}

	records, err := h.Store.Records(r.Context(), ledger.VehicleID(vehicleID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fuelings", err)
		return
	}

	dtos := make([]FuelingDTO, len(records))
	for i, rec := range records {
		dtos[i] = toFuelingDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateFueling records a fueling event and returns the stored record
// with its derived efficiency.
func (h *Handler) CreateFueling(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")

	var req CreateFuelingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	v, err := h.Store.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}

	rec, err := h.Coordinator.CreateRecord(r.Context(), ledger.NewRecord{
		VehicleID:    ledger.VehicleID(vehicleID),
		Date:         date,
		Odometer:     req.Odometer,
		FuelQuantity: decimal.NewFromFloat(req.FuelQuantity),
	})
	if err != nil {
		writeDomainError(w, "Failed to record fueling", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFuelingDTO(*rec))
}

// UpdateFueling edits a fueling record. The response carries the
// record's recomputed efficiency; earlier records in the chain are
// untouched, later ones may have been recomputed.
func (h *Handler) UpdateFueling(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateFuelingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var patch ledger.RecordPatch
	if req.VehicleID != nil {
		target, err := h.Store.GetVehicle(r.Context(), *req.VehicleID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
			return
		}
		if target == nil {
			writeError(w, http.StatusNotFound, "Target vehicle not found", nil)
			return
		}
		vid := ledger.VehicleID(*req.VehicleID)
		patch.VehicleID = &vid
	}
	if req.Date != nil {
		date, err := ledger.ParseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		patch.Date = &date
	}
	patch.Odometer = req.Odometer
	if req.FuelQuantity != nil {
		qty := decimal.NewFromFloat(*req.FuelQuantity)
		patch.FuelQuantity = &qty
	}

	rec, err := h.Coordinator.UpdateRecord(r.Context(), ledger.RecordID(id), patch)
	if err != nil {
		writeDomainError(w, "Failed to update fueling", err)
		return
	}
	writeJSON(w, http.StatusOK, toFuelingDTO(*rec))
}

// DeleteFueling removes a fueling record and re-links the chain.
func (h *Handler) DeleteFueling(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Coordinator.DeleteRecord(r.Context(), ledger.RecordID(id)); err != nil {
		writeDomainError(w, "Failed to delete fueling", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetVehicleReport returns the efficiency summary for a vehicle.
func (h *Handler) GetVehicleReport(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")

	v, err := h.Store.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}

	records, err := h.Store.Records(r.Context(), ledger.VehicleID(vehicleID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fuelings", err)
		return
	}

	summary := reports.Summarize(ledger.VehicleID(vehicleID), records)
	writeJSON(w, http.StatusOK, toReportDTO(summary))
}

// =============================================================================
// MAINTENANCE HANDLERS
// =============================================================================

// ListMaintenance returns a vehicle's service history.
func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")

	v, err := h.Store.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}

	entries, err := h.Store.ListMaintenance(r.Context(), vehicleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list maintenance", err)
		return
	}

	dtos := make([]MaintenanceDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toMaintenanceDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMaintenance logs a service for a vehicle.
func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")

	var req CreateMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	serviceDate, err := ledger.ParseDate(req.ServiceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid service_date format (use YYYY-MM-DD)", err)
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required", nil)
		return
	}

	v, err := h.Store.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}

	entry := sqlite.MaintenanceEntry{
		ID:          uuid.NewString(),
		VehicleID:   vehicleID,
		ServiceDate: serviceDate,
		Description: req.Description,
		Cost:        decimal.NewFromFloat(req.Cost),
		Odometer:    req.Odometer,
	}
	if err := h.Store.SaveMaintenance(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save maintenance", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaintenanceDTO(entry))
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toVehicleDTO(v sqlite.Vehicle) VehicleDTO {
	dto := VehicleDTO{
		ID:             v.ID,
		PlateNumber:    v.PlateNumber,
		Make:           v.Make,
		Model:          v.Model,
		Year:           v.Year,
		Status:         v.Status,
		CurrentMileage: v.CurrentMileage,
	}
	if !v.CreatedAt.IsZero() {
		dto.CreatedAt = v.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toFuelingDTO(rec ledger.FuelingRecord) FuelingDTO {
	fuel, _ := rec.FuelQuantity.Float64()
	dto := FuelingDTO{
		ID:           string(rec.ID),
		VehicleID:    string(rec.VehicleID),
		Date:         rec.Date.String(),
		Odometer:     rec.Odometer,
		FuelQuantity: fuel,
	}
	if rec.Efficiency != nil {
		eff, _ := rec.Efficiency.Float64()
		dto.Efficiency = &eff
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toReportDTO(s reports.VehicleSummary) VehicleReportDTO {
	fuel, _ := s.TotalFuel.Float64()
	dto := VehicleReportDTO{
		VehicleID:     string(s.VehicleID),
		RecordCount:   s.RecordCount,
		MeasuredCount: s.MeasuredCount,
		TotalDistance: s.TotalDistance,
		TotalFuel:     fuel,
	}
	if s.AvgEfficiency != nil {
		v, _ := s.AvgEfficiency.Float64()
		dto.AvgEfficiency = &v
	}
	if s.BestEfficiency != nil {
		v, _ := s.BestEfficiency.Float64()
		dto.BestEfficiency = &v
	}
	if s.WorstEfficiency != nil {
		v, _ := s.WorstEfficiency.Float64()
		dto.WorstEfficiency = &v
	}
	if s.RecordCount > 0 {
		dto.FirstDate = s.FirstDate.String()
		dto.LastDate = s.LastDate.String()
	}
	return dto
}

func toMaintenanceDTO(e sqlite.MaintenanceEntry) MaintenanceDTO {
	cost, _ := e.Cost.Float64()
	dto := MaintenanceDTO{
		ID:          e.ID,
		VehicleID:   e.VehicleID,
		ServiceDate: e.ServiceDate.String(),
		Description: e.Description,
		Cost:        cost,
		Odometer:    e.Odometer,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger errors to HTTP statuses. Mileage
// conflicts include both readings in the body.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var conflict *ledger.MileageConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   message,
			Details: conflict.Error(),
			Conflict: &ConflictDTO{
				Bound:           string(conflict.Bound),
				Reading:         conflict.Reading,
				NeighborReading: conflict.Neighbor,
				NeighborDate:    conflict.NeighborDate.String(),
			},
		})
		return
	}

	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
