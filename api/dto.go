/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Monetary and
  fuel quantities are decimal.Decimal internally; DTOs expose them as
  float64 for client convenience.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Vehicle:
    VehicleDTO, CreateVehicleRequest

  Fueling:
    FuelingDTO, CreateFuelingRequest, UpdateFuelingRequest

  Report:
    VehicleReportDTO

  Maintenance:
    MaintenanceDTO, CreateMaintenanceRequest

VALIDATION:
  Format validation is done in handlers; domain validation (mileage
  bounds, future dates) lives in the ledger package. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/validate.go: Domain validation rules
*/
package api

// =============================================================================
// VEHICLE TYPES
// =============================================================================

// VehicleDTO represents a vehicle in API responses.
type VehicleDTO struct {
	ID             string `json:"id"`
	PlateNumber    string `json:"plate_number"`
	Make           string `json:"make,omitempty"`
	Model          string `json:"model,omitempty"`
	Year           int    `json:"year,omitempty"`
	Status         string `json:"status"`
	CurrentMileage int64  `json:"current_mileage"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// CreateVehicleRequest is the request to register a vehicle.
type CreateVehicleRequest struct {
	ID          string `json:"id,omitempty"`
	PlateNumber string `json:"plate_number"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Year        int    `json:"year,omitempty"`
}

// =============================================================================
// FUELING TYPES
// =============================================================================

// FuelingDTO represents a fueling record in API responses. Efficiency is
// null for chain heads and zero-fuel records.
type FuelingDTO struct {
	ID           string   `json:"id"`
	VehicleID    string   `json:"vehicle_id"`
	Date         string   `json:"date"`
	Odometer     int64    `json:"odometer"`
	FuelQuantity float64  `json:"fuel_quantity"`
	Efficiency   *float64 `json:"efficiency"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// CreateFuelingRequest is the request to record a fueling event.
type CreateFuelingRequest struct {
	Date         string  `json:"date"`
	Odometer     int64   `json:"odometer"`
	FuelQuantity float64 `json:"fuel_quantity"`
}

// UpdateFuelingRequest is the request to edit a fueling record. All
// fields are optional; a vehicle_id different from the record's current
// vehicle moves the record between chains.
type UpdateFuelingRequest struct {
	VehicleID    *string  `json:"vehicle_id,omitempty"`
	Date         *string  `json:"date,omitempty"`
	Odometer     *int64   `json:"odometer,omitempty"`
	FuelQuantity *float64 `json:"fuel_quantity,omitempty"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// VehicleReportDTO aggregates a vehicle's fueling history.
type VehicleReportDTO struct {
	VehicleID       string   `json:"vehicle_id"`
	RecordCount     int      `json:"record_count"`
	MeasuredCount   int      `json:"measured_count"`
	TotalDistance   int64    `json:"total_distance"`
	TotalFuel       float64  `json:"total_fuel"`
	AvgEfficiency   *float64 `json:"avg_efficiency"`
	BestEfficiency  *float64 `json:"best_efficiency"`
	WorstEfficiency *float64 `json:"worst_efficiency"`
	FirstDate       string   `json:"first_date,omitempty"`
	LastDate        string   `json:"last_date,omitempty"`
}

// =============================================================================
// MAINTENANCE TYPES
// =============================================================================

// MaintenanceDTO represents a maintenance entry in API responses.
type MaintenanceDTO struct {
	ID          string  `json:"id"`
	VehicleID   string  `json:"vehicle_id"`
	ServiceDate string  `json:"service_date"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Odometer    int64   `json:"odometer,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// CreateMaintenanceRequest is the request to log a service.
type CreateMaintenanceRequest struct {
	ServiceDate string  `json:"service_date"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Odometer    int64   `json:"odometer,omitempty"`
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConflictDTO carries the readings involved in a mileage-bound
// violation so clients can show the user what to fix.
type ConflictDTO struct {
	Bound           string `json:"bound"`
	Reading         int64  `json:"reading"`
	NeighborReading int64  `json:"neighbor_reading"`
	NeighborDate    string `json:"neighbor_date"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error    string       `json:"error"`
	Details  string       `json:"details,omitempty"`
	Conflict *ConflictDTO `json:"conflict,omitempty"`
}
