/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the back-office UI

ROUTE GROUPS:
  /api/vehicles/*   Vehicle registry, fueling chains, reports, maintenance
  /api/fuelings/*   Record-level edit and delete

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Vehicle routes
		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", h.ListVehicles)
			r.Post("/", h.CreateVehicle)
			r.Get("/{id}", h.GetVehicle)
			r.Delete("/{id}", h.DeleteVehicle)
			r.Get("/{id}/fuelings", h.ListFuelings)
			r.Post("/{id}/fuelings", h.CreateFueling)
			r.Get("/{id}/report", h.GetVehicleReport)
			r.Get("/{id}/maintenance", h.ListMaintenance)
			r.Post("/{id}/maintenance", h.CreateMaintenance)
		})

		// Record-level fueling routes
		r.Route("/fuelings", func(r chi.Router) {
			r.Put("/{id}", h.UpdateFueling)
			r.Delete("/{id}", h.DeleteFueling)
		})
	})

	return r
}
