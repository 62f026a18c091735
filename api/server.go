/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the report forms

ROUTE GROUPS:
  /api/reports/*    Submission and review
  /api/vessels/*    Fleet and per-vessel ledger
  /api/voyages      Voyage list
  /api/audit        Audit trail
  /api/scenarios/*  Demo scenarios

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
// allowedOrigins feeds the CORS policy.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Post("/", h.SubmitReport)
			r.Get("/overdue", h.ListOverdueReports)
			r.Get("/{id}", h.GetReport)
			r.Get("/{id}/bunker-record", h.GetReportBunkerRecord)
			r.Post("/{id}/approve", h.ApproveReport)
			r.Post("/{id}/reject", h.RejectReport)
		})

		// Vessel routes
		r.Route("/vessels", func(r chi.Router) {
			r.Get("/", h.ListVessels)
			r.Get("/{id}", h.GetVessel)
			r.Get("/{id}/status", h.GetVesselStatus)
			r.Get("/{id}/has-bunker-records", h.HasBunkerRecords)
			r.Get("/{id}/bunker-records", h.ListBunkerRecords)
		})

		r.Get("/voyages", h.ListVoyages)
		r.Get("/audit", h.ListAudit)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
