/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a small
	fleet and a report history at a known point of the voyage cycle. Every
	report goes through the real state machine and review workflow, so the
	derived distance and ROB values are the engine's own.

AVAILABLE SCENARIOS:

	fleet:              Three vessels, no reports yet
	first-departure:    Departure with initial ROB awaiting approval
	mid-passage:        Departure, noon and sosp approved; rosp pending
	completed-voyage:   Departure through berth, all approved
	rejected-departure: Departure rejected; voyage and ROB rolled back

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the fleet
 3. Submit reports through the factory and state machine
 4. Approve or reject them through the review workflow

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mid-passage"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
	Seeding and reset are serialized per Handler, but the reset and the
	loader writes are separate transactions: a submission arriving mid-seed
	can still land between them.

SEE ALSO:
  - handlers.go: Handler wiring
  - factory/report.go: reportData JSON schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/voyage-ledger/reporting"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fleet",
		Name:        "Fleet Only",
		Description: "Three vessels with no report history",
	},
	{
		ID:          "first-departure",
		Name:        "First Departure",
		Description: "First-ever departure with initial ROB, pending approval",
	},
	{
		ID:          "mid-passage",
		Name:        "Mid-Passage Stoppage",
		Description: "Departure, noon and SOSP approved; ROSP pending",
	},
	{
		ID:          "completed-voyage",
		Name:        "Completed Voyage",
		Description: "Departure, noon, arrival and berth discharge, all approved",
	},
	{
		ID:          "rejected-departure",
		Name:        "Rejected Departure",
		Description: "Voyage-starting departure rejected; voyage deactivated and ROB removed",
	},
}

const (
	demoSubmitter = "chief.officer"
	demoReviewer  = "ops.superintendent"
)

var demoStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Seed(r.Context(), req.ScenarioID); err != nil {
		if reporting.IsClientError(err) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Seed resets the store and loads scenario id.
func (h *Handler) Seed(ctx context.Context, id string) error {
	loaders := map[string]func(context.Context) error{
		"fleet":              h.loadFleet,
		"first-departure":    h.loadFirstDepartureScenario,
		"mid-passage":        h.loadMidPassageScenario,
		"completed-voyage":   h.loadCompletedVoyageScenario,
		"rejected-departure": h.loadRejectedDepartureScenario,
	}
	load, ok := loaders[id]
	if !ok {
		return &reporting.ValidationError{Field: "scenario_id", Message: fmt.Sprintf("unknown scenario %q", id)}
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		return fmt.Errorf("failed to load scenario %s: %w", id, err)
	}
	h.currentScenario = id
	h.Logger.Info(ctx, "scenario loaded", "scenario", id)
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFleet(ctx context.Context) error {
	fleet := []reporting.Vessel{
		{ID: 1, Name: "MV Nordic Star", IMO: "9321483", Flag: "Panama", Captain: "A. Lindqvist", BLSLimit: decimal.NewFromInt(52000)},
		{ID: 2, Name: "MV Coral Bay", IMO: "9456721", Flag: "Liberia", Captain: "R. Santos", BLSLimit: decimal.NewFromInt(38000)},
		{ID: 3, Name: "MT Aegean Spirit", IMO: "9587312", Flag: "Malta", Captain: "K. Papadakis"},
	}
	for i := range fleet {
		if err := h.Store.CreateVessel(ctx, &fleet[i]); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadFirstDepartureScenario(ctx context.Context) error {
	if err := h.loadFleet(ctx); err != nil {
		return err
	}
	_, err := h.submitJSON(ctx, 1, "departure", demoStart, departureJSON, false)
	return err
}

func (h *Handler) loadMidPassageScenario(ctx context.Context) error {
	if err := h.loadFleet(ctx); err != nil {
		return err
	}
	steps := []scenarioStep{
		{"departure", 0, departureJSON, true},
		{"noon", 24 * time.Hour, noonJSON("noon", 290), true},
		{"noon", 30 * time.Hour, noonJSON("sosp", 70), true},
		{"noon", 36 * time.Hour, noonJSON("rosp", 0), false},
	}
	return h.runSteps(ctx, 1, steps)
}

func (h *Handler) loadCompletedVoyageScenario(ctx context.Context) error {
	if err := h.loadFleet(ctx); err != nil {
		return err
	}
	steps := []scenarioStep{
		{"departure", 0, departureJSON, true},
		{"noon", 24 * time.Hour, noonJSON("noon", 290), true},
		{"noon", 48 * time.Hour, noonJSON("noon", 300), true},
		{"arrival", 60 * time.Hour, arrivalJSON, true},
		{"berth", 72 * time.Hour, berthJSON, true},
	}
	return h.runSteps(ctx, 1, steps)
}

func (h *Handler) loadRejectedDepartureScenario(ctx context.Context) error {
	if err := h.loadFleet(ctx); err != nil {
		return err
	}
	report, err := h.submitJSON(ctx, 2, "departure", demoStart, departureJSON, false)
	if err != nil {
		return err
	}
	_, err = h.Reviews.Reject(ctx, report.ID, demoReviewer, "Harbour distance does not match pilot card")
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type scenarioStep struct {
	reportType string
	offset     time.Duration
	data       string
	approve    bool
}

func (h *Handler) runSteps(ctx context.Context, vesselID reporting.VesselID, steps []scenarioStep) error {
	for _, s := range steps {
		if _, err := h.submitJSON(ctx, vesselID, s.reportType, demoStart.Add(s.offset), s.data, s.approve); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) submitJSON(ctx context.Context, vesselID reporting.VesselID, reportType string, date time.Time, data string, approve bool) (*reporting.Report, error) {
	payload, err := h.Factory.Parse(reportType, json.RawMessage(data))
	if err != nil {
		return nil, err
	}
	report, err := h.Reports.Submit(ctx, reporting.Submission{
		VesselID:    vesselID,
		SubmittedBy: demoSubmitter,
		ReportDate:  date,
		Payload:     payload,
	})
	if err != nil {
		return nil, err
	}
	if approve {
		return h.Reviews.Approve(ctx, report.ID, demoReviewer)
	}
	return report, nil
}

const departureJSON = `{
	"voyageNumber": "NS-2501",
	"departurePort": "Rotterdam",
	"destinationPort": "Gothenburg",
	"cargoStatus": "loaded",
	"cargoType": "Steel coils",
	"cargoQuantity": 31500,
	"voyageDistance": 1000,
	"harbourDistance": 50,
	"initialRobLSIFO": 500, "initialRobLSMGO": 120, "initialRobCylOil": 18,
	"initialRobMEOil": 12, "initialRobAEOil": 8, "initialRobVOLOil": 4,
	"meLSIFO": 8, "aeLSIFO": 1.5, "boilerLSIFO": 0.5,
	"aeLSMGO": 0.8, "cylOil": 0.2, "meOil": 0.05,
	"latitude": 51.95, "longitude": 4.05, "windForce": 4, "windDirection": "SW", "seaState": 3
}`

func noonJSON(state string, distance int) string {
	return fmt.Sprintf(`{
	"passageState": %q,
	"distanceSinceLastReport": %d,
	"averageSpeed": 12.1,
	"meLSIFO": 21, "aeLSIFO": 2.4, "boilerLSIFO": 0.6,
	"aeLSMGO": 0.4, "cylOil": 0.6, "meOil": 0.1, "aeOil": 0.05,
	"latitude": 55.6, "longitude": 9.8, "windForce": 5, "windDirection": "W", "seaState": 4
}`, state, distance)
}

const arrivalJSON = `{
	"arrivalPort": "Gothenburg",
	"distanceSinceLastReport": 360,
	"meLSIFO": 14, "aeLSIFO": 2, "boilerLSIFO": 0.4,
	"aeLSMGO": 1.1, "cylOil": 0.4, "meOil": 0.08,
	"latitude": 57.68, "longitude": 11.85, "windForce": 3, "seaState": 2
}`

const berthJSON = `{
	"berthName": "Skandia 712",
	"cargoOperation": "unload",
	"cargoUnloaded": 31500,
	"aeLSMGO": 3.2, "aeOil": 0.1,
	"supplyLSIFO": 350, "supplyLSMGO": 60
}`
