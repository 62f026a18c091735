/*
handlers.go - HTTP API handlers for the voyage report ledger

PURPOSE:
  Exposes the report engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the reporting services.

ENDPOINTS:
  Reports:
    POST   /api/reports                       Submit a report
    GET    /api/reports                       List reports (?vessel_id=&status=)
    GET    /api/reports/overdue               Pending longer than ?older_than= (default ReviewMaxAge)
    GET    /api/reports/{id}                  Get one report
    GET    /api/reports/{id}/bunker-record    ROB snapshot created with the report
    POST   /api/reports/{id}/approve          Approve a pending report
    POST   /api/reports/{id}/reject           Reject a pending report

  Fleet:
    GET    /api/vessels                       List vessels
    GET    /api/vessels/{id}                  Get one vessel
    GET    /api/vessels/{id}/status           Baseline, pending report, legal next types
    GET    /api/vessels/{id}/has-bunker-records
    GET    /api/vessels/{id}/bunker-records   Bunker ledger history
    GET    /api/voyages                       List voyages (?vessel_id=)
    GET    /api/audit                         Audit trail (?vessel_id=)

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Load a demo scenario
    POST   /api/scenarios/reset               Wipe all data

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (also used by scenarios to seed vessels)
  - Reports: State machine and read side
  - Reviews: Approve/reject workflow
  - Factory: reportData JSON to typed payload

ERROR HANDLING:
  Engine errors are mapped with errors.Is:
  - 400: InvalidInput (and malformed JSON / ids)
  - 404: NotFound
  - 409: Conflict, InvalidState, InvalidTransition
  - 500: DataIntegrity and anything unexpected; details are logged, not
         returned

SECURITY NOTE:
  No authentication. Submitter and reviewer identity are taken from the
  request body as given.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/voyage-ledger/factory"
	"github.com/warp/voyage-ledger/logging"
	"github.com/warp/voyage-ledger/reporting"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: the engine's TxStore plus Reset
// for scenarios.
type Store interface {
	reporting.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Reports *reporting.ReportService
	Reviews *reporting.ReviewService
	Factory *factory.ReportFactory
	Logger  logging.Logger

	// ReviewMaxAge is the default age for the overdue report list.
	ReviewMaxAge time.Duration
	// Scheduler, when set, supplies the last background check.
	Scheduler *ReviewScheduler

	// Track currently loaded scenario. scenarioMu also serializes seeding
	// so a reset never interleaves with another scenario's writes.
	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler wires the report and review services over one store and one
// set of vessel locks.
func NewHandler(store Store, logger logging.Logger) *Handler {
	locks := reporting.NewVesselLocks()
	return &Handler{
		Store:   store,
		Reports: reporting.NewReportService(store, locks, logger),
		Reviews: reporting.NewReviewService(store, locks, logger),
		Factory: factory.NewReportFactory(),
		Logger:  logger,

		ReviewMaxAge: 24 * time.Hour,
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// SubmitReport creates a pending report.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.VesselID <= 0 {
		writeError(w, http.StatusBadRequest, "vesselId is required", nil)
		return
	}
	date, err := parseReportDate(req.ReportDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reportDate (use RFC3339 or YYYY-MM-DD)", err)
		return
	}

	payload, err := h.Factory.Parse(req.ReportType, req.ReportData)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	report, err := h.Reports.Submit(r.Context(), reporting.Submission{
		VesselID:    reporting.VesselID(req.VesselID),
		SubmittedBy: req.SubmittedBy,
		ReportDate:  date,
		Payload:     payload,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportDTO(*report, h.Factory))
}

// ListReports returns reports, optionally filtered by vessel and status.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	filter := reporting.ReportFilter{Status: reporting.ReportStatus(r.URL.Query().Get("status"))}
	switch filter.Status {
	case "", reporting.StatusPending, reporting.StatusApproved, reporting.StatusRejected:
	default:
		writeError(w, http.StatusBadRequest, "Invalid status filter", nil)
		return
	}
	if v := r.URL.Query().Get("vessel_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid vessel_id", err)
			return
		}
		filter.VesselID = reporting.VesselID(id)
	}

	reports, err := h.Reports.ListReports(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]ReportDTO, len(reports))
	for i, rep := range reports {
		dtos[i] = toReportDTO(rep, h.Factory)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListOverdueReports returns reports that have been pending too long.
func (h *Handler) ListOverdueReports(w http.ResponseWriter, r *http.Request) {
	maxAge := h.ReviewMaxAge
	if v := r.URL.Query().Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "Invalid older_than (use a duration such as 12h)", err)
			return
		}
		maxAge = d
	}

	reports, err := h.Reports.OverdueReports(r.Context(), maxAge)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := OverdueReportsDTO{MaxAge: maxAge.String(), Reports: make([]ReportDTO, len(reports))}
	for i, rep := range reports {
		resp.Reports[i] = toReportDTO(rep, h.Factory)
	}
	if h.Scheduler != nil {
		if last, n := h.Scheduler.LastRun(); !last.IsZero() {
			resp.LastCheck = formatTimePtr(&last)
			resp.LastCheckOverdue = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReport returns one report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	report, err := h.Reports.GetReport(r.Context(), reporting.ReportID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(*report, h.Factory))
}

// GetReportBunkerRecord returns the ROB snapshot of a report.
func (h *Handler) GetReportBunkerRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.Reports.BunkerRecordForReport(r.Context(), reporting.ReportID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBunkerRecordDTO(*rec))
}

// ApproveReport approves a pending report.
func (h *Handler) ApproveReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := h.Reviews.Approve(r.Context(), reporting.ReportID(id), req.Reviewer)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(*report, h.Factory))
}

// RejectReport rejects a pending report.
func (h *Handler) RejectReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := h.Reviews.Reject(r.Context(), reporting.ReportID(id), req.Reviewer, req.RejectionReason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(*report, h.Factory))
}

// =============================================================================
// FLEET HANDLERS
// =============================================================================

// ListVessels returns all vessels.
func (h *Handler) ListVessels(w http.ResponseWriter, r *http.Request) {
	vessels, err := h.Reports.ListVessels(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]VesselDTO, len(vessels))
	for i, v := range vessels {
		dtos[i] = toVesselDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVessel returns one vessel.
func (h *Handler) GetVessel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := h.Reports.GetVessel(r.Context(), reporting.VesselID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVesselDTO(*v))
}

// GetVesselStatus returns the vessel's baseline, pending report and which
// report types the form should offer.
func (h *Handler) GetVesselStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.Reports.Status(r.Context(), reporting.VesselID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dto := VesselStatusDTO{Vessel: toVesselDTO(st.Vessel), NextReportTypes: []string{}}
	if st.ActiveVoyage != nil {
		v := toVoyageDTO(*st.ActiveVoyage)
		dto.ActiveVoyage = &v
	}
	if st.Baseline != nil {
		b := toReportDTO(*st.Baseline, h.Factory)
		dto.BaselineReport = &b
	}
	if st.Pending != nil {
		p := toReportDTO(*st.Pending, h.Factory)
		dto.PendingReport = &p
	} else {
		for _, t := range st.NextTypes {
			dto.NextReportTypes = append(dto.NextReportTypes, string(t))
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// HasBunkerRecords tells the departure form whether initial ROB is needed.
func (h *Handler) HasBunkerRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	has, err := h.Reports.HasBunkerRecords(r.Context(), reporting.VesselID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasBunkerRecords": has})
}

// ListBunkerRecords returns the vessel's bunker ledger.
func (h *Handler) ListBunkerRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	recs, err := h.Reports.BunkerHistory(r.Context(), reporting.VesselID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]BunkerRecordDTO, len(recs))
	for i, b := range recs {
		dtos[i] = toBunkerRecordDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListVoyages returns voyages, optionally for one vessel.
func (h *Handler) ListVoyages(w http.ResponseWriter, r *http.Request) {
	vesselID, ok := queryVesselID(w, r)
	if !ok {
		return
	}
	voyages, err := h.Reports.ListVoyages(r.Context(), reporting.VoyageFilter{VesselID: vesselID})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]VoyageDTO, len(voyages))
	for i, v := range voyages {
		dtos[i] = toVoyageDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAudit returns the audit trail, oldest first.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	vesselID, ok := queryVesselID(w, r)
	if !ok {
		return
	}
	entries, err := h.Reports.Audit(r.Context(), reporting.AuditFilter{VesselID: vesselID})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

func queryVesselID(w http.ResponseWriter, r *http.Request) (reporting.VesselID, bool) {
	v := r.URL.Query().Get("vessel_id")
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vessel_id", err)
		return 0, false
	}
	return reporting.VesselID(id), true
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reporting.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, reporting.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reporting.ErrConflict),
		errors.Is(err, reporting.ErrInvalidState),
		errors.Is(err, reporting.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err.Error())
		writeError(w, status, "Internal error", nil)
		return
	}
	writeError(w, status, err.Error(), nil)
}

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
