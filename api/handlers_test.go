/*
handlers_test.go - HTTP tests for the report, review and fleet endpoints

Tests for:
- Submission status codes (201/400/404/409)
- Review workflow over HTTP
- Ledger and vessel status endpoints
- Error mapping, including the generic 500 body
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/voyage-ledger/logging"
	"github.com/warp/voyage-ledger/reporting"
	"github.com/warp/voyage-ledger/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func setupTestHandler(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, logging.Nop())
	require.NoError(t, h.loadFleet(context.Background()))
	return h, NewRouter(h, []string{"http://localhost:5173"})
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func submitRequest(vesselID int64, reportType, data string) SubmitReportRequest {
	return SubmitReportRequest{
		VesselID:    vesselID,
		SubmittedBy: "chief.officer",
		ReportType:  reportType,
		ReportDate:  "2025-03-01",
		ReportData:  json.RawMessage(data),
	}
}

const firstDepartureData = `{
	"voyageNumber": "NS-2501",
	"departurePort": "Rotterdam",
	"destinationPort": "Gothenburg",
	"cargoStatus": "loaded",
	"cargoQuantity": 31500,
	"voyageDistance": 1000,
	"harbourDistance": 50,
	"initialRobLSIFO": 500,
	"meLSIFO": 10
}`

// submitApprovedDeparture puts vessel 1 at sea with an approved departure.
func submitApprovedDeparture(t *testing.T, router http.Handler) ReportDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "departure", firstDepartureData))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dep := decodeBody[ReportDTO](t, rec)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/reports/%d/approve", dep.ID), ApproveRequest{Reviewer: "ops"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[ReportDTO](t, rec)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmitReport_Departure(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "departure", firstDepartureData))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dep := decodeBody[ReportDTO](t, rec)
	assert.Equal(t, "departure", dep.ReportType)
	assert.Equal(t, "pending", dep.Status)
	assert.Equal(t, 1, dep.SequenceNumber)
	assert.Equal(t, 950.0, dep.DistanceToGo)
	assert.Equal(t, 50.0, dep.DistanceTraveled)
	assert.Equal(t, "2025-03-01T00:00:00Z", dep.ReportDate)

	data, ok := dep.ReportData.(map[string]any)
	require.True(t, ok, "reportData: %T", dep.ReportData)
	assert.Equal(t, "NS-2501", data["voyageNumber"])

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/reports/%d/bunker-record", dep.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 490.0, decodeBody[BunkerRecordDTO](t, rec).ROB.LSIFO)
}

func TestSubmitReport_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed body", `{"vesselId": `, http.StatusBadRequest},
		{"missing vessel", submitRequest(0, "departure", firstDepartureData), http.StatusBadRequest},
		{"unknown report type", submitRequest(1, "position", `{}`), http.StatusBadRequest},
		{"malformed report data", submitRequest(1, "noon", `{"distanceSinceLastReport": "far"}`), http.StatusBadRequest},
		{"missing destination", submitRequest(1, "departure", `{"voyageNumber": "X", "departurePort": "A", "cargoStatus": "ballast"}`), http.StatusBadRequest},
		{"cargo above BLS", submitRequest(1, "departure", `{"voyageNumber": "X", "departurePort": "A", "destinationPort": "B", "cargoStatus": "loaded", "cargoQuantity": 60000}`), http.StatusBadRequest},
		{"unknown vessel", submitRequest(99, "departure", firstDepartureData), http.StatusNotFound},
		{"noon without baseline", submitRequest(1, "noon", `{"distanceSinceLastReport": 100}`), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupTestHandler(t)

			rec := do(t, router, http.MethodPost, "/api/reports", tt.body)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

func TestSubmitReport_BadDate(t *testing.T) {
	_, router := setupTestHandler(t)
	req := submitRequest(1, "departure", firstDepartureData)
	req.ReportDate = "01/03/2025"

	rec := do(t, router, http.MethodPost, "/api/reports", req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReport_PendingBlocksVessel(t *testing.T) {
	// GIVEN: A pending departure
	// WHEN: Another report is submitted for the same vessel
	// THEN: 409 naming the pending report

	_, router := setupTestHandler(t)
	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "departure", firstDepartureData))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "arrival", `{"distanceSinceLastReport": 10}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "still pending approval")
}

func TestSubmitReport_IntegrityErrorIsGeneric500(t *testing.T) {
	// GIVEN: An approved departure whose bunker record is gone
	// WHEN: Submitting the next noon report
	// THEN: 500 with a generic message; details stay in the log

	h, router := setupTestHandler(t)
	dep := submitApprovedDeparture(t, router)
	_, err := h.Store.DeleteBunkerRecordsByReport(context.Background(), reporting.ReportID(dep.ID))
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "noon", `{"distanceSinceLastReport": 100}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Internal error", body.Error)
	assert.Nil(t, body.Details)
}

// =============================================================================
// REVIEW
// =============================================================================

func TestReview_ApproveThenNoon(t *testing.T) {
	_, router := setupTestHandler(t)
	dep := submitApprovedDeparture(t, router)
	assert.Equal(t, "approved", dep.Status)
	require.NotNil(t, dep.ReviewedBy)
	assert.Equal(t, "ops", *dep.ReviewedBy)

	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "noon", `{"distanceSinceLastReport": 200, "meLSIFO": 5}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	noon := decodeBody[ReportDTO](t, rec)
	assert.Equal(t, 2, noon.SequenceNumber)
	assert.Equal(t, 750.0, noon.DistanceToGo)
	assert.Equal(t, "noon", noon.PassageState)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/reports/%d/reject", noon.ID),
		RejectRequest{Reviewer: "ops", RejectionReason: "bad position fix"})
	require.Equal(t, http.StatusOK, rec.Code)
	rejected := decodeBody[ReportDTO](t, rec)
	assert.Equal(t, "rejected", rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "bad position fix", *rejected.RejectionReason)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/reports/%d/bunker-record", noon.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 485.0, decodeBody[BunkerRecordDTO](t, rec).ROB.LSIFO)
}

func TestReview_StatusCodes(t *testing.T) {
	_, router := setupTestHandler(t)
	dep := submitApprovedDeparture(t, router)
	approve := fmt.Sprintf("/api/reports/%d/approve", dep.ID)
	reject := fmt.Sprintf("/api/reports/%d/reject", dep.ID)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"approve twice", approve, ApproveRequest{Reviewer: "ops"}, http.StatusConflict},
		{"reject approved", reject, RejectRequest{Reviewer: "ops", RejectionReason: "late"}, http.StatusConflict},
		{"approve unknown", "/api/reports/999/approve", ApproveRequest{Reviewer: "ops"}, http.StatusNotFound},
		{"approve bad id", "/api/reports/abc/approve", ApproveRequest{Reviewer: "ops"}, http.StatusBadRequest},
		{"approve without reviewer", approve, ApproveRequest{}, http.StatusBadRequest},
		{"reject without reason", reject, RejectRequest{Reviewer: "ops"}, http.StatusBadRequest},
		{"malformed body", approve, `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestReview_RejectDepartureRollsBack(t *testing.T) {
	_, router := setupTestHandler(t)
	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "departure", firstDepartureData))
	require.Equal(t, http.StatusCreated, rec.Code)
	dep := decodeBody[ReportDTO](t, rec)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/reports/%d/reject", dep.ID),
		RejectRequest{Reviewer: "ops", RejectionReason: "wrong voyage"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/reports/%d/bunker-record", dep.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/voyages?vessel_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	voyages := decodeBody[[]VoyageDTO](t, rec)
	require.Len(t, voyages, 1)
	assert.False(t, voyages[0].Active)
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

func TestVesselEndpoints(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodGet, "/api/vessels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]VesselDTO](t, rec), 3)

	rec = do(t, router, http.MethodGet, "/api/vessels/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	vessel := decodeBody[VesselDTO](t, rec)
	assert.Equal(t, "MV Nordic Star", vessel.Name)
	assert.Equal(t, 52000.0, vessel.BLSLimit)

	rec = do(t, router, http.MethodGet, "/api/vessels/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/vessels/1/has-bunker-records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"hasBunkerRecords": false}, decodeBody[map[string]bool](t, rec))

	rec = do(t, router, http.MethodGet, "/api/vessels/1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"departure"}, decodeBody[VesselStatusDTO](t, rec).NextReportTypes)

	submitApprovedDeparture(t, router)

	rec = do(t, router, http.MethodGet, "/api/vessels/1/has-bunker-records", nil)
	assert.Equal(t, map[string]bool{"hasBunkerRecords": true}, decodeBody[map[string]bool](t, rec))

	rec = do(t, router, http.MethodGet, "/api/vessels/1/status", nil)
	status := decodeBody[VesselStatusDTO](t, rec)
	assert.Equal(t, []string{"noon", "arrival"}, status.NextReportTypes)
	require.NotNil(t, status.ActiveVoyage)
	assert.Equal(t, "NS-2501", status.ActiveVoyage.VoyageNumber)
	assert.Nil(t, status.PendingReport)

	rec = do(t, router, http.MethodGet, "/api/vessels/1/bunker-records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]BunkerRecordDTO](t, rec), 1)
}

func TestListReports_Filters(t *testing.T) {
	_, router := setupTestHandler(t)
	submitApprovedDeparture(t, router)
	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "noon", `{"distanceSinceLastReport": 100}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/reports?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decodeBody[[]ReportDTO](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, "noon", pending[0].ReportType)

	rec = do(t, router, http.MethodGet, "/api/reports?vessel_id=1", nil)
	assert.Len(t, decodeBody[[]ReportDTO](t, rec), 2)

	rec = do(t, router, http.MethodGet, "/api/reports?vessel_id=2", nil)
	assert.Empty(t, decodeBody[[]ReportDTO](t, rec))

	rec = do(t, router, http.MethodGet, "/api/reports?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/reports?vessel_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/audit?vessel_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]AuditEntryDTO](t, rec)
	require.NotEmpty(t, entries)
	assert.Equal(t, "report_submitted", entries[0].Action)
}

func TestListOverdueReports(t *testing.T) {
	// GIVEN: A departure submitted at a fixed time
	// WHEN: Asking for overdue reports 2 days later
	// THEN: It is listed for a 24h threshold but not for a 72h one

	h, router := setupTestHandler(t)
	submitted := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	h.Reports.Now = func() time.Time { return submitted }

	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "departure", firstDepartureData))
	require.Equal(t, http.StatusCreated, rec.Code)

	h.Reports.Now = func() time.Time { return submitted.Add(48 * time.Hour) }

	rec = do(t, router, http.MethodGet, "/api/reports/overdue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[OverdueReportsDTO](t, rec)
	assert.Equal(t, "24h0m0s", body.MaxAge)
	assert.Len(t, body.Reports, 1)
	assert.Nil(t, body.LastCheck)

	rec = do(t, router, http.MethodGet, "/api/reports/overdue?older_than=72h", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[OverdueReportsDTO](t, rec).Reports)

	rec = do(t, router, http.MethodGet, "/api/reports/overdue?older_than=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOverdueReports_LastSchedulerCheck(t *testing.T) {
	// GIVEN: A scheduler that flagged one overdue departure
	// WHEN: Asking for overdue reports
	// THEN: The response carries the scheduler's last check

	h, router := setupTestHandler(t)
	submitted := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	h.Reports.Now = func() time.Time { return submitted }
	rec := do(t, router, http.MethodPost, "/api/reports", submitRequest(1, "departure", firstDepartureData))
	require.Equal(t, http.StatusCreated, rec.Code)
	h.Reports.Now = func() time.Time { return submitted.Add(30 * time.Hour) }

	h.Scheduler = NewReviewScheduler(h.Reports, h.Logger)
	require.Len(t, h.Scheduler.RunNow(context.Background()), 1)

	rec = do(t, router, http.MethodGet, "/api/reports/overdue", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[OverdueReportsDTO](t, rec)
	require.NotNil(t, body.LastCheck)
	assert.Equal(t, 1, body.LastCheckOverdue)
	assert.Len(t, body.Reports, 1)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&reporting.ValidationError{Field: "x", Message: "bad"}, http.StatusBadRequest},
		{&reporting.NotFoundError{Kind: "vessel", ID: 1}, http.StatusNotFound},
		{&reporting.PendingReportError{ReportID: 1, Type: reporting.ReportNoon}, http.StatusConflict},
		{&reporting.NotPendingError{ReportID: 1, Status: reporting.StatusApproved}, http.StatusConflict},
		{&reporting.TransitionError{Requested: reporting.ReportNoon}, http.StatusConflict},
		{&reporting.TransitionError{Baseline: reporting.ReportDeparture, Requested: reporting.ReportBerth}, http.StatusConflict},
		{&reporting.IntegrityError{VesselID: 1, Detail: "broken"}, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", &reporting.NotFoundError{Kind: "report", ID: 2}), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
